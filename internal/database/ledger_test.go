package database

import (
	"context"
	"errors"
	"testing"

	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"
)

func TestListLedgerEntriesNewestFirst(t *testing.T) {
	service := newSeededService(t, "10000")
	ctx := context.Background()

	first := reserve(t, service, "trainer-1", "1000")
	second := reserve(t, service, "trainer-2", "2000")

	entries, err := service.ListLedgerEntries(ctx, store.LedgerFilter{})
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Insertion order is the autoincrement id; listing reverses it.
	if entries[0].SessionId != second.Id || entries[1].SessionId != first.Id {
		t.Fatalf("entries out of order: %+v", entries)
	}
	if entries[2].Type != models.EntryTypeSeed {
		t.Fatalf("oldest entry should be the seed, got %s", entries[2].Type)
	}
	if entries[0].Id <= entries[1].Id || entries[1].Id <= entries[2].Id {
		t.Fatal("ids should be strictly descending")
	}
}

func TestListLedgerEntriesPagination(t *testing.T) {
	service := newSeededService(t, "10000")
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		reserve(t, service, "trainer-1", "100")
	}

	page, err := service.ListLedgerEntries(ctx, store.LedgerFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}
}

func TestGetLedgerEntry(t *testing.T) {
	service := newSeededService(t, "10000")
	ctx := context.Background()
	session := reserve(t, service, "trainer-1", "1000")

	entries, err := service.ListLedgerEntries(ctx, store.LedgerFilter{SessionId: session.Id})
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	entry, err := service.GetLedgerEntry(ctx, entries[0].Id)
	if err != nil {
		t.Fatalf("GetLedgerEntry: %v", err)
	}
	if entry.SessionId != session.Id || entry.Type != models.EntryTypeReserve {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	if _, err := service.GetLedgerEntry(ctx, 99999); !errors.Is(err, store.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestGetWalletSummary(t *testing.T) {
	service := newSeededService(t, "10000")
	ctx := context.Background()

	session := reserve(t, service, "trainer-1", "3000")
	for _, amount := range []string{"500", "250.25"} {
		if _, err := service.SpendFunds(ctx, store.SpendParams{
			SessionId: session.Id, FacilitatorId: "trainer-1", Amount: dec(t, amount),
		}); err != nil {
			t.Fatalf("SpendFunds(%s): %v", amount, err)
		}
	}

	summary, err := service.GetWalletSummary(ctx)
	if err != nil {
		t.Fatalf("GetWalletSummary: %v", err)
	}
	assertDecimal(t, summary.Available, "7000")
	assertDecimal(t, summary.Reserved, "3000")
	assertDecimal(t, summary.TotalSpent, "750.25")
	if summary.SessionCount != 1 {
		t.Fatalf("expected 1 session, got %d", summary.SessionCount)
	}
	// seed + reserve + 2 spends
	if summary.TransactionCount != 4 {
		t.Fatalf("expected 4 transactions, got %d", summary.TransactionCount)
	}
}

func TestReconcileFreshWallet(t *testing.T) {
	service := newSeededService(t, "10000")

	reconciliation, err := service.ReconcileWallet(context.Background())
	if err != nil {
		t.Fatalf("ReconcileWallet: %v", err)
	}
	assertDecimal(t, reconciliation.LedgerNet, "10000")
	assertDecimal(t, reconciliation.WalletTotal, "10000")
	if !reconciliation.InSync {
		t.Fatal("fresh wallet should reconcile in sync")
	}
}

func TestReconcileNetsDirections(t *testing.T) {
	service := newSeededService(t, "10000")
	ctx := context.Background()

	session := reserve(t, service, "trainer-1", "1000")
	if _, err := service.SpendFunds(ctx, store.SpendParams{
		SessionId: session.Id, FacilitatorId: "trainer-1", Amount: dec(t, "400"),
	}); err != nil {
		t.Fatalf("SpendFunds: %v", err)
	}
	if _, err := service.CloseSession(ctx, session.Id); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	reconciliation, err := service.ReconcileWallet(ctx)
	if err != nil {
		t.Fatalf("ReconcileWallet: %v", err)
	}
	// +10000 seed, -1000 reserve, -400 spend, +600 release
	assertDecimal(t, reconciliation.LedgerNet, "9200")
	assertDecimal(t, reconciliation.WalletTotal, "10000")
	if reconciliation.InSync {
		t.Fatal("ledger net should trail wallet totals by the consumed amounts")
	}
}
