package database

import (
	"context"
	"errors"
	"testing"

	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestGetWalletNotProvisioned(t *testing.T) {
	service := newTestService(t)
	if _, err := service.GetWallet(context.Background()); !errors.Is(err, store.ErrWalletNotProvisioned) {
		t.Fatalf("expected ErrWalletNotProvisioned, got %v", err)
	}
}

func TestProvisionWallet(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	wallet, err := service.ProvisionWallet(ctx, dec(t, "50000.00"))
	if err != nil {
		t.Fatalf("ProvisionWallet: %v", err)
	}
	assertDecimal(t, wallet.Available, "50000.00")
	assertDecimal(t, wallet.Reserved, "0")
	assertDecimal(t, wallet.Seed, "50000.00")

	// The opening value is recorded as a SEED credit with no session.
	entries, err := service.ListLedgerEntries(ctx, store.LedgerFilter{})
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Type != models.EntryTypeSeed || entry.Direction != models.DirectionCredit {
		t.Fatalf("expected SEED/CREDIT, got %s/%s", entry.Type, entry.Direction)
	}
	if entry.SessionId != "" {
		t.Fatalf("seed entry should have no session, got %q", entry.SessionId)
	}
	assertDecimal(t, entry.Amount, "50000.00")
}

func TestProvisionWalletTwice(t *testing.T) {
	service := newSeededService(t, "1000")
	if _, err := service.ProvisionWallet(context.Background(), dec(t, "500")); !errors.Is(err, store.ErrWalletAlreadyExists) {
		t.Fatalf("expected ErrWalletAlreadyExists, got %v", err)
	}
}

func TestProvisionWalletZeroSeedWritesNoEntry(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, err := service.ProvisionWallet(ctx, decimal.Zero); err != nil {
		t.Fatalf("ProvisionWallet: %v", err)
	}
	entries, err := service.ListLedgerEntries(ctx, store.LedgerFilter{})
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %d entries", len(entries))
	}
}

func TestProvisionWalletRejectsNegativeSeed(t *testing.T) {
	service := newTestService(t)
	if _, err := service.ProvisionWallet(context.Background(), dec(t, "-1")); err == nil {
		t.Fatal("expected error for negative seed")
	}
}
