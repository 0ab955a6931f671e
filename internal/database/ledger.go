package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultLedgerLimit = 500

// ListLedgerEntries returns ledger rows newest first. An empty filter lists
// the whole ledger; a session id narrows it to that session's movements.
func (s *Service) ListLedgerEntries(ctx context.Context, filter store.LedgerFilter) ([]models.LedgerEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLedgerLimit
	}

	var rows *sql.Rows
	var err error
	if filter.SessionId != "" {
		rows, err = s.db.QueryContext(ctx, queryListSessionLedgerEntries, filter.SessionId, limit, filter.Offset)
	} else {
		rows, err = s.db.QueryContext(ctx, queryListLedgerEntries, limit, filter.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}
	return entries, nil
}

// GetLedgerEntry returns one ledger row by id.
func (s *Service) GetLedgerEntry(ctx context.Context, entryId int64) (*models.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx, queryGetLedgerEntry, entryId)

	var entry models.LedgerEntry
	var sessionId, vendor sql.NullString
	var amountStr string
	err := row.Scan(&entry.Id, &sessionId, &entry.WalletId, &entry.Type,
		&entry.Direction, &amountStr, &vendor, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query ledger entry: %w", err)
	}

	entry.SessionId = sessionId.String
	entry.Vendor = vendor.String
	if entry.Amount, err = parseDecimal(amountStr, "amount"); err != nil {
		return nil, err
	}
	return &entry, nil
}

func scanLedgerEntry(rows *sql.Rows) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var sessionId, vendor sql.NullString
	var amountStr string
	err := rows.Scan(&entry.Id, &sessionId, &entry.WalletId, &entry.Type,
		&entry.Direction, &amountStr, &vendor, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	entry.SessionId = sessionId.String
	entry.Vendor = vendor.String
	if entry.Amount, err = parseDecimal(amountStr, "amount"); err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetWalletSummary computes the admin summary. The SPEND total is summed in
// Go over exact decimals, never through SQLite's float arithmetic.
func (s *Service) GetWalletSummary(ctx context.Context) (*models.WalletSummary, error) {
	wallet, err := s.GetWallet(ctx)
	if err != nil {
		return nil, err
	}

	totalSpent, err := s.sumAmounts(ctx, querySpendAmounts)
	if err != nil {
		return nil, err
	}

	var sessionCount, transactionCount int64
	if err := s.db.QueryRowContext(ctx, queryCountSessions).Scan(&sessionCount); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, queryCountTransactions).Scan(&transactionCount); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	return &models.WalletSummary{
		Available:        wallet.Available,
		Reserved:         wallet.Reserved,
		TotalSpent:       totalSpent,
		SessionCount:     sessionCount,
		TransactionCount: transactionCount,
	}, nil
}

// ReconcileWallet nets the ledger (credits positive, debits negative) and
// compares it against the wallet's current totals.
func (s *Service) ReconcileWallet(ctx context.Context) (*models.Reconciliation, error) {
	wallet, err := s.GetWallet(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, queryLedgerDirections, wallet.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for reconciliation: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	ledgerNet := decimal.Zero
	for rows.Next() {
		var direction, amountStr string
		if err := rows.Scan(&direction, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		amount, err := parseDecimal(amountStr, "amount")
		if err != nil {
			return nil, err
		}
		if direction == models.DirectionCredit {
			ledgerNet = ledgerNet.Add(amount)
		} else {
			ledgerNet = ledgerNet.Sub(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	walletTotal := wallet.Total()
	reconciliation := &models.Reconciliation{
		LedgerNet:   ledgerNet,
		WalletTotal: walletTotal,
		InSync:      ledgerNet.Equal(walletTotal),
	}

	if !reconciliation.InSync {
		zap.L().Info("Ledger net differs from wallet totals",
			zap.String("ledger_net", ledgerNet.String()),
			zap.String("wallet_total", walletTotal.String()),
			zap.String("difference", walletTotal.Sub(ledgerNet).String()))
	}
	return reconciliation, nil
}

func (s *Service) sumAmounts(ctx context.Context, query string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query amounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	total := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := parseDecimal(amountStr, "amount")
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating amount rows: %w", err)
	}
	return total, nil
}
