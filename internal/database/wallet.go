package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// rowQuerier is satisfied by both *sql.DB and *sql.Tx so wallet and session
// reads can run standalone or inside a fund movement's transaction.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GetWallet returns the singleton wallet row.
func (s *Service) GetWallet(ctx context.Context) (*models.Wallet, error) {
	return getWallet(ctx, s.db)
}

func getWallet(ctx context.Context, q rowQuerier) (*models.Wallet, error) {
	return scanWallet(q.QueryRowContext(ctx, queryGetWallet))
}

func getWalletById(ctx context.Context, q rowQuerier, walletId string) (*models.Wallet, error) {
	return scanWallet(q.QueryRowContext(ctx, queryGetWalletById, walletId))
}

func scanWallet(row *sql.Row) (*models.Wallet, error) {
	var wallet models.Wallet
	var availableStr, reservedStr, seedStr string
	err := row.Scan(&wallet.Id, &availableStr, &reservedStr, &seedStr,
		&wallet.Version, &wallet.CreatedAt, &wallet.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrWalletNotProvisioned
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query wallet: %w", err)
	}

	if wallet.Available, err = parseDecimal(availableStr, "available"); err != nil {
		return nil, err
	}
	if wallet.Reserved, err = parseDecimal(reservedStr, "reserved"); err != nil {
		return nil, err
	}
	if wallet.Seed, err = parseDecimal(seedStr, "seed"); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ProvisionWallet creates the wallet with its opening value and records the
// SEED ledger entry in the same transaction. Only one wallet may exist.
func (s *Service) ProvisionWallet(ctx context.Context, seed decimal.Decimal) (*models.Wallet, error) {
	if seed.IsNegative() {
		return nil, fmt.Errorf("seed amount cannot be negative: %s", seed.String())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapContention(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getWallet(ctx, tx); err == nil {
		return nil, store.ErrWalletAlreadyExists
	} else if !errors.Is(err, store.ErrWalletNotProvisioned) {
		return nil, err
	}

	now := time.Now().UTC()
	wallet := &models.Wallet{
		Id:        uuid.New().String(),
		Available: seed,
		Reserved:  decimal.Zero,
		Seed:      seed,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := tx.ExecContext(ctx, queryInsertWallet,
		wallet.Id, wallet.Available.String(), wallet.Reserved.String(), wallet.Seed.String(), now, now); err != nil {
		return nil, mapContention(fmt.Errorf("failed to insert wallet: %w", err))
	}

	// Wallet-level seed event: the ledger's first row records the opening
	// value, with no session reference.
	if seed.IsPositive() {
		if _, err := tx.ExecContext(ctx, queryInsertLedgerEntry,
			nil, wallet.Id, models.EntryTypeSeed, models.DirectionCredit, seed.String(), nil, now); err != nil {
			return nil, mapContention(fmt.Errorf("failed to insert seed ledger entry: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapContention(fmt.Errorf("failed to commit transaction: %w", err))
	}

	zap.L().Info("Wallet provisioned",
		zap.String("wallet_id", wallet.Id),
		zap.String("seed", seed.String()))
	return wallet, nil
}

// applyWalletDelta writes new wallet balances with an optimistic version
// check. Zero rows affected means another operation committed first.
func applyWalletDelta(ctx context.Context, tx *sql.Tx, wallet *models.Wallet, available, reserved decimal.Decimal, now time.Time) error {
	if available.IsNegative() || reserved.IsNegative() {
		return fmt.Errorf("%w: wallet %s would go negative (available=%s reserved=%s)",
			store.ErrInvariantViolation, wallet.Id, available.String(), reserved.String())
	}

	result, err := tx.ExecContext(ctx, queryUpdateWalletBalances,
		available.String(), reserved.String(), now, wallet.Id, wallet.Version)
	if err != nil {
		return mapContention(fmt.Errorf("failed to update wallet balances: %w", err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("wallet update failed - %w", store.ErrConcurrentModification)
	}

	wallet.Available = available
	wallet.Reserved = reserved
	wallet.Version++
	wallet.UpdatedAt = now
	return nil
}
