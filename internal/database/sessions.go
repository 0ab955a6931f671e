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

// GetSession returns one session by id.
func (s *Service) GetSession(ctx context.Context, sessionId string) (*models.Session, error) {
	return getSession(ctx, s.db, sessionId)
}

func getSession(ctx context.Context, q rowQuerier, sessionId string) (*models.Session, error) {
	var session models.Session
	var allocatedStr, spentStr string
	err := q.QueryRowContext(ctx, queryGetSession, sessionId).Scan(
		&session.Id, &session.FacilitatorId, &allocatedStr, &spentStr,
		&session.Status, &session.WalletId, &session.Version,
		&session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query session: %w", err)
	}

	if session.Allocated, err = parseDecimal(allocatedStr, "allocated"); err != nil {
		return nil, err
	}
	if session.Spent, err = parseDecimal(spentStr, "spent"); err != nil {
		return nil, err
	}
	return &session, nil
}

// ReserveFunds carves a new session's allocation out of the wallet's
// available pool. Wallet delta, session row and RESERVE ledger entry commit
// in one transaction; preconditions are checked against the state read
// inside that transaction.
func (s *Service) ReserveFunds(ctx context.Context, params store.ReserveParams) (*models.Session, *models.Wallet, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, mapContention(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	wallet, err := getWallet(ctx, tx)
	if err != nil {
		return nil, nil, err
	}
	if params.WalletId != "" && params.WalletId != wallet.Id {
		return nil, nil, store.ErrWalletNotProvisioned
	}

	if params.Allocated.GreaterThan(wallet.Available) {
		return nil, nil, fmt.Errorf("%w: requested %s, available %s",
			store.ErrInsufficientFunds, params.Allocated.String(), wallet.Available.String())
	}

	now := time.Now().UTC()
	newAvailable := wallet.Available.Sub(params.Allocated)
	newReserved := wallet.Reserved.Add(params.Allocated)
	if err := applyWalletDelta(ctx, tx, wallet, newAvailable, newReserved, now); err != nil {
		return nil, nil, err
	}

	session := &models.Session{
		Id:            uuid.New().String(),
		FacilitatorId: params.FacilitatorId,
		Allocated:     params.Allocated,
		Spent:         decimal.Zero,
		Status:        models.SessionActive,
		WalletId:      wallet.Id,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := tx.ExecContext(ctx, queryInsertSession,
		session.Id, session.FacilitatorId, session.Allocated.String(), session.Spent.String(),
		session.Status, session.WalletId, now, now); err != nil {
		return nil, nil, mapContention(fmt.Errorf("failed to insert session: %w", err))
	}

	if _, err := tx.ExecContext(ctx, queryInsertLedgerEntry,
		session.Id, wallet.Id, models.EntryTypeReserve, models.DirectionDebit,
		params.Allocated.String(), nil, now); err != nil {
		return nil, nil, mapContention(fmt.Errorf("failed to insert reserve ledger entry: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, mapContention(fmt.Errorf("failed to commit transaction: %w", err))
	}

	zap.L().Info("Funds reserved",
		zap.String("session_id", session.Id),
		zap.String("facilitator_id", session.FacilitatorId),
		zap.String("allocated", params.Allocated.String()),
		zap.String("wallet_available", newAvailable.String()),
		zap.String("wallet_reserved", newReserved.String()))
	return session, wallet, nil
}

// SpendFunds consumes part of a session's allocation and appends the SPEND
// ledger entry. Wallet totals are untouched: the money left available at
// reserve time, spend only draws the reservation down. Ownership, lifecycle
// state and the overspend ceiling are all re-verified against the session
// row read inside this transaction.
func (s *Service) SpendFunds(ctx context.Context, params store.SpendParams) (*models.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapContention(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	session, err := getSession(ctx, tx, params.SessionId)
	if err != nil {
		return nil, err
	}

	if session.FacilitatorId != params.FacilitatorId {
		return nil, fmt.Errorf("%w: session %s belongs to %s",
			store.ErrNotSessionOwner, session.Id, session.FacilitatorId)
	}
	if session.Status == models.SessionCompleted {
		return nil, store.ErrSessionCompleted
	}

	newSpent := session.Spent.Add(params.Amount)
	if newSpent.GreaterThan(session.Allocated) {
		return nil, fmt.Errorf("%w: spent %s + amount %s exceeds allocation %s",
			store.ErrOverspend, session.Spent.String(), params.Amount.String(), session.Allocated.String())
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, queryUpdateSessionSpent,
		newSpent.String(), now, session.Id, session.Version)
	if err != nil {
		return nil, mapContention(fmt.Errorf("failed to update session spent: %w", err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("session update failed - %w", store.ErrConcurrentModification)
	}

	var vendor interface{}
	if params.Vendor != "" {
		vendor = params.Vendor
	}
	if _, err := tx.ExecContext(ctx, queryInsertLedgerEntry,
		session.Id, session.WalletId, models.EntryTypeSpend, models.DirectionDebit,
		params.Amount.String(), vendor, now); err != nil {
		return nil, mapContention(fmt.Errorf("failed to insert spend ledger entry: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, mapContention(fmt.Errorf("failed to commit transaction: %w", err))
	}

	session.Spent = newSpent
	session.Version++
	session.UpdatedAt = now

	zap.L().Info("Spend recorded",
		zap.String("session_id", session.Id),
		zap.String("amount", params.Amount.String()),
		zap.String("vendor", params.Vendor),
		zap.String("spent", newSpent.String()),
		zap.String("allocated", session.Allocated.String()))
	return session, nil
}

// CloseSession completes a session and releases its unused reservation back
// to the wallet's available pool. Closing an already-completed session is a
// no-op success. A fully spent session releases nothing and writes no ledger
// entry, since entry amounts are strictly positive.
func (s *Service) CloseSession(ctx context.Context, sessionId string) (*store.CloseResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapContention(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	session, err := getSession(ctx, tx, sessionId)
	if err != nil {
		return nil, err
	}

	wallet, err := getWalletById(ctx, tx, session.WalletId)
	if err != nil {
		return nil, err
	}

	if session.Status == models.SessionCompleted {
		return &store.CloseResult{
			Session:       session,
			Wallet:        wallet,
			Released:      decimal.Zero,
			AlreadyClosed: true,
		}, nil
	}

	now := time.Now().UTC()
	unused := session.Allocated.Sub(session.Spent)

	if unused.IsNegative() {
		return nil, fmt.Errorf("%w: session %s spent %s exceeds allocation %s",
			store.ErrInvariantViolation, session.Id, session.Spent.String(), session.Allocated.String())
	}

	if unused.IsPositive() {
		newAvailable := wallet.Available.Add(unused)
		newReserved := wallet.Reserved.Sub(unused)
		if err := applyWalletDelta(ctx, tx, wallet, newAvailable, newReserved, now); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, queryInsertLedgerEntry,
			session.Id, wallet.Id, models.EntryTypeRelease, models.DirectionCredit,
			unused.String(), nil, now); err != nil {
			return nil, mapContention(fmt.Errorf("failed to insert release ledger entry: %w", err))
		}
	} else {
		// Fully spent: drop the whole allocation from reserved. No ledger
		// entry is written because the released amount is zero.
		newReserved := wallet.Reserved.Sub(session.Allocated)
		if err := applyWalletDelta(ctx, tx, wallet, wallet.Available, newReserved, now); err != nil {
			return nil, err
		}
	}

	result, err := tx.ExecContext(ctx, queryUpdateSessionStatus,
		models.SessionCompleted, now, session.Id, session.Version)
	if err != nil {
		return nil, mapContention(fmt.Errorf("failed to update session status: %w", err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("session close failed - %w", store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapContention(fmt.Errorf("failed to commit transaction: %w", err))
	}

	session.Status = models.SessionCompleted
	session.Version++
	session.UpdatedAt = now

	zap.L().Info("Session closed",
		zap.String("session_id", session.Id),
		zap.String("released", unused.String()),
		zap.String("wallet_available", wallet.Available.String()),
		zap.String("wallet_reserved", wallet.Reserved.String()))
	return &store.CloseResult{
		Session:  session,
		Wallet:   wallet,
		Released: unused,
	}, nil
}
