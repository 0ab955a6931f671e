package engine

import (
	"context"
	"errors"
	"time"

	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Monetary amounts are exact decimals with at most two fractional digits.
const amountScale = 2

// Engine is the fund engine: the only component that moves money between the
// wallet's pools and the session envelopes. It validates inputs, delegates
// the atomic read-check-write to the store, retries bounded contention, and
// classifies every failure.
type Engine struct {
	store      store.LedgerStore
	maxRetries int
	retryDelay time.Duration
}

// New returns an engine over the given store with default retry settings.
func New(st store.LedgerStore) *Engine {
	return &Engine{
		store:      st,
		maxRetries: 3,
		retryDelay: 25 * time.Millisecond,
	}
}

// ReserveRequest carries exactly the fields the reserve operation validates.
type ReserveRequest struct {
	WalletId      string // empty targets the singleton wallet
	FacilitatorId string
	Allocated     string
}

// SpendRequest carries exactly the fields the spend operation validates.
// ActorId is the authenticated principal; the operation fails unless it
// matches the session's facilitator, regardless of upstream role checks.
type SpendRequest struct {
	SessionId string
	ActorId   string
	Amount    string
	Vendor    string
}

// CloseRequest identifies the session to close.
type CloseRequest struct {
	SessionId string
}

// Reserve creates a new active session by moving the allocation from the
// wallet's available pool into its reserved pool, mirrored by one RESERVE
// ledger entry. Returns the new session.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (session *models.Session, err error) {
	defer func() { recordOutcome("reserve", err) }()

	if req.FacilitatorId == "" {
		return nil, newError(KindValidation, "facilitator_id is required")
	}
	allocated, err := parseAmount(req.Allocated, "allocated")
	if err != nil {
		return nil, err
	}

	err = e.withRetry(ctx, "reserve", func() error {
		var wallet *models.Wallet
		var opErr error
		session, wallet, opErr = e.store.ReserveFunds(ctx, store.ReserveParams{
			WalletId:      req.WalletId,
			FacilitatorId: req.FacilitatorId,
			Allocated:     allocated,
		})
		if opErr != nil {
			return opErr
		}
		return e.verifyWallet(wallet)
	})
	if err != nil {
		return nil, e.classify(err)
	}
	return session, nil
}

// Spend consumes part of a session's allocation and appends one SPEND ledger
// entry. Wallet totals are untouched.
func (e *Engine) Spend(ctx context.Context, req SpendRequest) (session *models.Session, err error) {
	defer func() { recordOutcome("spend", err) }()

	if req.SessionId == "" {
		return nil, newError(KindValidation, "session_id is required")
	}
	if req.ActorId == "" {
		return nil, newError(KindValidation, "acting principal is required")
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return nil, err
	}

	err = e.withRetry(ctx, "spend", func() error {
		var opErr error
		session, opErr = e.store.SpendFunds(ctx, store.SpendParams{
			SessionId:     req.SessionId,
			FacilitatorId: req.ActorId,
			Amount:        amount,
			Vendor:        req.Vendor,
		})
		if opErr != nil {
			return opErr
		}
		return e.verifySession(session)
	})
	if err != nil {
		return nil, e.classify(err)
	}
	return session, nil
}

// Close completes a session and releases its unused allocation back to the
// wallet, with one RELEASE ledger entry when the released amount is nonzero.
// Closing an already-completed session succeeds without effect.
func (e *Engine) Close(ctx context.Context, req CloseRequest) (result *store.CloseResult, err error) {
	defer func() { recordOutcome("close", err) }()

	if req.SessionId == "" {
		return nil, newError(KindValidation, "session_id is required")
	}

	err = e.withRetry(ctx, "close", func() error {
		var opErr error
		result, opErr = e.store.CloseSession(ctx, req.SessionId)
		if opErr != nil {
			return opErr
		}
		return e.verifyWallet(result.Wallet)
	})
	if err != nil {
		return nil, e.classify(err)
	}
	return result, nil
}

// GetSession returns one session.
func (e *Engine) GetSession(ctx context.Context, sessionId string) (*models.Session, error) {
	session, err := e.store.GetSession(ctx, sessionId)
	if err != nil {
		return nil, e.classify(err)
	}
	return session, nil
}

// ListLedger returns ledger entries newest first, optionally filtered to one
// session.
func (e *Engine) ListLedger(ctx context.Context, sessionId string) ([]models.LedgerEntry, error) {
	entries, err := e.store.ListLedgerEntries(ctx, store.LedgerFilter{SessionId: sessionId})
	if err != nil {
		return nil, e.classify(err)
	}
	return entries, nil
}

// Summary returns the wallet summary read model.
func (e *Engine) Summary(ctx context.Context) (*models.WalletSummary, error) {
	summary, err := e.store.GetWalletSummary(ctx)
	if err != nil {
		return nil, e.classify(err)
	}
	return summary, nil
}

// Reconcile nets the ledger against the wallet totals.
func (e *Engine) Reconcile(ctx context.Context) (*models.Reconciliation, error) {
	reconciliation, err := e.store.ReconcileWallet(ctx)
	if err != nil {
		return nil, e.classify(err)
	}
	return reconciliation, nil
}

// withRetry runs fn, retrying with backoff while the store reports
// contention. Business-rule failures return immediately; exhausted retries
// surface as a transient failure the caller may retry.
func (e *Engine) withRetry(ctx context.Context, operation string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			retriesTotal.Inc()
			zap.L().Warn("Retrying after storage contention",
				zap.String("operation", operation),
				zap.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.retryDelay << uint(attempt-1)):
			}
		}
		err = fn()
		if !errors.Is(err, store.ErrConcurrentModification) {
			return err
		}
	}
	return err
}

// verifyWallet halts the operation if the committed wallet state breaks the
// non-negativity invariant. This is unreachable when the store enforces its
// preconditions; it must never be swallowed.
func (e *Engine) verifyWallet(wallet *models.Wallet) error {
	if wallet == nil {
		return nil
	}
	if wallet.Available.IsNegative() || wallet.Reserved.IsNegative() {
		invariantViolationsTotal.Inc()
		zap.L().Error("Wallet balance invariant violated",
			zap.String("wallet_id", wallet.Id),
			zap.String("available", wallet.Available.String()),
			zap.String("reserved", wallet.Reserved.String()))
		return newError(KindInvariant, "wallet %s has negative balance (available=%s reserved=%s)",
			wallet.Id, wallet.Available.String(), wallet.Reserved.String())
	}
	return nil
}

func (e *Engine) verifySession(session *models.Session) error {
	if session == nil {
		return nil
	}
	if session.Spent.IsNegative() || session.Spent.GreaterThan(session.Allocated) {
		invariantViolationsTotal.Inc()
		zap.L().Error("Session spend invariant violated",
			zap.String("session_id", session.Id),
			zap.String("spent", session.Spent.String()),
			zap.String("allocated", session.Allocated.String()))
		return newError(KindInvariant, "session %s spent %s outside [0, %s]",
			session.Id, session.Spent.String(), session.Allocated.String())
	}
	return nil
}

// classify maps store sentinels onto the failure taxonomy.
func (e *Engine) classify(err error) error {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr
	}

	switch {
	case errors.Is(err, store.ErrWalletNotProvisioned):
		return wrapError(KindNotProvisioned, "wallet not initialized", err)
	case errors.Is(err, store.ErrInsufficientFunds):
		return wrapError(KindInsufficientFunds, "insufficient funds", err)
	case errors.Is(err, store.ErrSessionNotFound):
		return wrapError(KindNotFound, "session not found", err)
	case errors.Is(err, store.ErrNotSessionOwner):
		return wrapError(KindForbidden, "not your session", err)
	case errors.Is(err, store.ErrSessionCompleted):
		return wrapError(KindSessionClosed, "session closed", err)
	case errors.Is(err, store.ErrOverspend):
		return wrapError(KindOverspend, "overspend not allowed", err)
	case errors.Is(err, store.ErrConcurrentModification):
		return wrapError(KindTransient, "storage contention, retry later", err)
	case errors.Is(err, store.ErrInvariantViolation):
		invariantViolationsTotal.Inc()
		zap.L().Error("Storage reported invariant violation", zap.Error(err))
		return wrapError(KindInvariant, "fund conservation invariant violated", err)
	default:
		return wrapError(KindInternal, "operation failed", err)
	}
}

// parseAmount parses a monetary input: a strictly positive decimal, exactly
// representable at two fractional digits. Inputs needing more precision are
// rejected rather than rounded.
func parseAmount(value, field string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, newError(KindValidation, "%s is required", field)
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, newError(KindValidation, "invalid %s: %q is not a number", field, value)
	}
	if !amount.IsPositive() {
		return decimal.Zero, newError(KindValidation, "%s must be positive, got %s", field, amount.String())
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return decimal.Zero, newError(KindValidation, "%s has more than %d decimal places: %s", field, amountScale, value)
	}
	return amount, nil
}
