package store

import (
	"context"
	"errors"

	"campaign-wallet-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations. Business-rule
// failures are detected against freshly read state inside the backend's
// atomic unit of work, so callers can trust them even under contention.
var (
	ErrWalletNotProvisioned   = errors.New("wallet not provisioned")
	ErrWalletAlreadyExists    = errors.New("wallet already provisioned")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrSessionNotFound        = errors.New("session not found")
	ErrNotSessionOwner        = errors.New("not the session owner")
	ErrSessionCompleted       = errors.New("session already completed")
	ErrOverspend              = errors.New("overspend not allowed")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrInvariantViolation     = errors.New("fund conservation invariant violated")
	ErrUserNotFound           = errors.New("user not found")
	ErrUserAlreadyExists      = errors.New("user already exists")
	ErrVendorNotFound         = errors.New("vendor not found")
	ErrVendorAlreadyExists    = errors.New("vendor already exists")
	ErrEntryNotFound          = errors.New("ledger entry not found")
	ErrReceiptNotFound        = errors.New("receipt not found")
	ErrReceiptAlreadyExists   = errors.New("receipt already exists for transaction")
)

// ReserveParams carves a fixed allocation out of the wallet's available pool
// into a new session.
type ReserveParams struct {
	WalletId      string // empty means the singleton wallet
	FacilitatorId string
	Allocated     decimal.Decimal
}

// SpendParams consumes part of a session's allocation. FacilitatorId is the
// acting principal; the backend re-verifies ownership against the freshly
// read session row inside the same transaction that applies the spend.
type SpendParams struct {
	SessionId     string
	FacilitatorId string
	Amount        decimal.Decimal
	Vendor        string
}

// CloseResult reports the outcome of a close operation.
type CloseResult struct {
	Session       *models.Session
	Wallet        *models.Wallet
	Released      decimal.Decimal
	AlreadyClosed bool
}

// LedgerFilter narrows a ledger listing. The zero value lists everything,
// ordered by created_at descending (id descending breaks ties).
type LedgerFilter struct {
	SessionId string
	Limit     int
	Offset    int
}

// CreateUserParams carries the fields for a new principal.
type CreateUserParams struct {
	FullName     string
	Email        string
	PasswordHash string
	Role         string
}

// VendorParams carries vendor creation/update fields. Nil pointer fields are
// left unchanged on update.
type VendorParams struct {
	Name        string
	ContactInfo string
	Location    string
	IsActive    *bool
}

// VendorDeleteResult distinguishes a hard delete from a soft deactivate.
type VendorDeleteResult struct {
	VendorId         string
	TransactionCount int64
	Deactivated      bool
}

// ReceiptDetail is a receipt joined with enough ledger/session context for
// the caller to enforce ownership.
type ReceiptDetail struct {
	Receipt       models.Receipt
	SessionId     string
	FacilitatorId string
	VendorName    string
	Amount        decimal.Decimal
}

// LedgerStore defines the contract every backend must satisfy. The fund
// movement methods (ProvisionWallet, ReserveFunds, SpendFunds, CloseSession)
// are reserved for the fund engine; nothing else may mutate wallet or
// session balances.
type LedgerStore interface {
	// --- Wallet ---
	GetWallet(ctx context.Context) (*models.Wallet, error)
	ProvisionWallet(ctx context.Context, seed decimal.Decimal) (*models.Wallet, error)

	// --- Fund movements (engine only) ---
	ReserveFunds(ctx context.Context, params ReserveParams) (*models.Session, *models.Wallet, error)
	SpendFunds(ctx context.Context, params SpendParams) (*models.Session, error)
	CloseSession(ctx context.Context, sessionId string) (*CloseResult, error)

	// --- Sessions ---
	GetSession(ctx context.Context, sessionId string) (*models.Session, error)

	// --- Ledger read model ---
	ListLedgerEntries(ctx context.Context, filter LedgerFilter) ([]models.LedgerEntry, error)
	GetLedgerEntry(ctx context.Context, entryId int64) (*models.LedgerEntry, error)
	GetWalletSummary(ctx context.Context) (*models.WalletSummary, error)
	ReconcileWallet(ctx context.Context) (*models.Reconciliation, error)

	// --- Users ---
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)

	// --- Vendors ---
	ListVendors(ctx context.Context, activeOnly bool, search string) ([]models.Vendor, error)
	GetVendor(ctx context.Context, vendorId string) (*models.Vendor, error)
	CreateVendor(ctx context.Context, params VendorParams) (*models.Vendor, error)
	UpdateVendor(ctx context.Context, vendorId string, params VendorParams) (*models.Vendor, error)
	DeleteVendor(ctx context.Context, vendorId string) (*VendorDeleteResult, error)

	// --- Receipts ---
	CreateReceipt(ctx context.Context, transactionId int64, fileUrl string) (*models.Receipt, error)
	GetReceiptByTransaction(ctx context.Context, transactionId int64) (*ReceiptDetail, error)
	ListSessionReceipts(ctx context.Context, sessionId string) ([]ReceiptDetail, error)

	// --- Lifecycle ---
	Close()
}
