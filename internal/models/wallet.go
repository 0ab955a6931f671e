package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry types.
const (
	EntryTypeSeed    = "SEED"
	EntryTypeReserve = "RESERVE"
	EntryTypeSpend   = "SPEND"
	EntryTypeRelease = "RELEASE"
)

// Ledger entry directions, from the wallet's perspective.
const (
	DirectionDebit  = "DEBIT"
	DirectionCredit = "CREDIT"
)

// Session lifecycle states.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// User roles.
const (
	RoleAdmin   = "ADMIN"
	RoleTrainer = "TRAINER"
)

// Wallet is the pooled fund source, partitioned into available and reserved
// quantities. The system runs a single wallet row; the id is still threaded
// through every operation so nothing depends on a global.
type Wallet struct {
	Id        string          `db:"id"`
	Available decimal.Decimal `db:"available"`
	Reserved  decimal.Decimal `db:"reserved"`
	Seed      decimal.Decimal `db:"seed"`
	Version   int64           `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Total returns available + reserved.
func (w *Wallet) Total() decimal.Decimal {
	return w.Available.Add(w.Reserved)
}

// Session is a bounded, facilitator-owned spending envelope drawn from the
// wallet's reserved pool. Allocated is fixed at creation; spent only grows.
type Session struct {
	Id            string          `db:"id"`
	FacilitatorId string          `db:"facilitator_id"`
	Allocated     decimal.Decimal `db:"allocated"`
	Spent         decimal.Decimal `db:"spent"`
	Status        string          `db:"status"`
	WalletId      string          `db:"wallet_id"`
	Version       int64           `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// Unused returns allocated - spent.
func (s *Session) Unused() decimal.Decimal {
	return s.Allocated.Sub(s.Spent)
}

// LedgerEntry is one immutable fund movement. Rows are append-only and never
// updated or deleted; the autoincrement id gives the insertion order.
// SessionId is empty only for wallet-level SEED entries.
type LedgerEntry struct {
	Id        int64           `db:"id"`
	SessionId string          `db:"session_id"`
	WalletId  string          `db:"wallet_id"`
	Type      string          `db:"type"`
	Direction string          `db:"direction"`
	Amount    decimal.Decimal `db:"amount"`
	Vendor    string          `db:"vendor"`
	CreatedAt time.Time       `db:"created_at"`
}

// User is an authenticated principal (facilitator or admin).
type User struct {
	Id           string    `db:"id"`
	FullName     string    `db:"full_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// Vendor is a registered spend destination.
type Vendor struct {
	Id          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	ContactInfo string    `db:"contact_info" json:"contact_info,omitempty"`
	Location    string    `db:"location" json:"location,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Receipt attaches a document to one SPEND ledger entry.
type Receipt struct {
	Id            string    `db:"id" json:"id"`
	TransactionId int64     `db:"transaction_id" json:"transaction_id"`
	FileUrl       string    `db:"file_url" json:"file_url"`
	UploadedAt    time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// WalletSummary is the admin summary read model.
type WalletSummary struct {
	Available        decimal.Decimal `json:"available"`
	Reserved         decimal.Decimal `json:"reserved"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	SessionCount     int64           `json:"session_count"`
	TransactionCount int64           `json:"transactions_count"`
}

// Reconciliation compares the ledger's net effect against the wallet totals.
type Reconciliation struct {
	LedgerNet   decimal.Decimal `json:"ledger_net"`
	WalletTotal decimal.Decimal `json:"wallet_total"`
	InSync      bool            `json:"in_sync"`
}
