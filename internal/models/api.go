package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// LoginRequest carries credentials for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the bearer token and the caller's role.
type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Amount is a monetary input field. It accepts either a JSON number or a
// quoted decimal string and preserves the caller's literal untouched, so
// values are parsed exactly and never pass through a float.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	if string(data) == "null" {
		*a = ""
		return nil
	}
	*a = Amount(data)
	return nil
}

func (a Amount) String() string { return string(a) }

// CreateSessionRequest carries the reserve operation inputs.
type CreateSessionRequest struct {
	FacilitatorId string `json:"facilitator_id"`
	Allocated     Amount `json:"allocated"`
}

// CreateSessionResponse echoes the new session identity.
type CreateSessionResponse struct {
	Id string `json:"id"`
}

// SpendRequest carries the spend operation inputs.
type SpendRequest struct {
	Amount Amount `json:"amount"`
	Vendor string `json:"vendor,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// SpendResponse acknowledges a recorded spend and echoes the session's
// running total.
type SpendResponse struct {
	Message string          `json:"message"`
	Spent   decimal.Decimal `json:"spent"`
}

// CloseSessionResponse acknowledges a close and echoes the wallet snapshot.
type CloseSessionResponse struct {
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Wallet  *WalletSnapshot `json:"wallet,omitempty"`
}

// WalletSnapshot is the wallet state returned to admin callers.
type WalletSnapshot struct {
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
}

// LedgerEntryRecord is the wire form of one ledger row.
type LedgerEntryRecord struct {
	Id        int64           `json:"id"`
	SessionId string          `json:"session_id,omitempty"`
	Type      string          `json:"type"`
	Direction string          `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	Vendor    string          `json:"vendor,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateVendorRequest carries vendor creation/update fields.
type CreateVendorRequest struct {
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info,omitempty"`
	Location    string `json:"location,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// CreateReceiptRequest attaches a file URL to a ledger entry.
type CreateReceiptRequest struct {
	TransactionId int64  `json:"transaction_id"`
	FileUrl       string `json:"file_url"`
}

// ReceiptRecord is the wire form of one receipt with its ledger context.
type ReceiptRecord struct {
	Id            string          `json:"id"`
	TransactionId int64           `json:"transaction_id"`
	SessionId     string          `json:"session_id,omitempty"`
	Vendor        string          `json:"vendor,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	FileUrl       string          `json:"file_url"`
	UploadedAt    time.Time       `json:"uploaded_at"`
}

// ErrorResponse is the uniform failure payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
