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
	"go.uber.org/zap"
)

// CreateReceipt attaches a file URL to an existing ledger entry. At most one
// receipt may exist per entry.
func (s *Service) CreateReceipt(ctx context.Context, transactionId int64, fileUrl string) (*models.Receipt, error) {
	if _, err := s.GetLedgerEntry(ctx, transactionId); err != nil {
		return nil, err
	}

	var existingId string
	err := s.db.QueryRowContext(ctx, queryReceiptExists, transactionId).Scan(&existingId)
	if err == nil {
		return nil, fmt.Errorf("%w: transaction %d", store.ErrReceiptAlreadyExists, transactionId)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unable to check existing receipt: %w", err)
	}

	receipt := &models.Receipt{
		Id:            uuid.New().String(),
		TransactionId: transactionId,
		FileUrl:       fileUrl,
		UploadedAt:    time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx, queryInsertReceipt,
		receipt.Id, receipt.TransactionId, receipt.FileUrl, receipt.UploadedAt); err != nil {
		return nil, fmt.Errorf("unable to insert receipt: %w", err)
	}

	zap.L().Info("Receipt uploaded",
		zap.String("id", receipt.Id),
		zap.Int64("transaction_id", transactionId))
	return receipt, nil
}

// GetReceiptByTransaction returns the receipt for one ledger entry together
// with the session context the caller needs for ownership checks.
func (s *Service) GetReceiptByTransaction(ctx context.Context, transactionId int64) (*store.ReceiptDetail, error) {
	row := s.db.QueryRowContext(ctx, queryGetReceiptByTransaction, transactionId)
	detail, err := scanReceiptDetail(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// ListSessionReceipts returns all SPEND receipts for a session, newest first.
func (s *Service) ListSessionReceipts(ctx context.Context, sessionId string) ([]store.ReceiptDetail, error) {
	rows, err := s.db.QueryContext(ctx, queryListSessionReceipts, sessionId)
	if err != nil {
		return nil, fmt.Errorf("failed to list session receipts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var details []store.ReceiptDetail
	for rows.Next() {
		detail, err := scanReceiptDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipt rows: %w", err)
	}
	return details, nil
}

func scanReceiptDetail(scan func(dest ...interface{}) error) (*store.ReceiptDetail, error) {
	var detail store.ReceiptDetail
	var sessionId, vendorName, facilitatorId sql.NullString
	var amountStr string
	err := scan(&detail.Receipt.Id, &detail.Receipt.TransactionId, &detail.Receipt.FileUrl,
		&detail.Receipt.UploadedAt, &sessionId, &amountStr, &vendorName, &facilitatorId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan receipt: %w", err)
	}

	detail.SessionId = sessionId.String
	detail.VendorName = vendorName.String
	detail.FacilitatorId = facilitatorId.String
	if detail.Amount, err = parseDecimal(amountStr, "amount"); err != nil {
		return nil, err
	}
	return &detail, nil
}
