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

// ListVendors returns vendors ordered by name, optionally restricted to
// active ones and/or matched against a case-insensitive search term.
func (s *Service) ListVendors(ctx context.Context, activeOnly bool, search string) ([]models.Vendor, error) {
	query := `SELECT id, name, contact_info, location, is_active, created_at, updated_at FROM vendors`
	var conditions []string
	var args []interface{}

	if activeOnly {
		conditions = append(conditions, "is_active = 1")
	}
	if search != "" {
		conditions = append(conditions, "(name LIKE ? OR location LIKE ? OR contact_info LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY name COLLATE NOCASE"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var vendors []models.Vendor
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, *vendor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vendor rows: %w", err)
	}
	return vendors, nil
}

func (s *Service) GetVendor(ctx context.Context, vendorId string) (*models.Vendor, error) {
	row := s.db.QueryRowContext(ctx, queryGetVendor, vendorId)

	var vendor models.Vendor
	var contactInfo, location sql.NullString
	err := row.Scan(&vendor.Id, &vendor.Name, &contactInfo, &location,
		&vendor.IsActive, &vendor.CreatedAt, &vendor.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrVendorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query vendor: %w", err)
	}
	vendor.ContactInfo = contactInfo.String
	vendor.Location = location.String
	return &vendor, nil
}

func (s *Service) CreateVendor(ctx context.Context, params store.VendorParams) (*models.Vendor, error) {
	if err := s.checkVendorName(ctx, params.Name, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	vendorId := uuid.New().String()
	isActive := true
	if params.IsActive != nil {
		isActive = *params.IsActive
	}

	if _, err := s.db.ExecContext(ctx, queryInsertVendor,
		vendorId, params.Name, nullable(params.ContactInfo), nullable(params.Location),
		isActive, now, now); err != nil {
		return nil, fmt.Errorf("unable to insert vendor: %w", err)
	}

	zap.L().Info("Vendor created", zap.String("id", vendorId), zap.String("name", params.Name))
	return s.GetVendor(ctx, vendorId)
}

func (s *Service) UpdateVendor(ctx context.Context, vendorId string, params store.VendorParams) (*models.Vendor, error) {
	if _, err := s.GetVendor(ctx, vendorId); err != nil {
		return nil, err
	}

	if params.Name != "" {
		if err := s.checkVendorName(ctx, params.Name, vendorId); err != nil {
			return nil, err
		}
	}

	var isActive interface{}
	if params.IsActive != nil {
		isActive = *params.IsActive
	}
	if _, err := s.db.ExecContext(ctx, queryUpdateVendor,
		nullable(params.Name), nullable(params.ContactInfo), nullable(params.Location),
		isActive, time.Now().UTC(), vendorId); err != nil {
		return nil, fmt.Errorf("unable to update vendor: %w", err)
	}

	return s.GetVendor(ctx, vendorId)
}

// DeleteVendor removes a vendor outright when the ledger never references
// it, and deactivates it otherwise so historical SPEND entries keep a valid
// referent.
func (s *Service) DeleteVendor(ctx context.Context, vendorId string) (*store.VendorDeleteResult, error) {
	vendor, err := s.GetVendor(ctx, vendorId)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, queryCountVendorSpends, vendor.Name).Scan(&count); err != nil {
		return nil, fmt.Errorf("unable to count vendor transactions: %w", err)
	}

	if count > 0 {
		if _, err := s.db.ExecContext(ctx, queryDeactivateVendor, time.Now().UTC(), vendorId); err != nil {
			return nil, fmt.Errorf("unable to deactivate vendor: %w", err)
		}
		zap.L().Info("Vendor deactivated (referenced by ledger)",
			zap.String("id", vendorId), zap.Int64("transaction_count", count))
		return &store.VendorDeleteResult{VendorId: vendorId, TransactionCount: count, Deactivated: true}, nil
	}

	if _, err := s.db.ExecContext(ctx, queryDeleteVendor, vendorId); err != nil {
		return nil, fmt.Errorf("unable to delete vendor: %w", err)
	}
	zap.L().Info("Vendor deleted", zap.String("id", vendorId))
	return &store.VendorDeleteResult{VendorId: vendorId}, nil
}

func (s *Service) checkVendorName(ctx context.Context, name, excludeId string) error {
	var existingId string
	err := s.db.QueryRowContext(ctx, queryFindVendorByName, name, excludeId).Scan(&existingId)
	if err == nil {
		return fmt.Errorf("%w: %s", store.ErrVendorAlreadyExists, name)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("unable to check vendor name: %w", err)
	}
	return nil
}

func scanVendor(rows *sql.Rows) (*models.Vendor, error) {
	var vendor models.Vendor
	var contactInfo, location sql.NullString
	err := rows.Scan(&vendor.Id, &vendor.Name, &contactInfo, &location,
		&vendor.IsActive, &vendor.CreatedAt, &vendor.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan vendor: %w", err)
	}
	vendor.ContactInfo = contactInfo.String
	vendor.Location = location.String
	return &vendor, nil
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
