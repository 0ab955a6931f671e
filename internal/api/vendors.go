package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"

	"github.com/go-chi/chi/v5"

	"go.uber.org/zap"
)

func (s *Server) handleListVendors(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	vendors, err := s.store.ListVendors(r.Context(), activeOnly, search)
	if err != nil {
		zap.L().Error("Failed to list vendors", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list vendors")
		return
	}
	writeJSON(w, http.StatusOK, vendors)
}

func (s *Server) handleGetVendor(w http.ResponseWriter, r *http.Request) {
	vendor, err := s.store.GetVendor(r.Context(), chi.URLParam(r, "vendorId"))
	if err != nil {
		if errors.Is(err, store.ErrVendorNotFound) {
			writeError(w, http.StatusNotFound, "Vendor not found")
			return
		}
		zap.L().Error("Failed to load vendor", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load vendor")
		return
	}
	writeJSON(w, http.StatusOK, vendor)
}

func (s *Server) handleCreateVendor(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVendorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Vendor name is required")
		return
	}

	vendor, err := s.store.CreateVendor(r.Context(), store.VendorParams{
		Name:        name,
		ContactInfo: strings.TrimSpace(req.ContactInfo),
		Location:    strings.TrimSpace(req.Location),
		IsActive:    req.IsActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrVendorAlreadyExists) {
			writeError(w, http.StatusConflict, "Vendor with this name already exists")
			return
		}
		zap.L().Error("Failed to create vendor", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create vendor")
		return
	}
	writeJSON(w, http.StatusCreated, vendor)
}

func (s *Server) handleUpdateVendor(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVendorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vendor, err := s.store.UpdateVendor(r.Context(), chi.URLParam(r, "vendorId"), store.VendorParams{
		Name:        strings.TrimSpace(req.Name),
		ContactInfo: req.ContactInfo,
		Location:    req.Location,
		IsActive:    req.IsActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrVendorNotFound):
			writeError(w, http.StatusNotFound, "Vendor not found")
		case errors.Is(err, store.ErrVendorAlreadyExists):
			writeError(w, http.StatusConflict, "Vendor with this name already exists")
		default:
			zap.L().Error("Failed to update vendor", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to update vendor")
		}
		return
	}
	writeJSON(w, http.StatusOK, vendor)
}

// handleDeleteVendor removes a vendor. Vendors referenced by recorded spends
// are deactivated instead so the ledger keeps resolving their name.
func (s *Server) handleDeleteVendor(w http.ResponseWriter, r *http.Request) {
	result, err := s.store.DeleteVendor(r.Context(), chi.URLParam(r, "vendorId"))
	if err != nil {
		if errors.Is(err, store.ErrVendorNotFound) {
			writeError(w, http.StatusNotFound, "Vendor not found")
			return
		}
		zap.L().Error("Failed to delete vendor", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete vendor")
		return
	}

	if result.Deactivated {
		writeJSON(w, http.StatusOK, models.MessageResponse{
			Message: fmt.Sprintf("Vendor has %d transactions and was deactivated instead of deleted", result.TransactionCount),
		})
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Vendor deleted"})
}
