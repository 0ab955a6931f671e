package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"

	"github.com/go-chi/chi/v5"

	"go.uber.org/zap"
)

// handleCreateReceipt attaches a document to a SPEND ledger entry. Trainers
// may only attach receipts to their own session's spends.
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	var req models.CreateReceiptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fileUrl := strings.TrimSpace(req.FileUrl)
	if req.TransactionId <= 0 || fileUrl == "" {
		writeError(w, http.StatusBadRequest, "transaction_id and file_url are required")
		return
	}

	entry, err := s.store.GetLedgerEntry(r.Context(), req.TransactionId)
	if err != nil {
		if errors.Is(err, store.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		zap.L().Error("Failed to load transaction", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create receipt")
		return
	}
	if entry.Type != models.EntryTypeSpend {
		writeError(w, http.StatusBadRequest, "Receipts can only be attached to spend transactions")
		return
	}
	if !principal.IsAdmin() {
		session, err := s.store.GetSession(r.Context(), entry.SessionId)
		if err != nil {
			zap.L().Error("Failed to load session for receipt", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to create receipt")
			return
		}
		if session.FacilitatorId != principal.UserId {
			writeError(w, http.StatusForbidden, "Forbidden: not your transaction")
			return
		}
	}

	receipt, err := s.store.CreateReceipt(r.Context(), req.TransactionId, fileUrl)
	if err != nil {
		if errors.Is(err, store.ErrReceiptAlreadyExists) {
			writeError(w, http.StatusConflict, "Receipt already exists for this transaction")
			return
		}
		zap.L().Error("Failed to create receipt", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create receipt")
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// handleReceiptByTransaction looks up the receipt for one spend. A receipt
// the caller is not allowed to see answers the same as a missing one.
func (s *Server) handleReceiptByTransaction(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	transactionId, err := strconv.ParseInt(chi.URLParam(r, "transactionId"), 10, 64)
	if err != nil || transactionId <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	detail, err := s.store.GetReceiptByTransaction(r.Context(), transactionId)
	if err != nil {
		if errors.Is(err, store.ErrReceiptNotFound) {
			writeError(w, http.StatusNotFound, "Receipt not found or you are not authorized")
			return
		}
		zap.L().Error("Failed to load receipt", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load receipt")
		return
	}
	if !principal.IsAdmin() && detail.FacilitatorId != principal.UserId {
		writeError(w, http.StatusNotFound, "Receipt not found or you are not authorized")
		return
	}
	writeJSON(w, http.StatusOK, receiptRecord(detail))
}

func (s *Server) handleSessionReceipts(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	sessionId := chi.URLParam(r, "sessionId")

	session, err := s.engine.GetSession(r.Context(), sessionId)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !principal.IsAdmin() && session.FacilitatorId != principal.UserId {
		writeError(w, http.StatusForbidden, "Forbidden: not your session")
		return
	}

	details, err := s.store.ListSessionReceipts(r.Context(), sessionId)
	if err != nil {
		zap.L().Error("Failed to list receipts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list receipts")
		return
	}
	records := make([]models.ReceiptRecord, 0, len(details))
	for i := range details {
		records = append(records, receiptRecord(&details[i]))
	}
	writeJSON(w, http.StatusOK, records)
}

func receiptRecord(detail *store.ReceiptDetail) models.ReceiptRecord {
	return models.ReceiptRecord{
		Id:            detail.Receipt.Id,
		TransactionId: detail.Receipt.TransactionId,
		SessionId:     detail.SessionId,
		Vendor:        detail.VendorName,
		Amount:        detail.Amount,
		FileUrl:       detail.Receipt.FileUrl,
		UploadedAt:    detail.Receipt.UploadedAt,
	}
}
