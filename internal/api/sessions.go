package api

import (
	"net/http"
	"strings"

	"campaign-wallet-go/internal/engine"
	"campaign-wallet-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := s.engine.Reserve(r.Context(), engine.ReserveRequest{
		FacilitatorId: strings.TrimSpace(req.FacilitatorId),
		Allocated:     req.Allocated.String(),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{Id: session.Id})
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	var req models.SpendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := s.engine.Spend(r.Context(), engine.SpendRequest{
		SessionId: chi.URLParam(r, "sessionId"),
		ActorId:   principal.UserId,
		Amount:    req.Amount.String(),
		Vendor:    strings.TrimSpace(req.Vendor),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.SpendResponse{
		Message: "Transaction recorded",
		Spent:   session.Spent,
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Close(r.Context(), engine.CloseRequest{
		SessionId: chi.URLParam(r, "sessionId"),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if result.AlreadyClosed {
		writeJSON(w, http.StatusOK, models.CloseSessionResponse{
			Message: "Session already closed",
			Status:  models.SessionCompleted,
		})
		return
	}
	writeJSON(w, http.StatusOK, models.CloseSessionResponse{
		Message: "Session closed",
		Status:  models.SessionCompleted,
		Wallet: &models.WalletSnapshot{
			Available: result.Wallet.Available,
			Reserved:  result.Wallet.Reserved,
		},
	})
}

// handleSessionTransactions lists one session's ledger slice. Trainers only
// see their own sessions; admins see all.
func (s *Server) handleSessionTransactions(w http.ResponseWriter, r *http.Request) {
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

	entries, err := s.engine.ListLedger(r.Context(), sessionId)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgerRecords(entries))
}

func ledgerRecords(entries []models.LedgerEntry) []models.LedgerEntryRecord {
	records := make([]models.LedgerEntryRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, models.LedgerEntryRecord{
			Id:        entry.Id,
			SessionId: entry.SessionId,
			Type:      entry.Type,
			Direction: entry.Direction,
			Amount:    entry.Amount,
			Vendor:    entry.Vendor,
			CreatedAt: entry.CreatedAt,
		})
	}
	return records
}
