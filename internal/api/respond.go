package api

import (
	"encoding/json"
	"net/http"

	"campaign-wallet-go/internal/engine"
	"campaign-wallet-go/internal/models"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

// decodeJSON decodes the request body into v, writing the 400 itself on
// malformed input. Returns false when the request has already been answered.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

func writeErrorDetails(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, models.ErrorResponse{Error: message, Details: details})
}

// writeEngineError maps the engine's failure taxonomy onto HTTP statuses.
// Each named condition keeps its own distinguishable response.
func writeEngineError(w http.ResponseWriter, err error) {
	reason := engine.Reason(err)
	switch engine.KindOf(err) {
	case engine.KindValidation, engine.KindInsufficientFunds, engine.KindOverspend:
		writeError(w, http.StatusBadRequest, reason)
	case engine.KindNotFound:
		writeError(w, http.StatusNotFound, reason)
	case engine.KindForbidden, engine.KindSessionClosed:
		writeError(w, http.StatusForbidden, reason)
	case engine.KindTransient:
		writeError(w, http.StatusServiceUnavailable, reason)
	case engine.KindNotProvisioned:
		zap.L().Error("Wallet not provisioned", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Wallet not initialized")
	default:
		zap.L().Error("Operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Operation failed")
	}
}
