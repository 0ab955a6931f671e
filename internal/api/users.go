package api

import (
	"errors"
	"net/http"
	"strings"

	"campaign-wallet-go/internal/auth"
	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"

	"go.uber.org/zap"
)

// handleLogin exchanges credentials for a bearer token. Unknown email and
// wrong password produce the same response so the endpoint does not leak
// which accounts exist.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		zap.L().Error("Failed to look up user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		zap.L().Error("Failed to issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, Role: user.Role})
}
