package api

import (
	"context"
	"net/http"
	"strings"

	"campaign-wallet-go/internal/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// authenticate verifies the bearer token and stashes the principal on the
// request context. Role checks happen downstream in requireRole or in
// handlers that enforce ownership.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeError(w, http.StatusUnauthorized, "Missing token")
			return
		}
		principal, err := s.tokens.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route to exactly one role.
func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := principalFrom(r.Context())
			if principal == nil {
				writeError(w, http.StatusUnauthorized, "Missing token")
				return
			}
			if principal.Role != role {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func principalFrom(ctx context.Context) *auth.Principal {
	principal, _ := ctx.Value(principalKey).(*auth.Principal)
	return principal
}
