package api

import (
	"errors"
	"net/http"

	"campaign-wallet-go/internal/auth"
	"campaign-wallet-go/internal/engine"
	"campaign-wallet-go/internal/models"
	"campaign-wallet-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server owns the HTTP surface. All fund movements go through the engine;
// the store is used directly only for read models and the auxiliary
// resources (users, vendors, receipts).
type Server struct {
	engine *engine.Engine
	store  store.LedgerStore
	tokens *auth.TokenService
	cfg    models.ServerConfig
}

func NewServer(eng *engine.Engine, st store.LedgerStore, tokens *auth.TokenService, cfg models.ServerConfig) *Server {
	return &Server{
		engine: eng,
		store:  st,
		tokens: tokens,
		cfg:    cfg,
	}
}

// Handler assembles the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/db/health", s.handleHealth)
	r.Post("/auth/login", s.handleLogin)
	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/sessions", func(r chi.Router) {
			r.With(s.requireRole(models.RoleAdmin)).Post("/", s.handleCreateSession)
			r.With(s.requireRole(models.RoleTrainer)).Post("/{sessionId}/spend", s.handleSpend)
			r.With(s.requireRole(models.RoleAdmin)).Post("/{sessionId}/close", s.handleCloseSession)
			r.Get("/{sessionId}/transactions", s.handleSessionTransactions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireRole(models.RoleAdmin))
			r.Get("/transactions", s.handleLedger)
			r.Get("/summary", s.handleSummary)
			r.Get("/reconcile", s.handleReconcile)
		})

		r.Route("/api/vendors", func(r chi.Router) {
			r.Get("/", s.handleListVendors)
			r.Get("/{vendorId}", s.handleGetVendor)
			r.With(s.requireRole(models.RoleAdmin)).Post("/", s.handleCreateVendor)
			r.With(s.requireRole(models.RoleAdmin)).Put("/{vendorId}", s.handleUpdateVendor)
			r.With(s.requireRole(models.RoleAdmin)).Delete("/{vendorId}", s.handleDeleteVendor)
		})

		r.Route("/api/receipts", func(r chi.Router) {
			r.Post("/", s.handleCreateReceipt)
			r.Get("/transaction/{transactionId}", s.handleReceiptByTransaction)
			r.Get("/session/{sessionId}", s.handleSessionReceipts)
		})
	})

	return r
}

// handleHealth probes the database through the store. A wallet that has not
// been provisioned yet is still a healthy database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.GetWallet(r.Context()); err != nil && !errors.Is(err, store.ErrWalletNotProvisioned) {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "ok"})
}
