package api

import (
	"net/http"
)

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.ListLedger(r.Context(), "")
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgerRecords(entries))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summary(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	reconciliation, err := s.engine.Reconcile(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reconciliation)
}
