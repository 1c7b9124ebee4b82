package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"monetra/internal/core"
)

// handleTransactions serves the collection endpoint: list, create, and bulk
// delete.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodDelete:
		s.deleteTransactions(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		writeJSON(w, http.StatusOK, s.ledger.Recent(limit))
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.All())
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx.Title = sanitizeInput(tx.Title)
	tx.Category = sanitizeInput(tx.Category)
	tx.Note = sanitizeInput(tx.Note)

	created, err := s.ledger.Add(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create transaction failed", "error", err, "title", tx.Title)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) deleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	if !s.ledger.DeleteMultiple(r.Context(), req.IDs) {
		writeError(w, http.StatusInternalServerError, "bulk delete failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deleted": len(req.IDs)})
}

// handleTransactionByID serves update and delete on a single transaction.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/api/transactions/")
	if id == "" {
		writeError(w, http.StatusNotFound, "missing transaction id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.updateTransaction(w, r, id)
	case http.MethodDelete:
		s.deleteTransaction(w, r, id)
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var patch core.TransactionPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := patch.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if !s.ledger.Update(r.Context(), id, patch) {
		writeError(w, http.StatusNotFound, "transaction not found or update failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	if !s.ledger.Delete(r.Context(), id) {
		writeError(w, http.StatusNotFound, "transaction not found or delete failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleImport bulk-upserts external records and reloads the cache.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var records []core.Transaction
	if err := decodeJSON(r, &records); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusBadRequest, "no records to import")
		return
	}

	if err := s.ledger.Import(r.Context(), records); err != nil {
		slog.ErrorContext(r.Context(), "Import failed", "error", err, "count", len(records))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"imported": len(records)})
}
