package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/storage"
)

type transactionRequest struct {
	Kind       string `json:"kind"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	Note       string `json:"note"`
	OccurredOn string `json:"occurred_on"`
}

// parseTransaction turns a request body into a validated core transaction.
func parseTransaction(req transactionRequest, owner string) (core.Transaction, string) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, "invalid amount: must be a positive decimal"
	}

	occurredOn, err := core.ParseDate(req.OccurredOn)
	if err != nil {
		return core.Transaction{}, "invalid occurred_on: must be a valid YYYY-MM-DD date"
	}

	tx := core.Transaction{
		Owner:      owner,
		Kind:       core.Kind(req.Kind),
		Category:   sanitizeInput(req.Category),
		Amount:     core.Money{Cents: cents},
		Note:       sanitizeInput(req.Note),
		OccurredOn: occurredOn,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err.Error()
	}

	return tx, ""
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, problem := parseTransaction(req, owner)
	if problem != "" {
		respondError(w, http.StatusUnprocessableEntity, problem)
		return
	}

	created, err := s.repo.CreateTransaction(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction creation failed", applog.FieldError, err)
		respondError(w, http.StatusInternalServerError, "could not save transaction")
		return
	}

	s.publishBackup(r, created.ID, owner)

	respondJSON(w, http.StatusCreated, viewOf(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, problem := parseTransaction(req, owner)
	if problem != "" {
		respondError(w, http.StatusUnprocessableEntity, problem)
		return
	}
	tx.ID = id

	if err := s.repo.UpdateTransaction(r.Context(), tx); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Transaction update failed", applog.FieldError, err, applog.FieldTxID, id)
		respondError(w, http.StatusInternalServerError, "could not update transaction")
		return
	}

	updated, err := s.repo.GetTransaction(r.Context(), owner, id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction reload failed", applog.FieldError, err, applog.FieldTxID, id)
		respondError(w, http.StatusInternalServerError, "could not update transaction")
		return
	}

	s.publishBackup(r, id, owner)

	respondJSON(w, http.StatusOK, viewOf(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, owner string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.repo.DeleteTransaction(r.Context(), owner, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Transaction delete failed", applog.FieldError, err, applog.FieldTxID, id)
		respondError(w, http.StatusInternalServerError, "could not delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// publishBackup enqueues the transaction for the backup worker. Failures
// are logged, not surfaced; the periodic sweep picks up what the queue
// misses.
func (s *Server) publishBackup(r *http.Request, id int64, owner string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBackup(r.Context(), id, owner); err != nil {
		slog.ErrorContext(r.Context(), "Backup publish failed", applog.FieldError, err, applog.FieldTxID, id)
	}
}

// pathID parses the {id} path segment, responding 404 when malformed.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		respondError(w, http.StatusNotFound, "transaction not found")
		return 0, false
	}
	return id, true
}
