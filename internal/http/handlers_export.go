package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/export"
	applog "tally/internal/log"
	"tally/internal/storage"
)

// handleExport streams the owner's full history as a CSV download,
// oldest first.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, owner string) {
	txs, err := s.repo.ListTransactions(r.Context(), core.Filter{Owner: owner}, storage.OldestFirst)
	if err != nil {
		slog.ErrorContext(r.Context(), "Export query failed", applog.FieldError, err, applog.FieldOwner, owner)
		respondError(w, http.StatusInternalServerError, "could not export transactions")
		return
	}

	if len(txs) == 0 {
		respondError(w, http.StatusNotFound, "no transactions to export")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)

	if err := export.WriteCSV(w, txs); err != nil {
		if errors.Is(err, export.ErrNoTransactions) {
			// Already handled above; kept for safety if the list raced empty.
			respondError(w, http.StatusNotFound, "no transactions to export")
			return
		}
		// Headers are already out; all we can do is log.
		slog.ErrorContext(r.Context(), "CSV write failed", applog.FieldError, err, applog.FieldOwner, owner)
	}
}
