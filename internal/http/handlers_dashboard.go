package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/storage"
)

type dashboardResponse struct {
	Transactions     []transactionView `json:"transactions"`
	Summary          summaryView       `json:"summary"`
	MonthlyBreakdown []monthView       `json:"monthly_breakdown"`
	Categories       []string          `json:"categories"`
	Filters          dashboardFilters  `json:"filters"`
}

type dashboardFilters struct {
	Month    string `json:"month"`
	Category string `json:"category"`
}

// handleDashboard assembles the transaction list, totals, trailing
// twelve-month breakdown and category list in one response. The three
// independent queries run concurrently.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, owner string) {
	monthToken := r.URL.Query().Get("month")
	category := r.URL.Query().Get("category")

	filter, err := core.ResolveFilter(owner, monthToken, category)
	if err != nil {
		if errors.Is(err, core.ErrInvalidMonthToken) {
			respondError(w, http.StatusUnprocessableEntity, "invalid month: must be YYYY-MM or 'all'")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid filters")
		return
	}

	var (
		filtered   []core.Transaction
		window     []core.Transaction
		categories []string
	)

	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		var err error
		filtered, err = s.repo.ListTransactions(ctx, filter, storage.NewestFirst)
		return err
	})

	g.Go(func() error {
		var err error
		window, err = s.repo.ListSince(ctx, owner, core.WindowStart(time.Now()))
		return err
	})

	g.Go(func() error {
		var err error
		categories, err = s.repo.Categories(ctx, owner)
		return err
	})

	if err := g.Wait(); err != nil {
		slog.ErrorContext(r.Context(), "Dashboard query failed", applog.FieldError, err, applog.FieldOwner, owner)
		respondError(w, http.StatusInternalServerError, "could not load dashboard")
		return
	}

	resp := dashboardResponse{
		Transactions:     viewsOf(filtered),
		Summary:          summaryViewOf(core.Summarize(filtered)),
		MonthlyBreakdown: monthViewsOf(core.MonthlyBreakdown(window)),
		Categories:       categories,
		Filters: dashboardFilters{
			Month:    normalizeToken(monthToken),
			Category: normalizeToken(category),
		},
	}

	respondJSON(w, http.StatusOK, resp)
}

// normalizeToken echoes the applied filter back to the client, with the
// empty value rendered as "all".
func normalizeToken(v string) string {
	if v == "" {
		return "all"
	}
	return v
}
