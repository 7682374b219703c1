package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tally/internal/core"
	applog "tally/internal/log"
)

// respondJSON writes v as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

// respondError writes a JSON error body with the given status code.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// transactionView is the JSON shape of a transaction.
type transactionView struct {
	ID         int64  `json:"id"`
	Kind       string `json:"kind"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	Note       string `json:"note"`
	OccurredOn string `json:"occurred_on"`
	CreatedAt  string `json:"created_at"`
}

func viewOf(t core.Transaction) transactionView {
	return transactionView{
		ID:         t.ID,
		Kind:       string(t.Kind),
		Category:   t.Category,
		Amount:     t.Amount.Format(),
		Note:       t.Note,
		OccurredOn: t.OccurredOn.String(),
		CreatedAt:  t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func viewsOf(txs []core.Transaction) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		views = append(views, viewOf(t))
	}
	return views
}

// summaryView is the JSON shape of income, expense and net totals.
type summaryView struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

func summaryViewOf(s core.Summary) summaryView {
	return summaryView{
		Income:  s.Income.Format(),
		Expense: s.Expense.Format(),
		Net:     s.Net.Format(),
	}
}

// monthView is the JSON shape of one month in the trailing breakdown.
type monthView struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

func monthViewsOf(entries []core.MonthEntry) []monthView {
	views := make([]monthView, 0, len(entries))
	for _, e := range entries {
		views = append(views, monthView{
			Key:     e.Key,
			Label:   e.Label,
			Income:  e.Income.Format(),
			Expense: e.Expense.Format(),
			Net:     e.Net.Format(),
		})
	}
	return views
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
