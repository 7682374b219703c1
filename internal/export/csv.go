// Package export renders an owner's transactions as CSV.
//
// The output format is fixed: header line, one row per transaction in
// occurred-on ascending order, category and note always double-quoted
// with embedded quotes doubled, amounts with exactly two decimals.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tally/internal/core"
)

// ErrNoTransactions signals the "nothing to export" condition. It is a
// user-visible outcome, not a system failure.
var ErrNoTransactions = errors.New("no transactions to export")

const (
	header = "Date,Type,Category,Amount,Note,Created At"
	// Comma-free so the unquoted Date and Created At columns stay intact.
	dateFormat = "Jan 02 2006"
)

// WriteCSV writes the export for a transaction list. Callers pass the
// list already sorted occurred-on ascending (the store's export order).
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	if len(txs) == 0 {
		return ErrNoTransactions
	}
	if _, err := io.WriteString(w, header+"\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range txs {
		row := strings.Join([]string{
			t.OccurredOn.Format(dateFormat),
			string(t.Kind),
			quote(t.Category),
			t.Amount.Format(),
			quote(t.Note),
			t.CreatedAt.Format(dateFormat),
		}, ",")
		if _, err := io.WriteString(w, row+"\n"); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}

// Filename returns a dated name for the download attachment.
func Filename(now time.Time) string {
	return "transactions-" + now.Format("2006-01-02") + ".csv"
}

// quote wraps a field in double quotes, doubling embedded quotes.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
