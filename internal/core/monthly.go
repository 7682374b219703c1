package core

import (
	"fmt"
	"sort"
	"time"
)

// MonthEntry is one month of the dashboard breakdown. Key is the canonical
// zero-padded YYYY-MM string callers use to correlate list entries with
// chart points; ParseMonthKey round-trips it.
type MonthEntry struct {
	Year    int
	Month   int // 1-12
	Label   string
	Key     string
	Income  Money
	Expense Money
	Net     Money
}

// WindowStart returns the first calendar day of the month 11 months before
// now's month, so the trailing window spans exactly 12 calendar months
// including the current one.
func WindowStart(now time.Time) Date {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Date{Time: firstOfMonth.AddDate(0, -11, 0)}
}

// MonthKey formats (year, month) as the canonical YYYY-MM string.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseMonthKey parses a strict YYYY-MM token back into (year, month).
// Malformed or out-of-range tokens yield ErrInvalidMonthToken.
func ParseMonthKey(key string) (year, month int, err error) {
	t, perr := time.Parse("2006-01", key)
	if perr != nil || len(key) != 7 {
		return 0, 0, ErrInvalidMonthToken
	}
	return t.Year(), int(t.Month()), nil
}

// MonthlyBreakdown groups transactions by (year, month) of OccurredOn,
// sums income and expense per group, and returns one formatted entry per
// month with activity, ordered ascending by time. Months without
// transactions are not synthesized. The input is never mutated and the
// result is deterministic for a given input.
func MonthlyBreakdown(txs []Transaction) []MonthEntry {
	type bucket struct {
		income  int64
		expense int64
	}
	groups := make(map[string]bucket)
	for _, t := range txs {
		key := MonthKey(t.OccurredOn.Year(), int(t.OccurredOn.Month()))
		b := groups[key]
		switch t.Kind {
		case Income:
			b.income += t.Amount.Cents
		case Expense:
			b.expense += t.Amount.Cents
		}
		groups[key] = b
	}

	entries := make([]MonthEntry, 0, len(groups))
	for key, b := range groups {
		year, month, err := ParseMonthKey(key)
		if err != nil {
			continue // unreachable: keys come from MonthKey
		}
		entries = append(entries, MonthEntry{
			Year:    year,
			Month:   month,
			Label:   time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006"),
			Key:     key,
			Income:  Money{Cents: b.income},
			Expense: Money{Cents: b.expense},
			Net:     Money{Cents: b.income - b.expense},
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}
