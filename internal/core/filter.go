package core

import (
	"fmt"
	"strings"
	"time"
)

// Filter is the predicate a dashboard or export query runs under. The
// owner is always set; From/To and Category are zero-valued when
// unconstrained.
type Filter struct {
	Owner    string
	From     Date
	To       Date
	Category string
}

// HasDateRange reports whether the filter constrains OccurredOn.
func (f Filter) HasDateRange() bool {
	return !f.From.IsZero()
}

// ResolveFilter translates raw query inputs into a Filter. A month token
// of "" or "all" means no date constraint; otherwise it must be a strict
// YYYY-MM value and the range covers that whole calendar month inclusive.
// A malformed token is rejected with ErrInvalidMonthToken instead of being
// silently widened to "all". Category "" or "all" means no category
// constraint. Pure; no side effects.
func ResolveFilter(owner, monthToken, category string) (Filter, error) {
	f := Filter{Owner: owner}

	monthToken = strings.TrimSpace(monthToken)
	if monthToken != "" && monthToken != "all" {
		year, month, err := ParseMonthKey(monthToken)
		if err != nil {
			return Filter{}, fmt.Errorf("month %q: %w", monthToken, ErrInvalidMonthToken)
		}
		f.From = NewDate(year, month, 1)
		// Day zero of the next month is the last day of this one.
		f.To = Date{Time: time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)}
	}

	category = strings.TrimSpace(category)
	if category != "" && category != "all" {
		f.Category = category
	}
	return f, nil
}
