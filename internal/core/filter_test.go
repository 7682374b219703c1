package core

import (
	"errors"
	"testing"
)

func TestResolveFilterAll(t *testing.T) {
	for _, month := range []string{"", "all"} {
		f, err := ResolveFilter("u1", month, "all")
		if err != nil {
			t.Fatalf("month=%q: expected ok, got %v", month, err)
		}
		if f.Owner != "u1" {
			t.Fatalf("owner not carried: %+v", f)
		}
		if f.HasDateRange() || f.Category != "" {
			t.Fatalf("expected unconstrained filter, got %+v", f)
		}
	}
}

func TestResolveFilterMonth(t *testing.T) {
	f, err := ResolveFilter("u1", "2024-03", "")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !f.HasDateRange() {
		t.Fatalf("expected date range")
	}
	if f.From.String() != "2024-03-01" || f.To.String() != "2024-03-31" {
		t.Fatalf("expected March 1-31, got %s..%s", f.From, f.To)
	}
}

func TestResolveFilterFebruaryLeapYear(t *testing.T) {
	f, err := ResolveFilter("u1", "2024-02", "")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if f.To.String() != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %s", f.To)
	}
}

func TestResolveFilterCategory(t *testing.T) {
	f, err := ResolveFilter("u1", "all", " Rent ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if f.Category != "Rent" {
		t.Fatalf("expected trimmed category, got %q", f.Category)
	}
}

func TestResolveFilterRejectsMalformedMonth(t *testing.T) {
	for _, token := range []string{"2024-13", "2024-0", "13-2024", "banana"} {
		_, err := ResolveFilter("u1", token, "")
		if !errors.Is(err, ErrInvalidMonthToken) {
			t.Fatalf("%q: expected ErrInvalidMonthToken, got %v", token, err)
		}
	}
}
