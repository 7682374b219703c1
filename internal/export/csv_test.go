package export

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tally/internal/core"
)

func TestWriteCSV(t *testing.T) {
	created := time.Date(2024, 1, 16, 9, 30, 0, 0, time.UTC)
	txs := []core.Transaction{
		{
			Kind:       core.Income,
			Category:   "Salary",
			Amount:     core.Money{Cents: 500000},
			Note:       "January pay",
			OccurredOn: core.NewDate(2024, 1, 15),
			CreatedAt:  created,
		},
		{
			Kind:       core.Expense,
			Category:   `Café "Special"`,
			Amount:     core.Money{Cents: 1250},
			OccurredOn: core.NewDate(2024, 1, 20),
			CreatedAt:  created,
		},
	}

	var sb strings.Builder
	if err := WriteCSV(&sb, txs); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	got := sb.String()

	lines := strings.Split(got, "\n")
	if lines[0] != "Date,Type,Category,Amount,Note,Created At" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != `Jan 15 2024,income,"Salary",5000.00,"January pay",Jan 16 2024` {
		t.Fatalf("unexpected row 1: %q", lines[1])
	}
	if lines[2] != `Jan 20 2024,expense,"Café ""Special""",12.50,"",Jan 16 2024` {
		t.Fatalf("unexpected row 2: %q", lines[2])
	}
	if !strings.HasSuffix(got, "\n") {
		t.Fatalf("expected trailing newline")
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var sb strings.Builder
	err := WriteCSV(&sb, nil)
	if !errors.Is(err, ErrNoTransactions) {
		t.Fatalf("expected ErrNoTransactions, got %v", err)
	}
	if sb.Len() != 0 {
		t.Fatalf("nothing should be written for an empty export, got %q", sb.String())
	}
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	if got != "transactions-2024-02-10.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}
