package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreate(t *testing.T, repo *Repository, tx core.Transaction) core.Transaction {
	t.Helper()
	created, err := repo.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return created
}

func TestTransactionCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := mustCreate(t, repo, core.Transaction{
		Owner:      "u1",
		Kind:       core.Expense,
		Category:   "Groceries",
		Amount:     core.Money{Cents: 1250},
		Note:       "weekly shop",
		OccurredOn: core.NewDate(2024, 1, 15),
	})
	if created.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("expected assigned created_at")
	}

	got, err := repo.GetTransaction(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != "Groceries" || got.Amount.Cents != 1250 || got.OccurredOn.String() != "2024-01-15" {
		t.Fatalf("unexpected row: %+v", got)
	}

	got.Category = "Food"
	got.Amount = core.Money{Cents: 1300}
	if err := repo.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, err := repo.GetTransaction(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if updated.Category != "Food" || updated.Amount.Cents != 1300 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at must be immutable: %v vs %v", updated.CreatedAt, created.CreatedAt)
	}

	if err := repo.DeleteTransaction(ctx, "u1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, "u1", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mine := mustCreate(t, repo, core.Transaction{
		Owner: "alice", Kind: core.Income, Category: "Salary",
		Amount: core.Money{Cents: 500000}, OccurredOn: core.NewDate(2024, 1, 1),
	})

	// No read, update or delete through another owner's scope.
	if _, err := repo.GetTransaction(ctx, "bob", mine.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	stolen := mine
	stolen.Owner = "bob"
	stolen.Category = "Hacked"
	if err := repo.UpdateTransaction(ctx, stolen); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "bob", mine.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}

	f, _ := core.ResolveFilter("bob", "all", "all")
	txs, err := repo.ListTransactions(ctx, f, NewestFirst)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("bob sees alice's transactions: %+v", txs)
	}
	since, err := repo.ListSince(ctx, "bob", core.NewDate(2000, 1, 1))
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(since) != 0 {
		t.Fatalf("bob aggregates alice's transactions: %+v", since)
	}
}

func TestListOrderAndFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	jan15 := mustCreate(t, repo, core.Transaction{
		Owner: "u1", Kind: core.Income, Category: "Salary",
		Amount: core.Money{Cents: 50000}, OccurredOn: core.NewDate(2024, 1, 15),
	})
	jan20 := mustCreate(t, repo, core.Transaction{
		Owner: "u1", Kind: core.Expense, Category: "Rent",
		Amount: core.Money{Cents: 20000}, OccurredOn: core.NewDate(2024, 1, 20),
	})
	feb1 := mustCreate(t, repo, core.Transaction{
		Owner: "u1", Kind: core.Expense, Category: "Groceries",
		Amount: core.Money{Cents: 5000}, OccurredOn: core.NewDate(2024, 2, 1),
	})

	all, _ := core.ResolveFilter("u1", "all", "all")
	newest, err := repo.ListTransactions(ctx, all, NewestFirst)
	if err != nil {
		t.Fatalf("list newest: %v", err)
	}
	if len(newest) != 3 || newest[0].ID != feb1.ID || newest[1].ID != jan20.ID || newest[2].ID != jan15.ID {
		t.Fatalf("unexpected newest-first order: %+v", newest)
	}

	oldest, err := repo.ListTransactions(ctx, all, OldestFirst)
	if err != nil {
		t.Fatalf("list oldest: %v", err)
	}
	if oldest[0].ID != jan15.ID || oldest[2].ID != feb1.ID {
		t.Fatalf("unexpected oldest-first order: %+v", oldest)
	}

	january, _ := core.ResolveFilter("u1", "2024-01", "all")
	janTxs, err := repo.ListTransactions(ctx, january, NewestFirst)
	if err != nil {
		t.Fatalf("list january: %v", err)
	}
	if len(janTxs) != 2 {
		t.Fatalf("expected 2 january rows, got %d", len(janTxs))
	}
	s := core.Summarize(janTxs)
	if s.Income.Cents != 50000 || s.Expense.Cents != 20000 || s.Net.Cents != 30000 {
		t.Fatalf("january summary wrong: %+v", s)
	}

	rentOnly, _ := core.ResolveFilter("u1", "all", "Rent")
	rentTxs, err := repo.ListTransactions(ctx, rentOnly, NewestFirst)
	if err != nil {
		t.Fatalf("list rent: %v", err)
	}
	if len(rentTxs) != 1 || rentTxs[0].ID != jan20.ID {
		t.Fatalf("unexpected category filter result: %+v", rentTxs)
	}

	cats, err := repo.Categories(ctx, "u1")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	want := []string{"Groceries", "Rent", "Salary"}
	if len(cats) != len(want) {
		t.Fatalf("expected %v, got %v", want, cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cats)
		}
	}
}

func TestCategoriesEmptyForNewOwner(t *testing.T) {
	repo := newTestRepo(t)

	cats, err := repo.Categories(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if cats == nil {
		t.Fatalf("expected an empty slice, got nil")
	}
	if len(cats) != 0 {
		t.Fatalf("expected no categories, got %v", cats)
	}
}

func TestSameDayTieBreaksByCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	day := core.NewDate(2024, 3, 10)
	first := mustCreate(t, repo, core.Transaction{
		Owner: "u1", Kind: core.Expense, Category: "Coffee",
		Amount: core.Money{Cents: 300}, OccurredOn: day,
	})
	time.Sleep(2 * time.Millisecond) // distinct created_at
	second := mustCreate(t, repo, core.Transaction{
		Owner: "u1", Kind: core.Expense, Category: "Lunch",
		Amount: core.Money{Cents: 1200}, OccurredOn: day,
	})

	f, _ := core.ResolveFilter("u1", "all", "all")
	txs, err := repo.ListTransactions(ctx, f, NewestFirst)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if txs[0].ID != second.ID || txs[1].ID != first.ID {
		t.Fatalf("expected created_at desc tie break, got %+v", txs)
	}
}

func TestUsersAndSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateUser(ctx, "Alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := repo.CreateUser(ctx, "Other", "alice@example.com", "hash2"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	u, err := repo.UserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("user by email: %v", err)
	}
	if u.ID != id || u.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if _, err := repo.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Now()
	if err := repo.CreateSession(ctx, "tok1", id, now.Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := repo.SessionUserID(ctx, "tok1", now)
	if err != nil || got != id {
		t.Fatalf("resolve session: got (%d, %v)", got, err)
	}

	// Expired token resolves to nothing.
	if _, err := repo.SessionUserID(ctx, "tok1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired session, got %v", err)
	}

	if err := repo.DeleteSession(ctx, "tok1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := repo.SessionUserID(ctx, "tok1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after logout, got %v", err)
	}

	if err := repo.CreateSession(ctx, "tok2", id, now.Add(-time.Minute)); err != nil {
		t.Fatalf("create expired session: %v", err)
	}
	n, err := repo.PurgeExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged session, got %d", n)
	}
}

func TestBackupQueue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx := mustCreate(t, repo, core.Transaction{
		Owner: "u1", Kind: core.Expense, Category: "Rent",
		Amount: core.Money{Cents: 90000}, OccurredOn: core.NewDate(2024, 4, 1),
	})

	pending, err := repo.PendingBackups(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != tx.ID || pending[0].Owner != "u1" {
		t.Fatalf("unexpected pending set: %+v", pending)
	}

	if err := repo.MarkBackedUp(ctx, tx.ID); err != nil {
		t.Fatalf("mark backed up: %v", err)
	}
	pending, err = repo.PendingBackups(ctx, 10)
	if err != nil {
		t.Fatalf("pending after mark: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty pending set, got %+v", pending)
	}

	if err := repo.MarkBackupError(ctx, tx.ID); err != nil {
		t.Fatalf("mark backup error: %v", err)
	}

	// Editing a row queues it for backup again.
	tx.Amount = core.Money{Cents: 95000}
	if err := repo.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, err = repo.PendingBackups(ctx, 10)
	if err != nil {
		t.Fatalf("pending after update: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != tx.ID {
		t.Fatalf("expected updated row back in pending set, got %+v", pending)
	}
}
