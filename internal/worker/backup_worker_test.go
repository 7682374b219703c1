package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

type fakeAppender struct {
	mu       sync.Mutex
	appended []core.Transaction
	fail     bool
}

func (f *fakeAppender) Append(_ context.Context, tx core.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("sheets unavailable")
	}
	f.appended = append(f.appended, tx)
	return "Transactions!A2:G2", nil
}

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTransaction(t *testing.T, repo *storage.Repository, owner string) core.Transaction {
	t.Helper()
	tx := core.Transaction{
		Owner:      owner,
		Kind:       core.Expense,
		Category:   "Groceries",
		Amount:     core.Money{Cents: 4200},
		OccurredOn: core.NewDate(2024, 3, 10),
	}
	created, err := repo.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return created
}

func TestHandleBackupMessage(t *testing.T) {
	repo := newTestRepo(t)
	appender := &fakeAppender{}
	w := NewBackupWorker(repo, appender, 10)
	ctx := context.Background()

	tx := seedTransaction(t, repo, "1")

	msg := amqp.NewBackupMessage(tx.ID, tx.Owner)
	if err := w.HandleBackupMessage(ctx, msg); err != nil {
		t.Fatalf("handle message: %v", err)
	}

	if len(appender.appended) != 1 {
		t.Fatalf("expected 1 appended row, got %d", len(appender.appended))
	}
	if appender.appended[0].Category != "Groceries" {
		t.Fatalf("unexpected appended transaction: %+v", appender.appended[0])
	}

	pending, err := repo.PendingBackups(ctx, 10)
	if err != nil {
		t.Fatalf("pending backups: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending backups after handling, got %d", len(pending))
	}
}

func TestHandleBackupMessageAppendFailure(t *testing.T) {
	repo := newTestRepo(t)
	appender := &fakeAppender{fail: true}
	w := NewBackupWorker(repo, appender, 10)
	ctx := context.Background()

	tx := seedTransaction(t, repo, "1")

	msg := amqp.NewBackupMessage(tx.ID, tx.Owner)
	if err := w.HandleBackupMessage(ctx, msg); err == nil {
		t.Fatalf("expected error when appender fails")
	}

	// The row is marked as error so the sweep does not loop on it.
	pending, err := repo.PendingBackups(ctx, 10)
	if err != nil {
		t.Fatalf("pending backups: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending backups after failure mark, got %d", len(pending))
	}
}

func TestProcessPendingDrainsBacklog(t *testing.T) {
	repo := newTestRepo(t)
	appender := &fakeAppender{}
	w := NewBackupWorker(repo, appender, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedTransaction(t, repo, "1")
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(appender.appended) != 3 {
		t.Fatalf("expected 3 appended rows, got %d", len(appender.appended))
	}

	// A second sweep has nothing left to do.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(appender.appended) != 3 {
		t.Fatalf("second sweep must not re-append, got %d rows", len(appender.appended))
	}
}

func TestStartupCheckUsesLargerBatch(t *testing.T) {
	repo := newTestRepo(t)
	appender := &fakeAppender{}
	w := NewBackupWorker(repo, appender, 2)
	ctx := context.Background()

	// More rows than one sweep batch, fewer than the startup batch.
	for i := 0; i < 5; i++ {
		seedTransaction(t, repo, "1")
	}

	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if len(appender.appended) != 5 {
		t.Fatalf("expected startup check to drain all 5 rows, got %d", len(appender.appended))
	}
}
