package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// Sort order for transaction listings.
type Order int

const (
	// NewestFirst orders by occurred_on desc, ties broken by created_at desc.
	NewestFirst Order = iota
	// OldestFirst orders by occurred_on asc, used for exports.
	OldestFirst
)

var (
	// ErrNotFound marks a lookup or owner-scoped mutation that matched no
	// row. Callers treat it as an expected outcome, not a server failure.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken marks a registration attempt with an email already in use.
	ErrEmailTaken = errors.New("email already registered")
)

// timeFormat is how created_at values are stored; lexicographic order
// matches chronological order.
const timeFormat = time.RFC3339Nano

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateTransaction persists a new transaction, assigning ID and CreatedAt.
// The row starts with backup_status 'pending' for the backup worker.
func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (owner, kind, category, amount_cents, note, occurred_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Owner, string(t.Kind), t.Category, t.Amount.Cents, t.Note,
		t.OccurredOn.String(), t.CreatedAt.Format(timeFormat))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"kind", t.Kind,
		"category", t.Category,
		"amount_cents", t.Amount.Cents)

	return t, nil
}

// UpdateTransaction rewrites the mutable fields of an owned transaction.
// Owner and CreatedAt are never changed. The row goes back to backup_status
// 'pending' so the edited version gets mirrored. Returns ErrNotFound when
// no row matches owner+id.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET kind = ?, category = ?, amount_cents = ?, note = ?, occurred_on = ?,
		    backup_status = 'pending'
		WHERE id = ? AND owner = ?`,
		string(t.Kind), t.Category, t.Amount.Cents, t.Note, t.OccurredOn.String(),
		t.ID, t.Owner)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTransaction removes an owned transaction. Returns ErrNotFound when
// no row matches owner+id.
func (r *Repository) DeleteTransaction(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTransaction fetches a single owned transaction.
func (r *Repository) GetTransaction(ctx context.Context, owner string, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner, kind, category, amount_cents, note, occurred_on, created_at
		FROM transactions WHERE id = ? AND owner = ?`, id, owner)
	return scanTransaction(row)
}

// TransactionByID fetches a transaction regardless of owner. It exists for
// the backup worker, which processes queue messages rather than user
// requests; request-scoped code must use the owner-scoped accessors.
func (r *Repository) TransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner, kind, category, amount_cents, note, occurred_on, created_at
		FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// ListTransactions returns the transactions matching the filter in the
// requested order.
func (r *Repository) ListTransactions(ctx context.Context, f core.Filter, order Order) ([]core.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, owner, kind, category, amount_cents, note, occurred_on, created_at
		FROM transactions WHERE owner = ?`)
	args := []any{f.Owner}

	if f.HasDateRange() {
		sb.WriteString(` AND occurred_on BETWEEN ? AND ?`)
		args = append(args, f.From.String(), f.To.String())
	}
	if f.Category != "" {
		sb.WriteString(` AND category = ?`)
		args = append(args, f.Category)
	}
	switch order {
	case OldestFirst:
		sb.WriteString(` ORDER BY occurred_on ASC, created_at ASC`)
	default:
		sb.WriteString(` ORDER BY occurred_on DESC, created_at DESC`)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListSince returns all of an owner's transactions with occurred_on on or
// after since, in no particular order. It feeds the monthly aggregator.
func (r *Repository) ListSince(ctx context.Context, owner string, since core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, kind, category, amount_cents, note, occurred_on, created_at
		FROM transactions WHERE owner = ? AND occurred_on >= ?`,
		owner, since.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions since %s: %w", since, err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// Categories returns the distinct categories an owner has used, sorted.
func (r *Repository) Categories(ctx context.Context, owner string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM transactions WHERE owner = ? ORDER BY category`, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	// Non-nil even when empty so the JSON response renders [] rather
	// than null.
	cats := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		kind       string
		occurredOn string
		createdAt  string
	)
	err := row.Scan(&t.ID, &t.Owner, &kind, &t.Category, &t.Amount.Cents,
		&t.Note, &occurredOn, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Kind = core.Kind(kind)
	if t.OccurredOn, err = core.ParseDate(occurredOn); err != nil {
		return core.Transaction{}, fmt.Errorf("parse occurred_on %q: %w", occurredOn, err)
	}
	if t.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
