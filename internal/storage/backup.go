package storage

import (
	"context"
	"fmt"
	"log/slog"

	applog "tally/internal/log"
)

// PendingBackup identifies a transaction that has not been mirrored to the
// backup spreadsheet yet.
type PendingBackup struct {
	ID    int64
	Owner string
}

// PendingBackups returns up to limit transactions still waiting for backup,
// oldest first. It is the safety net for lost queue messages.
func (r *Repository) PendingBackups(ctx context.Context, limit int) ([]PendingBackup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner FROM transactions
		WHERE backup_status = 'pending'
		ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending backups: %w", err)
	}
	defer rows.Close()

	var pending []PendingBackup
	for rows.Next() {
		var p PendingBackup
		if err := rows.Scan(&p.ID, &p.Owner); err != nil {
			return nil, fmt.Errorf("scan pending backup: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkBackedUp records a successful mirror of a transaction.
func (r *Repository) MarkBackedUp(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET backup_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark backed up: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as backed up", applog.FieldTxID, id)
	return nil
}

// MarkBackupError records a failed mirror attempt.
func (r *Repository) MarkBackupError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET backup_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark backup error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with backup error", applog.FieldTxID, id)
	return nil
}
