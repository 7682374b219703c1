// Package worker mirrors stored transactions to the backup spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	applog "tally/internal/log"
	"tally/internal/sheets"
	"tally/internal/storage"
)

// BackupWorker copies transactions from SQLite to the backup sheet,
// driven by AMQP messages with a periodic sweep as the safety net.
type BackupWorker struct {
	storage   *storage.Repository
	appender  sheets.TransactionAppender
	batchSize int
}

func NewBackupWorker(storage *storage.Repository, appender sheets.TransactionAppender, batchSize int) *BackupWorker {
	return &BackupWorker{
		storage:   storage,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleBackupMessage processes a single backup message from AMQP.
func (w *BackupWorker) HandleBackupMessage(ctx context.Context, msg *amqp.BackupMessage) error {
	slog.InfoContext(ctx, "Processing backup message", applog.FieldTxID, msg.ID, applog.FieldOwner, msg.Owner)

	return w.backupOne(ctx, msg.ID)
}

// ProcessPending backs up any transactions still marked pending.
// This is the recovery path for lost AMQP messages.
func (w *BackupWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingBackups(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending backups: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending backups", "count", len(pending))

	for _, p := range pending {
		if err := w.backupOne(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to back up transaction", applog.FieldTxID, p.ID, applog.FieldError, err)
		}
	}

	return nil
}

// StartupCheck drains the pending backlog once at worker startup, with a
// larger batch to recover from downtime.
func (w *BackupWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.PendingBackups(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending backups for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending backups found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending backups on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.backupOne(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to back up transaction during startup",
				applog.FieldTxID, p.ID, applog.FieldError, err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup backup check completed",
		"total", len(pending),
		"backed_up", successCount,
		"errors", errorCount)

	return nil
}

func (w *BackupWorker) backupOne(ctx context.Context, id int64) error {
	tx, err := w.storage.TransactionByID(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkBackupError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark backup error", applog.FieldTxID, id, applog.FieldError, markErr)
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.appender.Append(ctx, tx)
	if err != nil {
		if markErr := w.storage.MarkBackupError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark backup error", applog.FieldTxID, id, applog.FieldError, markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkBackedUp(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as backed up", applog.FieldTxID, id, applog.FieldError, err)
		// Don't return an error here, the append actually worked.
	}

	slog.InfoContext(ctx, "Successfully backed up transaction",
		applog.FieldTxID, id,
		applog.FieldSheetsRef, ref,
		"amount_cents", tx.Amount.Cents)

	return nil
}
