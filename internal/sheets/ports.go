package sheets

import (
	"context"

	"tally/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionAppender mirrors one transaction to the backup
	// spreadsheet and returns a reference to the appended row.
	TransactionAppender interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)
