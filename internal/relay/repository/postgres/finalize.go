package postgres

import (
	"context"
	"fmt"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/jackc/pgx/v5"
)

// countersQuery bumps batch counters and, when the last outstanding
// transaction settles, moves a processing or paused batch to its terminal
// status in the same statement.
const countersQuery = `
UPDATE batches
SET sent_transactions   = sent_transactions + $2,
    failed_transactions = failed_transactions + $3,
    gas_used            = gas_used + $4,
    gas_spent_wei       = gas_spent_wei + $5::numeric,
    status              = CASE
        WHEN status IN ('processing', 'paused')
         AND sent_transactions + $2 + failed_transactions + $3 = total_transactions
        THEN CASE WHEN failed_transactions + $3 > 0 THEN 'completed_with_failures' ELSE 'completed' END
        ELSE status
    END,
    completed_at        = CASE
        WHEN status IN ('processing', 'paused')
         AND sent_transactions + $2 + failed_transactions + $3 = total_transactions
        THEN now()
        ELSE completed_at
    END,
    updated_at          = now()
WHERE id = $1
RETURNING status`

type counterDelta struct {
	completed int64
	failed    int64
	gasUsed   int64
	gasSpent  string
}

func applyCounters(ctx context.Context, tx pgx.Tx, batchID int64, d counterDelta) (model.BatchStatus, error) {
	var status string
	if err := tx.QueryRow(ctx, countersQuery, batchID, d.completed, d.failed, d.gasUsed, d.gasSpent).Scan(&status); err != nil {
		return "", fmt.Errorf("update batch %d counters: %w", batchID, notFound(err))
	}
	return model.BatchStatus(status), nil
}
