package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/jackc/pgx/v5"
)

// FailTransaction marks an in-flight transaction failed with reason, adds it
// to the batch failure counter and finalises the batch when nothing is
// outstanding. It returns the batch status after the update.
func (r *Repository) FailTransaction(ctx context.Context, txID int64, reason string, incrementRetry bool) (model.BatchStatus, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("fail_transaction", err, start)
	}()

	const query = `
UPDATE batch_transactions
SET status         = 'failed',
    failure_reason = $2,
    retry_count    = retry_count + CASE WHEN $3 THEN 1 ELSE 0 END,
    updated_at     = now()
WHERE id = $1
  AND ` + guardInFlight + `
RETURNING batch_id`

	var status model.BatchStatus
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		var batchID int64
		if err := tx.QueryRow(ctx, query, txID, reason, incrementRetry).Scan(&batchID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("transaction %d is not in flight: %w", txID, ErrConflict)
			}
			return fmt.Errorf("fail transaction %d: %w", txID, err)
		}

		var err error
		status, err = applyCounters(ctx, tx, batchID, counterDelta{failed: 1, gasSpent: "0"})
		return err
	})
	if err != nil {
		return "", err
	}
	return status, nil
}
