package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/jackc/pgx/v5"
)

// ReconcileBatchCounts recomputes the batch counters from its transaction rows
// and repairs them on drift. A repaired batch with nothing outstanding is
// finalised the same way a settlement would.
func (r *Repository) ReconcileBatchCounts(ctx context.Context, batchID int64) (model.Reconciliation, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("reconcile_batch_counts", err, start)
	}()

	const (
		lockQuery = `
SELECT` + batchColumns + `
FROM batches b
WHERE b.id = $1
FOR UPDATE`
		countQuery = `
SELECT count(*),
       count(*) FILTER (WHERE status = 'completed'),
       count(*) FILTER (WHERE status = 'failed')
FROM batch_transactions
WHERE batch_id = $1`
		repairQuery = `
UPDATE batches
SET total_transactions  = $2,
    sent_transactions   = $3,
    failed_transactions = $4,
    status              = CASE
        WHEN status IN ('processing', 'paused') AND $2 > 0 AND $3 + $4 = $2
        THEN CASE WHEN $4 > 0 THEN 'completed_with_failures' ELSE 'completed' END
        ELSE status
    END,
    completed_at        = CASE
        WHEN status IN ('processing', 'paused') AND $2 > 0 AND $3 + $4 = $2
        THEN now()
        ELSE completed_at
    END,
    updated_at          = now()
WHERE id = $1
RETURNING status`
	)

	rec := model.Reconciliation{BatchID: batchID}
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		batch, err := scanBatch(tx.QueryRow(ctx, lockQuery, batchID))
		if err != nil {
			return fmt.Errorf("lock batch %d: %w", batchID, notFound(err))
		}
		rec.Status = batch.Status
		rec.Stored = model.BatchCounts{
			Total:     batch.TotalTransactions,
			Completed: batch.SentTransactions,
			Failed:    batch.FailedTransactions,
		}

		if err := tx.QueryRow(ctx, countQuery, batchID).Scan(&rec.Actual.Total, &rec.Actual.Completed, &rec.Actual.Failed); err != nil {
			return fmt.Errorf("count transactions of batch %d: %w", batchID, err)
		}
		if rec.Actual.Matches(batch) {
			return nil
		}

		var status string
		if err := tx.QueryRow(ctx, repairQuery, batchID, rec.Actual.Total, rec.Actual.Completed, rec.Actual.Failed).Scan(&status); err != nil {
			return fmt.Errorf("repair counters of batch %d: %w", batchID, err)
		}
		rec.Status = model.BatchStatus(status)
		rec.Repaired = true
		return nil
	})
	if err != nil {
		return model.Reconciliation{}, err
	}
	return rec, nil
}
