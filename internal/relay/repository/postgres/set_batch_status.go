package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// SetBatchStatus moves a batch from one status to another. It returns
// ErrConflict when the batch is no longer in from. A non-empty reason is
// stored as the batch last error.
func (r *Repository) SetBatchStatus(ctx context.Context, batchID int64, from, to model.BatchStatus, reason string) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("set_batch_status", err, start)
	}()

	if _, err = from.Transition(to); err != nil {
		return err
	}

	const query = `
UPDATE batches
SET status       = $3,
    last_error   = CASE WHEN $4 = '' THEN last_error ELSE $4 END,
    completed_at = CASE WHEN $5 THEN now() ELSE completed_at END,
    updated_at   = now()
WHERE id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query, batchID, string(from), string(to), reason, to.Terminal())
	if err != nil {
		return fmt.Errorf("update batch %d status: %w", batchID, err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("batch %d is not %s: %w", batchID, from, ErrConflict)
		return err
	}
	return nil
}
