package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// RunnableBatches returns batches the engine has work for: new batches,
// processing batches and terminal batches that still hold undrained relayers.
func (r *Repository) RunnableBatches(ctx context.Context, limit int) ([]model.Batch, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("runnable_batches", err, start)
	}()

	const query = `
SELECT` + batchColumns + `
FROM batches b
WHERE b.status IN ('created', 'processing')
   OR (b.status IN ('completed', 'completed_with_failures', 'setup_failed', 'abandoned')
       AND EXISTS (SELECT 1 FROM relayers r WHERE r.batch_id = b.id AND r.status IN ('active', 'failed')))
ORDER BY b.id
LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runnable batches: %w", err)
	}
	batches, err := collect(rows, scanBatch)
	if err != nil {
		return nil, fmt.Errorf("scan runnable batches: %w", err)
	}
	return batches, nil
}
