package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// Batch returns the batch with the given id.
func (r *Repository) Batch(ctx context.Context, batchID int64) (model.Batch, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("batch", err, start)
	}()

	const query = `
SELECT` + batchColumns + `
FROM batches b
WHERE b.id = $1`

	batch, err := scanBatch(r.db.QueryRow(ctx, query, batchID))
	if err != nil {
		err = notFound(err)
		return model.Batch{}, fmt.Errorf("select batch %d: %w", batchID, err)
	}
	return batch, nil
}
