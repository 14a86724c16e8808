package postgres

import (
	"context"
	"fmt"
	"time"
)

// MarkLeavesVerified flags leaves whose settlement was observed on-chain.
func (r *Repository) MarkLeavesVerified(ctx context.Context, batchID int64, indexes []int) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("mark_leaves_verified", err, start)
	}()

	if len(indexes) == 0 {
		return nil
	}

	idx := make([]int32, len(indexes))
	for i, v := range indexes {
		idx[i] = int32(v)
	}

	const query = `
UPDATE merkle_nodes
SET verified_on_chain = TRUE
WHERE batch_id = $1 AND level = 0 AND node_index = ANY($2)`

	if _, err = r.db.Exec(ctx, query, batchID, idx); err != nil {
		return fmt.Errorf("mark leaves of batch %d verified: %w", batchID, err)
	}
	return nil
}
