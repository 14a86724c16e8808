package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// ActiveRelayers returns the funded relayers of a batch that are not being swept.
func (r *Repository) ActiveRelayers(ctx context.Context, batchID int64) ([]model.Relayer, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("active_relayers", err, start)
	}()

	const query = `
SELECT` + relayerColumns + `
FROM relayers r
WHERE r.batch_id = $1 AND r.status = 'active' AND r.drain_tx_hash IS NULL
ORDER BY r.id`

	relayers, err := r.queryRelayers(ctx, query, batchID)
	return relayers, err
}

// UndrainedRelayers returns the relayers of a batch that may still hold funds:
// active ones, including those with a sweep in flight, and ones whose funding
// was reported failed.
func (r *Repository) UndrainedRelayers(ctx context.Context, batchID int64) ([]model.Relayer, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("undrained_relayers", err, start)
	}()

	const query = `
SELECT` + relayerColumns + `
FROM relayers r
WHERE r.batch_id = $1 AND r.status IN ('active', 'failed')
ORDER BY r.id`

	relayers, err := r.queryRelayers(ctx, query, batchID)
	return relayers, err
}

func (r *Repository) queryRelayers(ctx context.Context, query string, batchID int64) ([]model.Relayer, error) {
	rows, err := r.db.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("query relayers of batch %d: %w", batchID, err)
	}
	relayers, err := collect(rows, scanRelayer)
	if err != nil {
		return nil, fmt.Errorf("scan relayers of batch %d: %w", batchID, err)
	}
	return relayers, nil
}
