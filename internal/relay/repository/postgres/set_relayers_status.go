package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// SetRelayersStatus moves every relayer of a batch in status from to status to
// and returns how many relayers changed.
func (r *Repository) SetRelayersStatus(ctx context.Context, batchID int64, from, to model.RelayerStatus) (int64, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("set_relayers_status", err, start)
	}()

	if _, err = from.Transition(to); err != nil {
		return 0, err
	}

	const query = `
UPDATE relayers
SET status           = $3,
    last_activity_at = now()
WHERE batch_id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query, batchID, string(from), string(to))
	if err != nil {
		return 0, fmt.Errorf("update relayers of batch %d: %w", batchID, err)
	}
	return tag.RowsAffected(), nil
}
