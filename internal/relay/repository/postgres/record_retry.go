package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// RecordRetry increments the retry counter of an in-flight transaction that is
// retried in place by the same relayer and returns the new count.
func (r *Repository) RecordRetry(ctx context.Context, txID int64, relayer common.Address, reason string) (int, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("record_retry", err, start)
	}()

	const query = `
UPDATE batch_transactions
SET retry_count    = retry_count + 1,
    failure_reason = $3,
    updated_at     = now()
WHERE id = $1
  AND relayer_address = $2
  AND ` + guardInFlight + `
RETURNING retry_count`

	var count int
	if err = r.db.QueryRow(ctx, query, txID, relayer.Bytes(), reason).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("transaction %d not in flight for %s: %w", txID, relayer, ErrConflict)
			return 0, err
		}
		return 0, fmt.Errorf("record retry of transaction %d: %w", txID, err)
	}
	return count, nil
}
