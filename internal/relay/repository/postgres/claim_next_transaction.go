package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// ClaimNextTransaction atomically assigns the oldest unclaimed pending
// transaction of a processing batch to relayer and moves it to sending.
// Concurrent claimers skip rows locked by each other, so a row is handed to
// exactly one relayer. ErrNotFound means there is nothing left to claim.
func (r *Repository) ClaimNextTransaction(ctx context.Context, batchID int64, relayer common.Address) (model.BatchTransaction, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("claim_next_transaction", err, start)
	}()

	const query = `
UPDATE batch_transactions t
SET status          = 'sending',
    relayer_address = $2,
    updated_at      = now()
WHERE t.id = (
    SELECT c.id
    FROM batch_transactions c
    JOIN batches b ON b.id = c.batch_id
    WHERE c.batch_id = $1
      AND c.status = 'pending'
      AND c.relayer_address IS NULL
      AND b.status = 'processing'
    ORDER BY c.id
    LIMIT 1
    FOR UPDATE OF c SKIP LOCKED
)
  AND t.` + guardPending + `
  AND t.relayer_address IS NULL
RETURNING` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, batchID, relayer.Bytes()))
	if err != nil {
		err = notFound(err)
		return model.BatchTransaction{}, fmt.Errorf("claim transaction in batch %d: %w", batchID, err)
	}
	return tx, nil
}
