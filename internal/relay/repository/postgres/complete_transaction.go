package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/safe"
	"github.com/jackc/pgx/v5"
)

// CompleteTransaction marks an in-flight transaction completed, adds it to the
// batch counters and finalises the batch when nothing is outstanding. It
// returns the batch status after the update.
func (r *Repository) CompleteTransaction(ctx context.Context, s model.Settlement) (model.BatchStatus, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("complete_transaction", err, start)
	}()

	gasUsed, err := safe.Int64(s.GasUsed)
	if err != nil {
		return "", fmt.Errorf("gas used: %w", err)
	}

	const query = `
UPDATE batch_transactions
SET status         = 'completed',
    tx_hash        = coalesce($2, tx_hash),
    failure_reason = '',
    confirmed_at   = now(),
    updated_at     = now()
WHERE id = $1
  AND ` + guardInFlight + `
RETURNING batch_id`

	var hash []byte
	if s.TxHash != (common.Hash{}) {
		hash = s.TxHash.Bytes()
	}

	var status model.BatchStatus
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		var batchID int64
		if err := tx.QueryRow(ctx, query, s.TxID, hash).Scan(&batchID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("transaction %d is not in flight: %w", s.TxID, ErrConflict)
			}
			return fmt.Errorf("complete transaction %d: %w", s.TxID, err)
		}

		var err error
		status, err = applyCounters(ctx, tx, batchID, counterDelta{
			completed: 1,
			gasUsed:   gasUsed,
			gasSpent:  numeric(s.GasSpentWei),
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return status, nil
}
