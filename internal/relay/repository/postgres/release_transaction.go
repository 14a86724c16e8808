package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ReleaseTransaction returns a claimed transaction that was never broadcast to
// the pending pool. The retry counter grows only when incrementRetry is set.
func (r *Repository) ReleaseTransaction(ctx context.Context, txID int64, relayer common.Address, incrementRetry bool, reason string) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("release_transaction", err, start)
	}()

	const query = `
UPDATE batch_transactions
SET status          = 'pending',
    relayer_address = NULL,
    nonce           = NULL,
    tx_hash         = NULL,
    gas_price       = NULL,
    retry_count     = retry_count + CASE WHEN $3 THEN 1 ELSE 0 END,
    failure_reason  = $4,
    updated_at      = now()
WHERE id = $1
  AND relayer_address = $2
  AND ` + guardSending

	tag, err := r.db.Exec(ctx, query, txID, relayer.Bytes(), incrementRetry, reason)
	if err != nil {
		return fmt.Errorf("release transaction %d: %w", txID, err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("transaction %d not sending for %s: %w", txID, relayer, ErrConflict)
		return err
	}
	return nil
}
