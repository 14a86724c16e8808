package postgres

import (
	"context"
	"fmt"
	"time"
)

// ReassignTransaction moves a claimed or broadcast transaction back to pending
// so another relayer can pick it up. The reassign counter lets a later dry-run
// tell an earlier successful broadcast apart from a genuine revert.
func (r *Repository) ReassignTransaction(ctx context.Context, txID int64, reason string) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("reassign_transaction", err, start)
	}()

	const query = `
UPDATE batch_transactions
SET status          = 'pending',
    relayer_address = NULL,
    nonce           = NULL,
    tx_hash         = NULL,
    gas_price       = NULL,
    reassign_count  = reassign_count + 1,
    failure_reason  = $2,
    updated_at      = now()
WHERE id = $1
  AND ` + guardInFlight

	tag, err := r.db.Exec(ctx, query, txID, reason)
	if err != nil {
		return fmt.Errorf("reassign transaction %d: %w", txID, err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("transaction %d is not in flight: %w", txID, ErrConflict)
		return err
	}
	return nil
}
