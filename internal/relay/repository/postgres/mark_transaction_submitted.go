package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/safe"
)

// MarkTransactionSubmitted records the nonce, hash and price of a broadcast
// transaction and moves it to waiting_confirmation. A replacement broadcast
// for a transaction that is already waiting overwrites hash and price.
// ErrConflict means the row is no longer owned by the relayer or the
// (relayer, nonce) pair is already taken by another transaction.
func (r *Repository) MarkTransactionSubmitted(ctx context.Context, s model.Submission) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("mark_transaction_submitted", err, start)
	}()

	nonce, err := safe.Int64(s.Nonce)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}

	const query = `
UPDATE batch_transactions
SET status     = 'waiting_confirmation',
    nonce      = $3,
    tx_hash    = $4,
    gas_price  = $5::numeric,
    sent_at    = coalesce(sent_at, now()),
    updated_at = now()
WHERE id = $1
  AND relayer_address = $2
  AND ` + guardInFlight

	tag, err := r.db.Exec(ctx, query, s.TxID, s.Relayer.Bytes(), nonce, s.TxHash.Bytes(), numeric(s.GasPrice))
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("nonce %d of %s already used: %w", s.Nonce, s.Relayer, ErrConflict)
			return err
		}
		return fmt.Errorf("update transaction %d submission: %w", s.TxID, err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("transaction %d not owned by %s: %w", s.TxID, s.Relayer, ErrConflict)
		return err
	}
	return nil
}
