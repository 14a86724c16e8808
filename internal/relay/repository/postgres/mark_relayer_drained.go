package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RecordDrainTx stores the hash of a sweep broadcast from an active relayer.
// The relayer stops being handed out to the dispatcher from this point.
func (r *Repository) RecordDrainTx(ctx context.Context, relayer common.Address, txHash common.Hash) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("record_drain_tx", err, start)
	}()

	const query = `
UPDATE relayers
SET drain_tx_hash    = $2,
    last_activity_at = now()
WHERE address = $1 AND status = 'active'`

	tag, err := r.db.Exec(ctx, query, relayer.Bytes(), txHash.Bytes())
	if err != nil {
		return fmt.Errorf("record drain tx of %s: %w", relayer, err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("relayer %s is not drainable: %w", relayer, ErrConflict)
		return err
	}
	return nil
}

// MarkRelayerDrained marks an active or failed relayer drained with its remaining
// balance. txHash is nil when the balance was too small to sweep.
func (r *Repository) MarkRelayerDrained(ctx context.Context, relayer common.Address, txHash *common.Hash, balance *big.Int) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("mark_relayer_drained", err, start)
	}()

	const query = `
UPDATE relayers
SET status           = 'drained',
    drain_tx_hash    = coalesce($2, drain_tx_hash),
    last_balance     = $3::numeric,
    last_activity_at = now()
WHERE address = $1 AND status IN ('active', 'failed')`

	tag, err := r.db.Exec(ctx, query, relayer.Bytes(), hashBytes(txHash), numeric(balance))
	if err != nil {
		return fmt.Errorf("mark relayer %s drained: %w", relayer, err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("relayer %s is not drainable: %w", relayer, ErrConflict)
		return err
	}
	return nil
}
