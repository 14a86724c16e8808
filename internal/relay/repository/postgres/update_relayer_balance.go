package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// UpdateRelayerBalance stores the last observed balance of a relayer.
func (r *Repository) UpdateRelayerBalance(ctx context.Context, relayer common.Address, balance *big.Int) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("update_relayer_balance", err, start)
	}()

	const query = `
UPDATE relayers
SET last_balance     = $2::numeric,
    last_activity_at = now()
WHERE address = $1`

	tag, err := r.db.Exec(ctx, query, relayer.Bytes(), numeric(balance))
	if err != nil {
		return fmt.Errorf("update balance of %s: %w", relayer, err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("relayer %s: %w", relayer, ErrNotFound)
		return err
	}
	return nil
}
