package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/safe"
)

// ConfirmedNonceCollisions returns relayer nonces of a batch that confirmed
// more than one distinct transaction. A healthy batch returns none.
func (r *Repository) ConfirmedNonceCollisions(ctx context.Context, batchID int64) ([]model.NonceCollision, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("confirmed_nonce_collisions", err, start)
	}()

	id, err := safe.Uint64(batchID)
	if err != nil {
		return nil, fmt.Errorf("batch id: %w", err)
	}

	const query = `
SELECT relayer, nonce, uniqExact(tx_id) AS confirmed
FROM relay_dispatch_attempts
WHERE batch_id = ? AND outcome = ?
GROUP BY relayer, nonce
HAVING confirmed > 1
ORDER BY relayer, nonce`

	rows, err := r.conn.Query(ctx, query, id, string(model.OutcomeConfirmed))
	if err != nil {
		return nil, fmt.Errorf("query nonce collisions: %w", err)
	}
	defer rows.Close()

	var collisions []model.NonceCollision
	for rows.Next() {
		var (
			relayer string
			c       model.NonceCollision
		)
		if err = rows.Scan(&relayer, &c.Nonce, &c.Count); err != nil {
			return nil, fmt.Errorf("scan nonce collision: %w", err)
		}
		if !common.IsHexAddress(relayer) {
			err = fmt.Errorf("invalid relayer address %q", relayer)
			return nil, err
		}
		c.Relayer = common.HexToAddress(relayer)
		collisions = append(collisions, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nonce collisions: %w", err)
	}

	return collisions, nil
}
