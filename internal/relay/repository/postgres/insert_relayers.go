package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// InsertRelayers registers relayer accounts and fills in their ids.
func (r *Repository) InsertRelayers(ctx context.Context, relayers []model.Relayer) ([]model.Relayer, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_relayers", err, start)
	}()

	if len(relayers) == 0 {
		return nil, nil
	}

	addresses := make([][]byte, len(relayers))
	batchIDs := make([]int64, len(relayers))
	keyRefs := make([]string, len(relayers))
	for i, rl := range relayers {
		addresses[i] = rl.Address.Bytes()
		batchIDs[i] = rl.BatchID
		keyRefs[i] = rl.KeyRef
	}

	const query = `
INSERT INTO relayers AS r (address, batch_id, key_ref, status)
SELECT address, batch_id, key_ref, 'registered'
FROM unnest($1::bytea[], $2::bigint[], $3::text[]) AS v(address, batch_id, key_ref)
RETURNING` + relayerColumns

	rows, err := r.db.Query(ctx, query, addresses, batchIDs, keyRefs)
	if err != nil {
		return nil, fmt.Errorf("insert relayers: %w", err)
	}
	inserted, err := collect(rows, scanRelayer)
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("relayer address already registered: %w", ErrConflict)
			return nil, err
		}
		return nil, fmt.Errorf("insert relayers: %w", err)
	}
	return inserted, nil
}
