package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/safe"
)

// InsertDispatchAttempts appends audit rows for dispatch attempts.
func (r *Repository) InsertDispatchAttempts(ctx context.Context, attempts []model.DispatchAttempt) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_dispatch_attempts", err, start)
	}()

	if len(attempts) == 0 {
		return nil
	}

	const query = `
INSERT INTO relay_dispatch_attempts (
	batch_id,
	tx_id,
	relayer,
	nonce,
	tx_hash,
	gas_price,
	class,
	outcome,
	reason,
	retry_count,
	attempted_at
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare dispatch attempts batch: %w", err)
	}

	for _, a := range attempts {
		var batchID, txID uint64
		if batchID, err = safe.Uint64(a.BatchID); err != nil {
			return fmt.Errorf("batch id: %w", err)
		}
		if txID, err = safe.Uint64(a.TxID); err != nil {
			return fmt.Errorf("tx id: %w", err)
		}
		var retries uint64
		if retries, err = safe.Uint64(a.RetryCount); err != nil {
			return fmt.Errorf("retry count: %w", err)
		}
		gasPrice := a.GasPrice
		if gasPrice == nil {
			gasPrice = new(big.Int)
		}

		if err = batch.Append(
			batchID,
			txID,
			a.Relayer.Hex(),
			a.Nonce,
			a.TxHash.Hex(),
			gasPrice,
			string(a.Class),
			string(a.Outcome),
			a.Reason,
			uint32(retries),
			a.AttemptedAt,
		); err != nil {
			return fmt.Errorf("append dispatch attempt: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert dispatch attempts: %w", err)
	}
	return nil
}
