package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/safe"
)

// TransactionByRelayerNonce returns the transaction holding a relayer nonce slot.
func (r *Repository) TransactionByRelayerNonce(ctx context.Context, relayer common.Address, nonce uint64) (model.BatchTransaction, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("transaction_by_relayer_nonce", err, start)
	}()

	n, err := safe.Int64(nonce)
	if err != nil {
		return model.BatchTransaction{}, fmt.Errorf("nonce: %w", err)
	}

	const query = `
SELECT` + transactionColumns + `
FROM batch_transactions t
WHERE t.relayer_address = $1 AND t.nonce = $2`

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, relayer.Bytes(), n))
	if err != nil {
		err = notFound(err)
		return model.BatchTransaction{}, fmt.Errorf("select transaction of %s nonce %d: %w", relayer, nonce, err)
	}
	return tx, nil
}
