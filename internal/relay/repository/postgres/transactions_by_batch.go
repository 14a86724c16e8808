package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// TransactionsByBatch returns every transaction of a batch ordered by id,
// which is also the merkle leaf order.
func (r *Repository) TransactionsByBatch(ctx context.Context, batchID int64) ([]model.BatchTransaction, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("transactions_by_batch", err, start)
	}()

	const query = `
SELECT` + transactionColumns + `
FROM batch_transactions t
WHERE t.batch_id = $1
ORDER BY t.id`

	rows, err := r.db.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("query transactions of batch %d: %w", batchID, err)
	}
	txs, err := collect(rows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("scan transactions of batch %d: %w", batchID, err)
	}
	return txs, nil
}
