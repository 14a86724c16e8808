package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// StaleTransactions returns up to limit transactions that have been in status
// since before olderThan, oldest first.
func (r *Repository) StaleTransactions(ctx context.Context, status model.TxStatus, olderThan time.Time, limit int) ([]model.BatchTransaction, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("stale_transactions", err, start)
	}()

	const query = `
SELECT` + transactionColumns + `
FROM batch_transactions t
WHERE t.status = $1 AND t.updated_at < $2
ORDER BY t.updated_at
LIMIT $3`

	rows, err := r.db.Query(ctx, query, string(status), olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale %s transactions: %w", status, err)
	}
	txs, err := collect(rows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("scan stale %s transactions: %w", status, err)
	}
	return txs, nil
}
