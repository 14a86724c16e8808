package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SetMerkleRoot stores the batch root and, once known, the hash of the
// transaction that committed it on-chain.
func (r *Repository) SetMerkleRoot(ctx context.Context, batchID int64, root common.Hash, commitTx *common.Hash) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("set_merkle_root", err, start)
	}()

	const query = `
UPDATE batches
SET merkle_root      = $2,
    merkle_commit_tx = coalesce($3, merkle_commit_tx),
    updated_at       = now()
WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, batchID, root.Bytes(), hashBytes(commitTx))
	if err != nil {
		return fmt.Errorf("update merkle root of batch %d: %w", batchID, err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("batch %d: %w", batchID, ErrNotFound)
		return err
	}
	return nil
}
