package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// MerkleNodes returns the stored nodes of a batch ordered by level and index.
func (r *Repository) MerkleNodes(ctx context.Context, batchID int64) ([]model.MerkleNode, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("merkle_nodes", err, start)
	}()

	const query = `
SELECT batch_id, level, node_index, hash, verified_on_chain
FROM merkle_nodes
WHERE batch_id = $1
ORDER BY level, node_index`

	rows, err := r.db.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("query merkle nodes of batch %d: %w", batchID, err)
	}
	nodes, err := collect(rows, func(row Row) (model.MerkleNode, error) {
		var (
			n    model.MerkleNode
			hash []byte
		)
		if err := row.Scan(&n.BatchID, &n.Level, &n.Index, &hash, &n.VerifiedOnChain); err != nil {
			return model.MerkleNode{}, err
		}
		h, err := toNullableHash(hash)
		if err != nil {
			return model.MerkleNode{}, err
		}
		n.Hash = *h
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan merkle nodes of batch %d: %w", batchID, err)
	}
	return nodes, nil
}
