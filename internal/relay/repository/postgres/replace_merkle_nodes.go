package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// ReplaceMerkleNodes stores every level of a batch tree, replacing any
// previously stored nodes. Level 0 holds the leaves.
func (r *Repository) ReplaceMerkleNodes(ctx context.Context, batchID int64, levels [][]common.Hash) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("replace_merkle_nodes", err, start)
	}()

	var (
		lvls    []int32
		indexes []int32
		hashes  [][]byte
	)
	for level, nodes := range levels {
		for index, h := range nodes {
			lvls = append(lvls, int32(level))
			indexes = append(indexes, int32(index))
			hashes = append(hashes, h.Bytes())
		}
	}

	const (
		deleteQuery = `DELETE FROM merkle_nodes WHERE batch_id = $1`
		insertQuery = `
INSERT INTO merkle_nodes (batch_id, level, node_index, hash)
SELECT $1, level, node_index, hash
FROM unnest($2::integer[], $3::integer[], $4::bytea[]) AS v(level, node_index, hash)`
	)

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteQuery, batchID); err != nil {
			return fmt.Errorf("delete merkle nodes of batch %d: %w", batchID, err)
		}
		if len(hashes) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, insertQuery, batchID, lvls, indexes, hashes); err != nil {
			return fmt.Errorf("insert merkle nodes of batch %d: %w", batchID, err)
		}
		return nil
	})
	return err
}
