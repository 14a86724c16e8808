package committer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// MarkSettled flags the leaves of completed transactions that the contract
// reports processed. It returns how many leaves were flagged.
func (s *Service) MarkSettled(ctx context.Context, batchID int64) (int, error) {
	batch, err := s.repo.Batch(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("load batch: %w", err)
	}
	if batch.MerkleRoot == nil {
		return 0, fmt.Errorf("batch %d: %w", batchID, ErrNotCommitted)
	}
	txs, err := s.repo.TransactionsByBatch(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("load transactions: %w", err)
	}

	var verified []int
	for i, tx := range txs {
		if tx.Status != model.TxCompleted {
			continue
		}
		leaf, err := LeafHash(batch, tx)
		if err != nil {
			return 0, err
		}
		processed, err := s.LeafProcessed(ctx, batch, leaf)
		if err != nil {
			return 0, err
		}
		if !processed {
			s.logger.Warn("completed transaction not processed on-chain",
				zap.Int64("batch_id", batchID), zap.Int64("tx_id", tx.ID))
			continue
		}
		verified = append(verified, i)
	}

	if len(verified) > 0 {
		if err := s.repo.MarkLeavesVerified(ctx, batchID, verified); err != nil {
			return 0, fmt.Errorf("mark leaves verified: %w", err)
		}
	}
	s.metrics.ObserveVerifiedLeaves(len(verified))
	return len(verified), nil
}
