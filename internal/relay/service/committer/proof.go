package committer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/chain"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/merkle"
)

// SettleCall is a packed settle call together with the leaf it consumes.
type SettleCall struct {
	Leaf  common.Hash
	Proof []common.Hash
	Data  []byte
}

// Proof returns the leaf of tx and its sibling path in the committed tree.
func (s *Service) Proof(ctx context.Context, batch model.Batch, tx model.BatchTransaction) (common.Hash, []common.Hash, error) {
	bt, err := s.tree(ctx, batch)
	if err != nil {
		return common.Hash{}, nil, err
	}
	leaf, err := LeafHash(batch, tx)
	if err != nil {
		return common.Hash{}, nil, err
	}
	i, ok := bt.index[leaf]
	if !ok {
		return common.Hash{}, nil, fmt.Errorf("%w: batch %d tx %d", ErrUnknownLeaf, batch.ID, tx.ID)
	}
	proof, err := bt.tree.Proof(i)
	if err != nil {
		return common.Hash{}, nil, err
	}
	return leaf, proof, nil
}

// SettleCall packs the settle call for tx.
func (s *Service) SettleCall(ctx context.Context, batch model.Batch, tx model.BatchTransaction) (SettleCall, error) {
	leaf, proof, err := s.Proof(ctx, batch, tx)
	if err != nil {
		return SettleCall{}, err
	}
	data, err := s.contracts.Settle(chain.Settlement{
		BatchID:   big.NewInt(batch.ID),
		TxID:      big.NewInt(tx.ID),
		Funder:    batch.FunderAddress,
		Recipient: tx.Recipient,
		Amount:    tx.Amount,
		Proof:     proof,
	})
	if err != nil {
		return SettleCall{}, err
	}
	return SettleCall{Leaf: leaf, Proof: proof, Data: data}, nil
}

// LeafProcessed reports whether the contract already consumed leaf.
func (s *Service) LeafProcessed(ctx context.Context, batch model.Batch, leaf common.Hash) (bool, error) {
	data, err := s.contracts.IsLeafProcessed(leaf)
	if err != nil {
		return false, err
	}
	out, err := s.chain.CallContract(ctx, ethereum.CallMsg{To: &batch.ContractAddress, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("read leaf state: %w", err)
	}
	return s.contracts.UnpackIsLeafProcessed(out)
}

// tree returns the cached tree of batch or restores it from the stored levels.
func (s *Service) tree(ctx context.Context, batch model.Batch) (*batchTree, error) {
	if batch.MerkleRoot == nil {
		return nil, fmt.Errorf("batch %d: %w", batch.ID, ErrNotCommitted)
	}
	if bt, ok := s.trees.Get(batch.ID); ok && bt.root == *batch.MerkleRoot {
		return bt, nil
	}

	nodes, err := s.repo.MerkleNodes(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("load merkle nodes: %w", err)
	}
	tree, err := merkle.FromLevels(levels(nodes))
	if err != nil {
		return nil, fmt.Errorf("restore tree of batch %d: %w", batch.ID, err)
	}
	if tree.Root() != *batch.MerkleRoot {
		return nil, fmt.Errorf("%w: batch %d stored nodes hash to %s, root is %s", ErrRootMismatch, batch.ID, tree.Root().Hex(), batch.MerkleRoot.Hex())
	}
	return s.remember(batch.ID, tree), nil
}

// levels groups nodes ordered by level and index.
func levels(nodes []model.MerkleNode) [][]common.Hash {
	var out [][]common.Hash
	for _, n := range nodes {
		for len(out) <= n.Level {
			out = append(out, nil)
		}
		out[n.Level] = append(out[n.Level], n.Hash)
	}
	return out
}
