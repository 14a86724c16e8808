// Package committer builds, stores and publishes the merkle commitment of a batch
// and serves settlement proofs from it.
package committer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/chain"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/merkle"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/safe"
)

var (
	// ErrRootMismatch is returned when a stored or published root differs from
	// the root rebuilt from the batch transactions.
	ErrRootMismatch = errors.New("merkle root mismatch")
	// ErrNotCommitted is returned when a batch has no stored root yet.
	ErrNotCommitted = errors.New("batch merkle root not committed")
	// ErrUnknownLeaf is returned when a transaction is not part of the committed tree.
	ErrUnknownLeaf = errors.New("transaction is not a leaf of the batch tree")
)

const (
	outcomeBuilt     = "built"
	outcomeUnchanged = "unchanged"
	outcomePublished = "published"
	outcomeOnChain   = "already_on_chain"
	outcomeMismatch  = "mismatch"

	defaultTreeCacheSize = 64
	defaultHeadroomBips  = 12_000
	defaultCommitTimeout = 3 * time.Minute
)

// Config tunes the committer.
type Config struct {
	TreeCacheSize   int
	GasHeadroomBips int64
	ConfirmTimeout  time.Duration
}

// Service owns batch merkle commitments.
type Service struct {
	repo      Repository
	chain     Chain
	pricer    Pricer
	keys      Keys
	waiter    Waiter
	signer    *chain.Signer
	contracts *chain.Contracts
	locks     *chain.AccountLocks
	metrics   Metrics
	logger    *zap.Logger
	cfg       Config
	trees     *lru.Cache[int64, *batchTree]
}

// batchTree is a verified tree with its leaf positions.
type batchTree struct {
	root  common.Hash
	tree  *merkle.Tree
	index map[common.Hash]int
}

// New builds a committer Service.
func New(
	repo Repository,
	client Chain,
	pricer Pricer,
	keys Keys,
	waiter Waiter,
	signer *chain.Signer,
	contracts *chain.Contracts,
	locks *chain.AccountLocks,
	metrics Metrics,
	logger *zap.Logger,
	cfg Config,
) (*Service, error) {
	if metrics == nil {
		return nil, errors.New("committer metrics is required")
	}
	if signer == nil || contracts == nil || locks == nil {
		return nil, errors.New("signer, contracts and account locks are required")
	}
	if cfg.TreeCacheSize <= 0 {
		cfg.TreeCacheSize = defaultTreeCacheSize
	}
	if cfg.GasHeadroomBips <= 0 {
		cfg.GasHeadroomBips = defaultHeadroomBips
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultCommitTimeout
	}
	trees, err := lru.New[int64, *batchTree](cfg.TreeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("tree cache: %w", err)
	}
	return &Service{
		repo:      repo,
		chain:     client,
		pricer:    pricer,
		keys:      keys,
		waiter:    waiter,
		signer:    signer,
		contracts: contracts,
		locks:     locks,
		metrics:   metrics,
		logger:    logger.Named("committer"),
		cfg:       cfg,
		trees:     trees,
	}, nil
}

// Leaf returns the merkle leaf of tx in batch.
func Leaf(batch model.Batch, tx model.BatchTransaction) (merkle.Leaf, error) {
	batchID, err := safe.Uint64(batch.ID)
	if err != nil {
		return merkle.Leaf{}, fmt.Errorf("batch id: %w", err)
	}
	txID, err := safe.Uint64(tx.ID)
	if err != nil {
		return merkle.Leaf{}, fmt.Errorf("tx id: %w", err)
	}
	return merkle.Leaf{
		ChainID:   batch.ChainID,
		Contract:  batch.ContractAddress,
		BatchID:   batchID,
		TxID:      txID,
		Funder:    batch.FunderAddress,
		Recipient: tx.Recipient,
		Amount:    tx.Amount,
	}, nil
}

// LeafHash returns the hashed merkle leaf of tx in batch.
func LeafHash(batch model.Batch, tx model.BatchTransaction) (common.Hash, error) {
	leaf, err := Leaf(batch, tx)
	if err != nil {
		return common.Hash{}, err
	}
	h, err := leaf.Hash()
	if err != nil {
		return common.Hash{}, fmt.Errorf("leaf of tx %d: %w", tx.ID, err)
	}
	return h, nil
}

// Commit builds the tree over the batch transactions ordered by id, stores every
// level and the root. It is idempotent: a stored root is verified against the
// rebuilt one and kept.
func (s *Service) Commit(ctx context.Context, batchID int64) (common.Hash, error) {
	batch, err := s.repo.Batch(ctx, batchID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("load batch: %w", err)
	}
	txs, err := s.repo.TransactionsByBatch(ctx, batchID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("load transactions: %w", err)
	}

	leaves := make([]common.Hash, len(txs))
	for i, tx := range txs {
		if leaves[i], err = LeafHash(batch, tx); err != nil {
			return common.Hash{}, err
		}
	}
	tree, err := merkle.Build(leaves)
	if err != nil {
		return common.Hash{}, fmt.Errorf("build tree of batch %d: %w", batchID, err)
	}
	root := tree.Root()

	if batch.MerkleRoot != nil {
		if *batch.MerkleRoot != root {
			s.metrics.ObserveCommit(outcomeMismatch)
			return common.Hash{}, fmt.Errorf("%w: batch %d stored %s, rebuilt %s", ErrRootMismatch, batchID, batch.MerkleRoot.Hex(), root.Hex())
		}
		s.metrics.ObserveCommit(outcomeUnchanged)
		s.remember(batchID, tree)
		return root, nil
	}

	if err := s.repo.ReplaceMerkleNodes(ctx, batchID, tree.Levels()); err != nil {
		return common.Hash{}, fmt.Errorf("store merkle nodes: %w", err)
	}
	if err := s.repo.SetMerkleRoot(ctx, batchID, root, nil); err != nil {
		return common.Hash{}, fmt.Errorf("store merkle root: %w", err)
	}
	s.remember(batchID, tree)
	s.metrics.ObserveCommit(outcomeBuilt)
	s.logger.Info("merkle root built",
		zap.Int64("batch_id", batchID),
		zap.Int("leaves", tree.Leaves()),
		zap.String("root", root.Hex()))
	return root, nil
}

// EnsureCommitted commits the batch root and publishes it on-chain when absent.
func (s *Service) EnsureCommitted(ctx context.Context, batchID int64) (common.Hash, error) {
	root, err := s.Commit(ctx, batchID)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := s.Publish(ctx, batchID); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}

func (s *Service) remember(batchID int64, tree *merkle.Tree) *batchTree {
	leaves := tree.Levels()[0]
	bt := &batchTree{
		root:  tree.Root(),
		tree:  tree,
		index: make(map[common.Hash]int, len(leaves)),
	}
	for i, leaf := range leaves {
		bt.index[leaf] = i
	}
	s.trees.Add(batchID, bt)
	return bt
}
