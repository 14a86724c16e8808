package committer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/chain"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/units"
)

// Publish sends commitRoot for the stored batch root from the faucet account and
// waits for it to be mined. It returns the zero hash when the contract already
// holds the root.
func (s *Service) Publish(ctx context.Context, batchID int64) (common.Hash, error) {
	batch, err := s.repo.Batch(ctx, batchID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("load batch: %w", err)
	}
	if batch.MerkleRoot == nil {
		return common.Hash{}, fmt.Errorf("batch %d: %w", batchID, ErrNotCommitted)
	}
	root := *batch.MerkleRoot

	published, err := s.PublishedRoot(ctx, batch)
	if err != nil {
		return common.Hash{}, err
	}
	switch published {
	case root:
		s.metrics.ObserveCommit(outcomeOnChain)
		return common.Hash{}, nil
	case common.Hash{}:
	default:
		s.metrics.ObserveCommit(outcomeMismatch)
		return common.Hash{}, fmt.Errorf("%w: batch %d published %s, stored %s", ErrRootMismatch, batchID, published.Hex(), root.Hex())
	}

	faucet, err := s.repo.Faucet(ctx, batch.FaucetID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("load faucet: %w", err)
	}

	var tx *types.Transaction
	if batch.MerkleCommitTx != nil {
		if tx, err = s.resumeCommit(ctx, batch, faucet, *batch.MerkleCommitTx); err != nil {
			return common.Hash{}, err
		}
	}
	if tx == nil {
		if tx, err = s.sendCommit(ctx, batch, faucet, root); err != nil {
			return common.Hash{}, err
		}
	}

	hash := tx.Hash()
	if batch.MerkleCommitTx == nil || *batch.MerkleCommitTx != hash {
		if err := s.repo.SetMerkleRoot(ctx, batchID, root, &hash); err != nil {
			return common.Hash{}, fmt.Errorf("record commit tx: %w", err)
		}
	}
	if _, err := s.waiter.WaitMined(ctx, hash, s.cfg.ConfirmTimeout); err != nil {
		return common.Hash{}, fmt.Errorf("commit transaction %s: %w", hash.Hex(), err)
	}

	s.metrics.ObserveCommit(outcomePublished)
	s.logger.Info("merkle root published",
		zap.Int64("batch_id", batchID),
		zap.String("root", root.Hex()),
		zap.String("tx_hash", hash.Hex()))
	return hash, nil
}

// PublishedRoot returns the root the contract holds for batch, or the zero hash.
func (s *Service) PublishedRoot(ctx context.Context, batch model.Batch) (common.Hash, error) {
	data, err := s.contracts.BatchRoot(big.NewInt(batch.ID))
	if err != nil {
		return common.Hash{}, err
	}
	out, err := s.chain.CallContract(ctx, ethereum.CallMsg{To: &batch.ContractAddress, Data: data}, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("read published root: %w", err)
	}
	return s.contracts.UnpackBatchRoot(out)
}

// resumeCommit picks up the commitRoot an earlier attempt recorded. A mined one
// is returned as is and a pending one is replaced at its nonce with a bumped
// price. It returns nil when the node no longer knows the transaction.
func (s *Service) resumeCommit(ctx context.Context, batch model.Batch, faucet model.Faucet, prev common.Hash) (*types.Transaction, error) {
	tx, pending, err := s.chain.TransactionByHash(ctx, prev)
	if errors.Is(err, ethereum.NotFound) {
		s.logger.Warn("earlier commit transaction dropped, sending a new one",
			zap.Int64("batch_id", batch.ID), zap.String("tx_hash", prev.Hex()))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up commit transaction %s: %w", prev.Hex(), err)
	}
	if !pending {
		return tx, nil
	}

	key, err := s.keys.Get(ctx, faucet.Address, faucet.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("faucet key: %w", err)
	}
	quote, err := s.pricer.Quote(ctx, model.ClassCommit)
	if err != nil {
		return nil, fmt.Errorf("price commit: %w", err)
	}
	price, err := s.pricer.Bump(model.ClassCommit, tx.GasPrice(), quote.Network)
	if err != nil {
		return nil, fmt.Errorf("bump commit %s: %w", prev.Hex(), err)
	}

	unlock := s.locks.Lock(faucet.Address)
	defer unlock()

	replacement, err := s.signer.Sign(key, chain.TxRequest{
		Nonce:    tx.Nonce(),
		To:       batch.ContractAddress,
		GasLimit: tx.Gas(),
		GasPrice: price,
		Data:     tx.Data(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.chain.SendTransaction(ctx, replacement); err != nil {
		return nil, fmt.Errorf("replace commit transaction %s: %w", prev.Hex(), err)
	}
	s.logger.Info("pending commit transaction replaced",
		zap.Int64("batch_id", batch.ID),
		zap.Uint64("nonce", tx.Nonce()),
		zap.String("replaced", prev.Hex()),
		zap.String("tx_hash", replacement.Hash().Hex()),
		zap.String("gas_price", price.String()))
	return replacement, nil
}

func (s *Service) sendCommit(ctx context.Context, batch model.Batch, faucet model.Faucet, root common.Hash) (*types.Transaction, error) {
	key, err := s.keys.Get(ctx, faucet.Address, faucet.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("faucet key: %w", err)
	}
	data, err := s.contracts.CommitRoot(big.NewInt(batch.ID), root)
	if err != nil {
		return nil, err
	}
	quote, err := s.pricer.Quote(ctx, model.ClassCommit)
	if err != nil {
		return nil, fmt.Errorf("price commit: %w", err)
	}
	estimate, err := s.chain.EstimateGas(ctx, ethereum.CallMsg{
		From:     faucet.Address,
		To:       &batch.ContractAddress,
		GasPrice: quote.Price,
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate commit gas: %w", err)
	}

	unlock := s.locks.Lock(faucet.Address)
	defer unlock()

	nonce, err := s.chain.PendingNonceAt(ctx, faucet.Address)
	if err != nil {
		return nil, fmt.Errorf("faucet nonce: %w", err)
	}
	tx, err := s.signer.Sign(key, chain.TxRequest{
		Nonce:    nonce,
		To:       batch.ContractAddress,
		GasLimit: units.GasWithHeadroom(estimate, s.cfg.GasHeadroomBips),
		GasPrice: quote.Price,
		Data:     data,
	})
	if err != nil {
		return nil, err
	}
	if err := s.chain.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("send commit transaction: %w", err)
	}
	return tx, nil
}
