package dispatcher

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
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/repository/postgres"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/retrier"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/units"
)

// resync reloads the relayer nonce from chain. Nonces that are pending but not
// mined are resolved first, so new claims never queue behind a stuck slot.
func (w *worker) resync(ctx context.Context) error {
	latest, pending, err := w.nonces(ctx)
	if err != nil {
		return err
	}

	if pending > latest {
		w.s.metrics.ObserveStuckNonces(int(pending - latest))
		w.logger.Warn("stuck nonces found", zap.Uint64("latest", latest), zap.Uint64("pending", pending))

		for n := latest; n < pending; n++ {
			if err := w.unstick(ctx, n); err != nil {
				return fmt.Errorf("nonce %d: %w", n, err)
			}
		}
		if latest, _, err = w.nonces(ctx); err != nil {
			return err
		}
		if latest < pending {
			return fmt.Errorf("%w: latest %d, pending %d", ErrStuckNonce, latest, pending)
		}
	}

	w.nonce = latest
	return nil
}

func (w *worker) nonces(ctx context.Context) (latest uint64, pending uint64, err error) {
	err = w.s.retrier.Do(ctx, func() error {
		var err error
		if latest, err = w.s.chain.NonceAt(ctx, w.relayer.Address, nil); err != nil {
			return err
		}
		pending, err = w.s.chain.PendingNonceAt(ctx, w.relayer.Address)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("read nonces: %w", err)
	}
	return latest, pending, nil
}

// unstick replaces whatever occupies nonce n: the row that owns it is sent
// again at a higher price, an unowned slot gets a zero-value self transfer.
func (w *worker) unstick(ctx context.Context, n uint64) error {
	row, err := w.s.repo.TransactionByRelayerNonce(ctx, w.relayer.Address, n)
	switch {
	case err == nil && row.Status == model.TxWaitingConfirmation && row.TxHash != nil:
		return w.rebroadcast(ctx, row)
	case err == nil, errors.Is(err, postgres.ErrNotFound):
		return w.cancel(ctx, n)
	default:
		return fmt.Errorf("load nonce owner: %w", err)
	}
}

func (w *worker) rebroadcast(ctx context.Context, row model.BatchTransaction) error {
	n := *row.Nonce
	logger := w.logger.With(zap.Int64("tx_id", row.ID), zap.Uint64("nonce", n))

	call, err := w.s.committer.SettleCall(ctx, w.batch, row)
	if err != nil {
		return fmt.Errorf("build settle call: %w", err)
	}
	price, err := w.replacementPrice(ctx, model.ClassTransfer, row.GasPrice)
	if err != nil {
		return err
	}

	var estimate uint64
	err = w.s.retrier.Do(ctx, func() error {
		var err error
		estimate, err = w.s.chain.EstimateGas(ctx, ethereum.CallMsg{
			From: w.relayer.Address,
			To:   &w.batch.ContractAddress,
			Data: call.Data,
		})
		return err
	})
	if err != nil {
		// The settle call no longer executes, most likely because the original
		// was mined meanwhile. Its receipt decides the row.
		logger.Warn("replacement not estimable, waiting for original", zap.Error(err))
		return w.awaitSlot(ctx, row, call.Leaf, *row.TxHash)
	}

	signed, err := w.sign(ctx, chain.TxRequest{
		Nonce:    n,
		To:       w.batch.ContractAddress,
		Value:    new(big.Int),
		GasLimit: units.GasWithHeadroom(estimate, w.s.cfg.GasHeadroomBips),
		GasPrice: price,
		Data:     call.Data,
	})
	if err != nil {
		return err
	}
	replaced, err := w.broadcast(ctx, signed)
	if err != nil {
		return err
	}
	if !replaced {
		return w.awaitSlot(ctx, row, call.Leaf, *row.TxHash)
	}

	if err := w.s.repo.MarkTransactionSubmitted(ctx, model.Submission{
		TxID:     row.ID,
		Relayer:  w.relayer.Address,
		Nonce:    n,
		TxHash:   signed.Hash(),
		GasPrice: price,
	}); err != nil {
		return fmt.Errorf("record replacement: %w", err)
	}
	w.sent[n] = price
	w.record(ctx, row, signed, model.ClassTransfer, model.OutcomeSubmitted, "replacement of stuck nonce")
	logger.Info("stuck settlement re-broadcast", zap.String("price", price.String()))

	return w.awaitSlot(ctx, row, call.Leaf, signed.Hash(), *row.TxHash)
}

// awaitSlot waits for the first of hashes and falls back to the receipts of
// the older ones when it does not mine in time.
func (w *worker) awaitSlot(ctx context.Context, row model.BatchTransaction, leaf common.Hash, hashes ...common.Hash) error {
	receipt, err := w.s.waiter.WaitMined(ctx, hashes[0], w.s.cfg.ConfirmTimeout)
	if errors.Is(err, chain.ErrConfirmationTimeout) {
		for _, h := range hashes[1:] {
			r, rerr := w.s.chain.TransactionReceipt(ctx, h)
			if rerr != nil {
				continue
			}
			receipt, err = r, nil
			if r.Status != types.ReceiptStatusSuccessful {
				err = &chain.RevertError{Err: fmt.Errorf("transaction %s mined with status %d", h.Hex(), r.Status)}
			}
			break
		}
	}
	return w.settle(ctx, row, leaf, receipt, row.GasPrice, err)
}

func (w *worker) cancel(ctx context.Context, n uint64) error {
	price, err := w.replacementPrice(ctx, model.ClassCancel, w.sent[n])
	if err != nil {
		return err
	}
	signed, err := w.sign(ctx, chain.TxRequest{
		Nonce:    n,
		To:       w.relayer.Address,
		Value:    new(big.Int),
		GasLimit: chain.TransferGas,
		GasPrice: price,
	})
	if err != nil {
		return err
	}
	replaced, err := w.broadcast(ctx, signed)
	if err != nil || !replaced {
		return err
	}
	w.sent[n] = price
	w.logger.Info("stuck nonce cancelled", zap.Uint64("nonce", n), zap.String("price", price.String()))

	_, err = w.s.waiter.WaitMined(ctx, signed.Hash(), w.s.cfg.ConfirmTimeout)
	if errors.Is(err, chain.ErrConfirmationTimeout) {
		// Whatever occupied the slot may have mined instead.
		latest, _, nerr := w.nonces(ctx)
		if nerr == nil && latest > n {
			return nil
		}
	}
	return err
}

// broadcast sends a replacement. It reports false when the slot was already
// mined, so nothing was replaced.
func (w *worker) broadcast(ctx context.Context, signed *types.Transaction) (bool, error) {
	err := w.s.retrier.Do(ctx, func() error {
		return w.s.chain.SendTransaction(ctx, signed)
	})
	if err == nil {
		return true, nil
	}
	switch retrier.Classify(err) {
	case retrier.ClassNonceConflict:
		return false, nil
	case retrier.ClassAlreadyKnown:
		return true, nil
	default:
		return false, fmt.Errorf("send replacement: %w", err)
	}
}

// replacementPrice prices a transaction that has to displace one sent at prev.
func (w *worker) replacementPrice(ctx context.Context, class model.TxClass, prev *big.Int) (*big.Int, error) {
	price, network, err := w.quote(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("price replacement: %w", err)
	}
	if prev == nil || prev.Sign() == 0 {
		return price, nil
	}
	bumped, err := w.s.pricer.Bump(class, prev, network)
	if err != nil {
		return nil, fmt.Errorf("price replacement: %w", err)
	}
	if bumped.Cmp(price) < 0 {
		return price, nil
	}
	return bumped, nil
}
