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

// worker owns one relayer account. It is the only writer of that account's
// nonces, so the local counter is authoritative between resyncs.
type worker struct {
	s       *Service
	batch   model.Batch
	relayer model.Relayer
	nonce   uint64
	// sent remembers the price of every nonce this worker broadcast.
	sent   map[uint64]*big.Int
	logger *zap.Logger
}

func (s *Service) newWorker(batch model.Batch, r model.Relayer) *worker {
	return &worker{
		s:       s,
		batch:   batch,
		relayer: r,
		sent:    make(map[uint64]*big.Int),
		logger: s.logger.With(
			zap.Int64("batch_id", batch.ID),
			zap.String("relayer", r.Address.Hex()),
		),
	}
}

func (w *worker) run(ctx context.Context) error {
	if err := w.resync(ctx); err != nil {
		return fmt.Errorf("resync nonce: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		tx, err := w.s.repo.ClaimNextTransaction(ctx, w.batch.ID, w.relayer.Address)
		if errors.Is(err, postgres.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim transaction: %w", err)
		}

		if err := w.process(ctx, tx); err != nil {
			if errors.Is(err, errRoundOver) {
				return nil
			}
			return err
		}
	}
}

// process takes one claimed row to a terminal status or back to the queue.
func (w *worker) process(ctx context.Context, tx model.BatchTransaction) error {
	call, err := w.s.committer.SettleCall(ctx, w.batch, tx)
	if err != nil {
		w.release(ctx, tx, false, "settle call unavailable")
		return fmt.Errorf("build settle call for tx %d: %w", tx.ID, err)
	}
	msg := ethereum.CallMsg{
		From: w.relayer.Address,
		To:   &w.batch.ContractAddress,
		Data: call.Data,
	}

	err = w.s.retrier.Do(ctx, func() error {
		_, err := w.s.chain.CallContract(ctx, msg, nil)
		return err
	})
	if err != nil {
		if retrier.Classify(err) == retrier.ClassRevert {
			return w.reverted(ctx, tx, call.Leaf, err)
		}
		return w.apply(ctx, tx, w.s.retrier.Decide(tx.RetryCount, err))
	}

	var estimate uint64
	err = w.s.retrier.Do(ctx, func() error {
		var err error
		estimate, err = w.s.chain.EstimateGas(ctx, msg)
		return err
	})
	if err != nil {
		return w.apply(ctx, tx, w.s.retrier.Decide(tx.RetryCount, err))
	}
	gasLimit := units.GasWithHeadroom(estimate, w.s.cfg.GasHeadroomBips)

	price, network, err := w.quote(ctx, model.ClassTransfer)
	if err != nil {
		return w.apply(ctx, tx, w.s.retrier.Decide(tx.RetryCount, err))
	}

	for {
		signed, err := w.sign(ctx, chain.TxRequest{
			Nonce:    w.nonce,
			To:       w.batch.ContractAddress,
			Value:    new(big.Int),
			GasLimit: gasLimit,
			GasPrice: price,
			Data:     call.Data,
		})
		if err != nil {
			w.release(ctx, tx, false, "relayer key unavailable")
			return err
		}

		sendErr := w.s.retrier.Do(ctx, func() error {
			return w.s.chain.SendTransaction(ctx, signed)
		})
		if sendErr == nil {
			return w.confirm(ctx, tx, call.Leaf, signed)
		}

		d := w.s.retrier.Decide(tx.RetryCount, sendErr)
		switch d.Action {
		case retrier.ActionAwait:
			return w.confirm(ctx, tx, call.Leaf, signed)

		case retrier.ActionBump:
			if err := w.retry(ctx, &tx, signed, d.Reason); err != nil {
				return err
			}
			_, network, err = w.quote(ctx, model.ClassTransfer)
			if err == nil {
				price, err = w.s.pricer.Bump(model.ClassTransfer, price, network)
			}
			if err != nil {
				return w.apply(ctx, tx, w.s.retrier.Decide(tx.RetryCount, err))
			}
			w.logger.Info("gas price bumped",
				zap.Int64("tx_id", tx.ID), zap.String("price", price.String()), zap.Int("retry_count", tx.RetryCount))

		case retrier.ActionResync:
			if err := w.retry(ctx, &tx, signed, d.Reason); err != nil {
				return err
			}
			if err := w.resync(ctx); err != nil {
				w.release(ctx, tx, false, "nonce resync failed")
				return fmt.Errorf("resync nonce: %w", err)
			}

		default:
			return w.apply(ctx, tx, d)
		}
	}
}

func (w *worker) quote(ctx context.Context, class model.TxClass) (price *big.Int, network *big.Int, err error) {
	err = w.s.retrier.Do(ctx, func() error {
		q, err := w.s.pricer.Quote(ctx, class)
		if err != nil {
			return err
		}
		price, network = q.Price, q.Network
		return nil
	})
	return price, network, err
}

func (w *worker) sign(ctx context.Context, req chain.TxRequest) (*types.Transaction, error) {
	key, err := w.s.keys.Get(ctx, w.relayer.Address, w.relayer.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("relayer key: %w", err)
	}
	return w.s.signer.Sign(key, req)
}

// retry counts one more attempt of tx against its retry budget.
func (w *worker) retry(ctx context.Context, tx *model.BatchTransaction, signed *types.Transaction, reason string) error {
	n, err := w.s.repo.RecordRetry(ctx, tx.ID, w.relayer.Address, reason)
	if err != nil {
		return fmt.Errorf("record retry of tx %d: %w", tx.ID, err)
	}
	tx.RetryCount = n
	w.record(ctx, *tx, signed, model.ClassTransfer, model.OutcomeRetried, reason)
	return nil
}

// apply carries out a release or fail decision.
func (w *worker) apply(ctx context.Context, tx model.BatchTransaction, d retrier.Decision) error {
	if d.Action == retrier.ActionFail {
		return w.fail(ctx, tx, d.Reason, d.Increment)
	}

	w.release(ctx, tx, d.Increment, d.Reason)
	if d.StopRelayer {
		return fmt.Errorf("%w: %s", ErrRelayerExhausted, d.Reason)
	}
	switch {
	case d.Class == retrier.ClassCeiling:
		w.logger.Warn("gas ceiling refused submission, waiting for price to drop",
			zap.Int64("tx_id", tx.ID), zap.String("reason", d.Reason))
	case d.Class.Infrastructure():
		w.logger.Warn("node unavailable, backing off until next round",
			zap.Int64("tx_id", tx.ID), zap.String("class", string(d.Class)), zap.String("reason", d.Reason))
	}
	return errRoundOver
}

func (w *worker) release(ctx context.Context, tx model.BatchTransaction, increment bool, reason string) {
	if err := w.s.repo.ReleaseTransaction(ctx, tx.ID, w.relayer.Address, increment, reason); err != nil {
		w.logger.Warn("transaction not released", zap.Int64("tx_id", tx.ID), zap.Error(err))
		return
	}
	w.record(ctx, tx, nil, model.ClassTransfer, model.OutcomeReleased, reason)
}

func (w *worker) fail(ctx context.Context, tx model.BatchTransaction, reason string, increment bool) error {
	status, err := w.s.repo.FailTransaction(ctx, tx.ID, reason, increment)
	if err != nil {
		if errors.Is(err, postgres.ErrConflict) {
			w.logger.Warn("transaction already settled elsewhere", zap.Int64("tx_id", tx.ID), zap.Error(err))
			return nil
		}
		return fmt.Errorf("fail tx %d: %w", tx.ID, err)
	}
	w.logger.Warn("transaction failed", zap.Int64("tx_id", tx.ID), zap.String("reason", reason))
	w.record(ctx, tx, nil, model.ClassTransfer, model.OutcomeFailed, reason)
	w.finished(status)
	return nil
}

// reverted handles a settle call that reverted. A row that was reassigned may
// have been settled by its earlier broadcast, in which case the revert only
// says the leaf is spent.
func (w *worker) reverted(ctx context.Context, tx model.BatchTransaction, leaf common.Hash, cause error) error {
	if tx.ReassignCount > 0 {
		done, err := w.s.committer.LeafProcessed(ctx, w.batch, leaf)
		if err != nil {
			w.release(ctx, tx, false, "leaf state unavailable")
			return fmt.Errorf("read leaf state of tx %d: %w", tx.ID, err)
		}
		if done {
			w.logger.Info("transaction settled by an earlier broadcast", zap.Int64("tx_id", tx.ID))
			return w.complete(ctx, tx, nil, nil)
		}
	}
	return w.fail(ctx, tx, cause.Error(), false)
}

// confirm records the broadcast of signed and waits for its receipt.
func (w *worker) confirm(ctx context.Context, tx model.BatchTransaction, leaf common.Hash, signed *types.Transaction) error {
	hash := signed.Hash()
	w.nonce = signed.Nonce() + 1
	w.sent[signed.Nonce()] = signed.GasPrice()

	err := w.s.repo.MarkTransactionSubmitted(ctx, model.Submission{
		TxID:     tx.ID,
		Relayer:  w.relayer.Address,
		Nonce:    signed.Nonce(),
		TxHash:   hash,
		GasPrice: signed.GasPrice(),
	})
	if err != nil {
		if errors.Is(err, postgres.ErrConflict) {
			// The row was reassigned under us; the broadcast still resolves through its leaf.
			w.logger.Warn("broadcast transaction no longer owned", zap.Int64("tx_id", tx.ID), zap.Error(err))
			return nil
		}
		return fmt.Errorf("record submission of tx %d: %w", tx.ID, err)
	}
	w.record(ctx, tx, signed, model.ClassTransfer, model.OutcomeSubmitted, "")

	started := w.s.now()
	receipt, err := w.s.waiter.WaitMined(ctx, hash, w.s.cfg.ConfirmTimeout)
	if err == nil {
		w.s.metrics.ObserveConfirmation(started)
	}
	err = w.settle(ctx, tx, leaf, receipt, signed.GasPrice(), err)
	if errors.Is(err, chain.ErrConfirmationTimeout) {
		if err := w.resync(ctx); err != nil {
			return fmt.Errorf("resync after timeout: %w", err)
		}
		return nil
	}
	return err
}

// settle applies the outcome of waiting for a receipt to tx.
func (w *worker) settle(ctx context.Context, tx model.BatchTransaction, leaf common.Hash, receipt *types.Receipt, price *big.Int, waitErr error) error {
	switch {
	case waitErr == nil:
		return w.complete(ctx, tx, receipt, price)

	case errors.Is(waitErr, chain.ErrReverted):
		w.record(ctx, tx, nil, model.ClassTransfer, model.OutcomeReverted, waitErr.Error())
		return w.reverted(ctx, tx, leaf, waitErr)

	case errors.Is(waitErr, chain.ErrConfirmationTimeout):
		if err := w.s.repo.ReassignTransaction(ctx, tx.ID, waitErr.Error()); err != nil && !errors.Is(err, postgres.ErrConflict) {
			return fmt.Errorf("reassign tx %d: %w", tx.ID, err)
		}
		w.logger.Warn("confirmation timed out, transaction reassigned", zap.Int64("tx_id", tx.ID))
		w.record(ctx, tx, nil, model.ClassTransfer, model.OutcomeReassigned, waitErr.Error())
		return waitErr

	default:
		return fmt.Errorf("wait for tx %d: %w", tx.ID, waitErr)
	}
}

func (w *worker) complete(ctx context.Context, tx model.BatchTransaction, receipt *types.Receipt, price *big.Int) error {
	status, err := w.s.repo.CompleteTransaction(ctx, settlement(tx.ID, receipt, price))
	if err != nil {
		if errors.Is(err, postgres.ErrConflict) {
			w.logger.Warn("transaction already settled elsewhere", zap.Int64("tx_id", tx.ID), zap.Error(err))
			return nil
		}
		return fmt.Errorf("complete tx %d: %w", tx.ID, err)
	}
	w.record(ctx, tx, nil, model.ClassTransfer, model.OutcomeConfirmed, "")
	w.refreshBalance(ctx)
	w.finished(status)
	return nil
}

func (w *worker) refreshBalance(ctx context.Context) {
	balance, err := w.s.chain.BalanceAt(ctx, w.relayer.Address, nil)
	if err != nil {
		w.logger.Warn("relayer balance not refreshed", zap.Error(err))
		return
	}
	if err := w.s.repo.UpdateRelayerBalance(ctx, w.relayer.Address, balance); err != nil {
		w.logger.Warn("relayer balance not stored", zap.Error(err))
	}
}

func (w *worker) finished(status model.BatchStatus) {
	if status.Terminal() {
		w.logger.Info("batch finished", zap.String("status", string(status)))
	}
}

func (w *worker) record(ctx context.Context, tx model.BatchTransaction, signed *types.Transaction, class model.TxClass, outcome model.DispatchOutcome, reason string) {
	a := model.DispatchAttempt{
		BatchID:     w.batch.ID,
		TxID:        tx.ID,
		Relayer:     w.relayer.Address,
		Class:       class,
		Outcome:     outcome,
		Reason:      reason,
		RetryCount:  tx.RetryCount,
		AttemptedAt: w.s.now(),
	}
	if signed != nil {
		a.Nonce = signed.Nonce()
		a.TxHash = signed.Hash()
		a.GasPrice = signed.GasPrice()
	}
	w.s.audit.record(ctx, a)
	w.s.metrics.ObserveAttempt(string(outcome))
}

// settlement converts a receipt into the row update. A nil receipt settles
// without gas accounting.
func settlement(txID int64, receipt *types.Receipt, price *big.Int) model.Settlement {
	s := model.Settlement{TxID: txID, GasSpentWei: new(big.Int)}
	if receipt == nil {
		return s
	}
	effective := receipt.EffectiveGasPrice
	if effective == nil || effective.Sign() == 0 {
		effective = price
	}
	s.TxHash = receipt.TxHash
	s.GasUsed = receipt.GasUsed
	if effective != nil {
		s.GasSpentWei.Mul(effective, new(big.Int).SetUint64(receipt.GasUsed))
	}
	return s
}
