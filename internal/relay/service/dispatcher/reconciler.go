package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/clock"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/repository/postgres"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/service/committer"
)

const (
	recoveredReassigned = "reassigned"
	recoveredCompleted  = "completed"
	recoveredFailed     = "failed"
	recoveredSkipped    = "skipped"
)

// ReconcilerConfig tunes recovery of abandoned rows.
type ReconcilerConfig struct {
	Interval          time.Duration
	StaleSendingAfter time.Duration
	// StaleWaitingAfter must be longer than the worker confirmation timeout.
	StaleWaitingAfter time.Duration
	BatchLimit        int
}

// Reconciler returns rows abandoned by crashed or stalled workers to a
// consistent state and checks batch counters against the rows.
type Reconciler struct {
	repo      Repository
	chain     Chain
	committer Committer
	metrics   Metrics
	logger    *zap.Logger
	cfg       ReconcilerConfig
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewReconciler builds a Reconciler.
func NewReconciler(
	repo Repository,
	client Chain,
	committer Committer,
	metrics Metrics,
	logger *zap.Logger,
	cfg ReconcilerConfig,
) (*Reconciler, error) {
	if metrics == nil {
		return nil, errors.New("reconciler metrics is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultReconcileInterval
	}
	if cfg.StaleSendingAfter <= 0 {
		cfg.StaleSendingAfter = defaultStaleSendingAfter
	}
	if cfg.StaleWaitingAfter <= 0 {
		cfg.StaleWaitingAfter = 2 * defaultConfirmTimeout
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = defaultStaleBatchLimit
	}
	return &Reconciler{
		repo:      repo,
		chain:     client,
		committer: committer,
		metrics:   metrics,
		logger:    logger.Named("reconciler"),
		cfg:       cfg,
		now:       time.Now,
		sleep:     clock.SleepWithContext,
	}, nil
}

// Run recovers stale rows every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if n, err := r.RecoverStale(ctx); err != nil {
			r.logger.Warn("reconcile pass failed, backing off", zap.Int("recovered", n), zap.Error(err))
		} else if n > 0 {
			r.logger.Info("stale transactions recovered", zap.Int("recovered", n))
		}
		if err := r.sleep(ctx, r.cfg.Interval); err != nil {
			return
		}
	}
}

// RecoverStale moves rows stuck in SENDING back to the queue and resolves rows
// stuck in WAITING_CONFIRMATION from their receipts. It returns how many rows changed.
func (r *Reconciler) RecoverStale(ctx context.Context) (int, error) {
	now := r.now()
	recovered := 0
	var errs []error

	sending, err := r.repo.StaleTransactions(ctx, model.TxSending, now.Add(-r.cfg.StaleSendingAfter), r.cfg.BatchLimit)
	if err != nil {
		return 0, fmt.Errorf("load stale sending transactions: %w", err)
	}
	for _, tx := range sending {
		action, err := r.reassign(ctx, tx, "abandoned while sending")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.metrics.ObserveRecovered(string(tx.Status), action)
		if action != recoveredSkipped {
			recovered++
		}
	}

	waiting, err := r.repo.StaleTransactions(ctx, model.TxWaitingConfirmation, now.Add(-r.cfg.StaleWaitingAfter), r.cfg.BatchLimit)
	if err != nil {
		return recovered, errors.Join(append(errs, fmt.Errorf("load stale waiting transactions: %w", err))...)
	}
	for _, tx := range waiting {
		action, err := r.resolveWaiting(ctx, tx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.metrics.ObserveRecovered(string(tx.Status), action)
		if action != recoveredSkipped {
			recovered++
		}
	}

	return recovered, errors.Join(errs...)
}

func (r *Reconciler) resolveWaiting(ctx context.Context, tx model.BatchTransaction) (string, error) {
	if tx.TxHash == nil {
		return r.reassign(ctx, tx, "waiting without a transaction hash")
	}

	receipt, err := r.chain.TransactionReceipt(ctx, *tx.TxHash)
	switch {
	case errors.Is(err, ethereum.NotFound):
		return r.reassign(ctx, tx, "no receipt after confirmation timeout")
	case err != nil:
		return "", fmt.Errorf("receipt of tx %d: %w", tx.ID, err)
	case receipt.Status == types.ReceiptStatusSuccessful:
		return r.complete(ctx, tx, receipt)
	}

	// Mined but reverted: a reassigned row reverts once its earlier broadcast spent the leaf.
	if tx.ReassignCount > 0 {
		spent, err := r.leafSpent(ctx, tx)
		if err != nil {
			return "", err
		}
		if spent {
			return r.complete(ctx, tx, nil)
		}
	}
	_, err = r.repo.FailTransaction(ctx, tx.ID, fmt.Sprintf("transaction %s reverted on-chain", tx.TxHash.Hex()), false)
	if errors.Is(err, postgres.ErrConflict) {
		return recoveredSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("fail tx %d: %w", tx.ID, err)
	}
	return recoveredFailed, nil
}

func (r *Reconciler) leafSpent(ctx context.Context, tx model.BatchTransaction) (bool, error) {
	batch, err := r.repo.Batch(ctx, tx.BatchID)
	if err != nil {
		return false, fmt.Errorf("load batch %d: %w", tx.BatchID, err)
	}
	leaf, err := committer.LeafHash(batch, tx)
	if err != nil {
		return false, err
	}
	spent, err := r.committer.LeafProcessed(ctx, batch, leaf)
	if err != nil {
		return false, fmt.Errorf("read leaf state of tx %d: %w", tx.ID, err)
	}
	return spent, nil
}

func (r *Reconciler) reassign(ctx context.Context, tx model.BatchTransaction, reason string) (string, error) {
	err := r.repo.ReassignTransaction(ctx, tx.ID, reason)
	if errors.Is(err, postgres.ErrConflict) {
		return recoveredSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("reassign tx %d: %w", tx.ID, err)
	}
	r.logger.Warn("transaction reassigned", zap.Int64("tx_id", tx.ID), zap.String("reason", reason))
	return recoveredReassigned, nil
}

func (r *Reconciler) complete(ctx context.Context, tx model.BatchTransaction, receipt *types.Receipt) (string, error) {
	_, err := r.repo.CompleteTransaction(ctx, settlement(tx.ID, receipt, tx.GasPrice))
	if errors.Is(err, postgres.ErrConflict) {
		return recoveredSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("complete tx %d: %w", tx.ID, err)
	}
	return recoveredCompleted, nil
}

// ReconcileCounts recomputes the counters of a batch from its rows. Drift is
// repaired by the repository and reported here.
func (r *Reconciler) ReconcileCounts(ctx context.Context, batchID int64) (model.Reconciliation, error) {
	rec, err := r.repo.ReconcileBatchCounts(ctx, batchID)
	if err != nil {
		return rec, fmt.Errorf("reconcile counters of batch %d: %w", batchID, err)
	}
	if rec.Repaired {
		r.metrics.ObserveCountDrift(true)
		r.logger.Error("batch counters drifted from rows",
			zap.Int64("batch_id", batchID),
			zap.Int64("stored_completed", rec.Stored.Completed),
			zap.Int64("actual_completed", rec.Actual.Completed),
			zap.Int64("stored_failed", rec.Stored.Failed),
			zap.Int64("actual_failed", rec.Actual.Failed),
			zap.String("status", string(rec.Status)))
	}
	return rec, nil
}
