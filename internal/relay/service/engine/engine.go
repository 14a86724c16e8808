// Package engine runs batches end to end: commitment, relayer funding,
// dispatch rounds, settlement verification and fund recovery.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/clock"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// ErrProvisioningInterrupted is returned for a batch left in provisioning by a
// previous process. It needs an operator decision.
var ErrProvisioningInterrupted = errors.New("batch provisioning was interrupted")

const (
	defaultPollInterval  = 10 * time.Second
	defaultRoundInterval = 3 * time.Second
	defaultMaxBatches    = 4
	defaultRunnableLimit = 100
)

// Config tunes batch orchestration.
type Config struct {
	// RelayersPerBatch is the pool size requested for a batch; smaller batches get one relayer per transaction.
	RelayersPerBatch  int
	FundingPerRelayer *big.Int
	PollInterval      time.Duration
	RoundInterval     time.Duration
	MaxBatches        int
	RunnableLimit     int
}

// Engine orchestrates batches.
type Engine struct {
	repo        Repository
	committer   Committer
	provisioner Provisioner
	dispatcher  Dispatcher
	reconciler  Reconciler
	drainer     Drainer
	metrics     Metrics
	logger      *zap.Logger
	cfg         Config
	sleep       func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	running map[int64]struct{}
	wg      sync.WaitGroup
}

// New builds an Engine.
func New(
	repo Repository,
	committer Committer,
	provisioner Provisioner,
	dispatcher Dispatcher,
	reconciler Reconciler,
	drainer Drainer,
	metrics Metrics,
	logger *zap.Logger,
	cfg Config,
) (*Engine, error) {
	if metrics == nil {
		return nil, errors.New("engine metrics is required")
	}
	if cfg.RelayersPerBatch <= 0 {
		return nil, errors.New("relayers per batch must be positive")
	}
	if cfg.FundingPerRelayer == nil || cfg.FundingPerRelayer.Sign() <= 0 {
		return nil, errors.New("funding per relayer must be positive")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RoundInterval <= 0 {
		cfg.RoundInterval = defaultRoundInterval
	}
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = defaultMaxBatches
	}
	if cfg.RunnableLimit <= 0 {
		cfg.RunnableLimit = defaultRunnableLimit
	}
	return &Engine{
		repo:        repo,
		committer:   committer,
		provisioner: provisioner,
		dispatcher:  dispatcher,
		reconciler:  reconciler,
		drainer:     drainer,
		metrics:     metrics,
		logger:      logger.Named("engine"),
		cfg:         cfg,
		sleep:       clock.SleepWithContext,
		running:     make(map[int64]struct{}),
	}, nil
}

// Run polls for runnable batches and works each in its own goroutine until
// ctx is done. The reconciler runs alongside.
func (e *Engine) Run(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.reconciler.Run(ctx)
	}()

	for {
		if ctx.Err() != nil {
			break
		}
		if err := e.schedule(ctx); err != nil {
			e.logger.Warn("failed to schedule batches, backing off", zap.Error(err))
		}
		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			break
		}
	}
	e.wg.Wait()
}

func (e *Engine) schedule(ctx context.Context) error {
	batches, err := e.repo.RunnableBatches(ctx, e.cfg.RunnableLimit)
	if err != nil {
		return fmt.Errorf("load runnable batches: %w", err)
	}
	for _, b := range batches {
		if !e.acquire(b.ID) {
			continue
		}
		e.wg.Add(1)
		go func(id int64) {
			defer e.wg.Done()
			defer e.release(id)
			if err := e.RunBatch(ctx, id); err != nil && ctx.Err() == nil {
				e.logger.Warn("batch run stopped", zap.Int64("batch_id", id), zap.Error(err))
			}
		}(b.ID)
	}
	return nil
}

func (e *Engine) acquire(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.running[id]; ok || len(e.running) >= e.cfg.MaxBatches {
		return false
	}
	e.running[id] = struct{}{}
	return true
}

func (e *Engine) release(id int64) {
	e.mu.Lock()
	delete(e.running, id)
	e.mu.Unlock()
}

// RunBatch takes a batch from wherever it stands to the end of its life:
// commit and fund a new batch, dispatch while it is processing, then verify
// settlement and recover relayer funds once it is finished. A paused batch
// returns early.
func (e *Engine) RunBatch(ctx context.Context, batchID int64) error {
	logger := e.logger.With(zap.Int64("batch_id", batchID))

	batch, err := e.repo.Batch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}

	switch batch.Status {
	case model.BatchCreated:
		if batch, err = e.start(ctx, batch); err != nil {
			return err
		}
	case model.BatchProvisioning:
		return fmt.Errorf("batch %d: %w", batchID, ErrProvisioningInterrupted)
	}

	for batch.Status == model.BatchProcessing {
		err := e.round(ctx, batch)
		e.metrics.ObserveRound(err)
		if err != nil {
			logger.Warn("dispatch round failed, backing off", zap.Error(err))
		}

		if batch, err = e.repo.Batch(ctx, batchID); err != nil {
			return fmt.Errorf("reload batch: %w", err)
		}
		if batch.Status != model.BatchProcessing {
			break
		}
		if err := e.sleep(ctx, e.cfg.RoundInterval); err != nil {
			return err
		}
	}

	if batch.Status == model.BatchPaused {
		logger.Info("batch paused")
		return nil
	}
	if batch.Status.Terminal() {
		return e.finish(ctx, batch)
	}
	return nil
}

// start commits the merkle root and funds the relayer pool of a new batch.
func (e *Engine) start(ctx context.Context, batch model.Batch) (model.Batch, error) {
	root, err := e.committer.EnsureCommitted(ctx, batch.ID)
	if err != nil {
		return batch, fmt.Errorf("commit batch root: %w", err)
	}

	count := e.cfg.RelayersPerBatch
	if batch.TotalTransactions > 0 && batch.TotalTransactions < int64(count) {
		count = int(batch.TotalTransactions)
	}
	relayers, err := e.provisioner.Provision(ctx, batch.ID, count, e.cfg.FundingPerRelayer)
	if err != nil {
		return batch, fmt.Errorf("provision relayers: %w", err)
	}
	e.logger.Info("batch started",
		zap.Int64("batch_id", batch.ID),
		zap.String("root", root.Hex()),
		zap.Int("relayers", len(relayers)))

	return e.repo.Batch(ctx, batch.ID)
}

// round runs one dispatch pass over the active relayers and checks the counters.
func (e *Engine) round(ctx context.Context, batch model.Batch) error {
	relayers, err := e.repo.ActiveRelayers(ctx, batch.ID)
	if err != nil {
		return fmt.Errorf("load relayers: %w", err)
	}
	if len(relayers) == 0 {
		return fmt.Errorf("batch %d has no active relayers", batch.ID)
	}

	runErr := e.dispatcher.Run(ctx, batch, relayers)
	if _, err := e.reconciler.ReconcileCounts(ctx, batch.ID); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (e *Engine) finish(ctx context.Context, batch model.Batch) error {
	logger := e.logger.With(zap.Int64("batch_id", batch.ID), zap.String("status", string(batch.Status)))

	if batch.Status == model.BatchCompleted || batch.Status == model.BatchCompletedWithFailures {
		verified, err := e.committer.MarkSettled(ctx, batch.ID)
		if err != nil {
			// Verification is bookkeeping; funds are recovered regardless.
			logger.Warn("settled leaves not verified", zap.Error(err))
		} else {
			logger.Info("settled leaves verified", zap.Int("verified", verified))
		}
	}

	report, err := e.drainer.Drain(ctx, batch.ID)
	if err != nil {
		return fmt.Errorf("drain relayers: %w", err)
	}
	e.metrics.ObserveBatchFinished(string(batch.Status))
	logger.Info("batch finished",
		zap.Int("swept", report.Swept),
		zap.Int("dust", report.Dust),
		zap.Int64("sent", batch.SentTransactions),
		zap.Int64("failed", batch.FailedTransactions))
	return nil
}

// Pause stops new claims on a processing batch. Submissions already in flight settle.
func (e *Engine) Pause(ctx context.Context, batchID int64) error {
	return e.repo.SetBatchStatus(ctx, batchID, model.BatchProcessing, model.BatchPaused, "")
}

// Resume lets a paused batch claim again.
func (e *Engine) Resume(ctx context.Context, batchID int64) error {
	return e.repo.SetBatchStatus(ctx, batchID, model.BatchPaused, model.BatchProcessing, "")
}

// Abandon ends a batch that is not finished. Pending rows are never sent;
// relayer funds become drainable.
func (e *Engine) Abandon(ctx context.Context, batchID int64, reason string) error {
	batch, err := e.repo.Batch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}
	return e.repo.SetBatchStatus(ctx, batchID, batch.Status, model.BatchAbandoned, reason)
}
