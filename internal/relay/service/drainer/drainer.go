// Package drainer returns leftover relayer balances once a batch is finished.
package drainer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/chain"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/units"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/workerpool"
)

// ErrNotDrainable is returned for a batch that is still running.
var ErrNotDrainable = errors.New("batch is not finished")

const (
	outcomeSwept      = "swept"
	outcomeDust       = "dust"
	outcomeResumed    = "resumed"
	outcomeKeyMissing = "key_unavailable"
	outcomeFailed     = "failed"

	defaultWorkerCount    = 8
	defaultConfirmTimeout = 2 * time.Minute
)

// Config tunes fund recovery.
type Config struct {
	// DustThreshold is the balance at or below which a relayer is retired without a sweep.
	DustThreshold *big.Int
	// ToFunder sends sweeps to the batch funder instead of the faucet.
	ToFunder       bool
	WorkerCount    int
	ConfirmTimeout time.Duration
}

// Report summarises one drain pass.
type Report struct {
	Swept     int
	Dust      int
	Failed    int
	Recovered *big.Int
}

// Service sweeps relayer balances.
type Service struct {
	repo    Repository
	chain   Chain
	pricer  Pricer
	keys    Keys
	waiter  Waiter
	signer  *chain.Signer
	metrics Metrics
	logger  *zap.Logger
	cfg     Config
}

// New builds a drainer Service.
func New(
	repo Repository,
	client Chain,
	pricer Pricer,
	keys Keys,
	waiter Waiter,
	signer *chain.Signer,
	metrics Metrics,
	logger *zap.Logger,
	cfg Config,
) (*Service, error) {
	if metrics == nil {
		return nil, errors.New("drainer metrics is required")
	}
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if cfg.DustThreshold == nil || cfg.DustThreshold.Sign() < 0 {
		return nil, errors.New("dust threshold must be set and non-negative")
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkerCount
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	return &Service{
		repo:    repo,
		chain:   client,
		pricer:  pricer,
		keys:    keys,
		waiter:  waiter,
		signer:  signer,
		metrics: metrics,
		logger:  logger.Named("drainer"),
		cfg:     cfg,
	}, nil
}

// Drain sweeps every undrained relayer of a finished batch. A relayer that
// cannot be swept is reported and skipped; calling Drain again resumes with
// the relayers that are still undrained.
func (s *Service) Drain(ctx context.Context, batchID int64) (Report, error) {
	report := Report{Recovered: new(big.Int)}

	batch, err := s.repo.Batch(ctx, batchID)
	if err != nil {
		return report, fmt.Errorf("load batch: %w", err)
	}
	if !batch.Status.Terminal() {
		return report, fmt.Errorf("%w: batch %d is %s", ErrNotDrainable, batchID, batch.Status)
	}

	dest := batch.FunderAddress
	if !s.cfg.ToFunder {
		faucet, err := s.repo.Faucet(ctx, batch.FaucetID)
		if err != nil {
			return report, fmt.Errorf("load faucet: %w", err)
		}
		dest = faucet.Address
	}

	relayers, err := s.repo.UndrainedRelayers(ctx, batchID)
	if err != nil {
		return report, fmt.Errorf("load relayers: %w", err)
	}
	if len(relayers) == 0 {
		return report, nil
	}

	logger := s.logger.With(zap.Int64("batch_id", batchID), zap.String("destination", dest.Hex()))
	var mu sync.Mutex
	err = workerpool.ProcessEach(ctx, s.cfg.WorkerCount, relayers, func(ctx context.Context, r model.Relayer) error {
		outcome, recovered, err := s.drainOne(ctx, r, dest)
		s.metrics.ObserveSweep(outcome, recovered)

		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case outcomeSwept, outcomeResumed:
			report.Swept++
			report.Recovered.Add(report.Recovered, recovered)
		case outcomeDust:
			report.Dust++
		default:
			report.Failed++
		}
		if err != nil {
			logger.Error("relayer not drained", zap.String("relayer", r.Address.Hex()), zap.Error(err))
			return fmt.Errorf("relayer %s: %w", r.Address.Hex(), err)
		}
		return nil
	})

	logger.Info("drain pass finished",
		zap.Int("swept", report.Swept),
		zap.Int("dust", report.Dust),
		zap.Int("failed", report.Failed),
		zap.String("recovered_eth", units.FormatEther(report.Recovered)))
	return report, err
}

func (s *Service) drainOne(ctx context.Context, r model.Relayer, dest common.Address) (string, *big.Int, error) {
	zero := new(big.Int)

	if r.DrainTxHash != nil {
		if recovered, ok := s.resume(ctx, r); ok {
			return outcomeResumed, recovered, nil
		}
	}

	balance, err := s.chain.BalanceAt(ctx, r.Address, nil)
	if err != nil {
		return outcomeFailed, zero, fmt.Errorf("balance: %w", err)
	}
	if balance.Cmp(s.cfg.DustThreshold) <= 0 {
		return s.retire(ctx, r, balance)
	}

	key, err := s.keys.Get(ctx, r.Address, r.KeyRef)
	if err != nil {
		return outcomeKeyMissing, zero, fmt.Errorf("key: %w", err)
	}
	quote, err := s.pricer.Quote(ctx, model.ClassSweep)
	if err != nil {
		return outcomeFailed, zero, fmt.Errorf("price sweep: %w", err)
	}
	fee := new(big.Int).Mul(quote.Price, new(big.Int).SetUint64(chain.TransferGas))
	value := new(big.Int).Sub(balance, fee)
	if value.Sign() <= 0 {
		return s.retire(ctx, r, balance)
	}

	nonce, err := s.chain.PendingNonceAt(ctx, r.Address)
	if err != nil {
		return outcomeFailed, zero, fmt.Errorf("nonce: %w", err)
	}
	tx, err := s.signer.Sign(key, chain.TxRequest{
		Nonce:    nonce,
		To:       dest,
		Value:    value,
		GasLimit: chain.TransferGas,
		GasPrice: quote.Price,
	})
	if err != nil {
		return outcomeFailed, zero, err
	}
	hash := tx.Hash()
	if err := s.repo.RecordDrainTx(ctx, r.Address, hash); err != nil {
		return outcomeFailed, zero, fmt.Errorf("record sweep: %w", err)
	}
	if err := s.chain.SendTransaction(ctx, tx); err != nil {
		return outcomeFailed, zero, fmt.Errorf("send sweep: %w", err)
	}
	if _, err := s.waiter.WaitMined(ctx, hash, s.cfg.ConfirmTimeout); err != nil {
		return outcomeFailed, zero, fmt.Errorf("sweep %s: %w", hash.Hex(), err)
	}

	// A plain transfer burns exactly TransferGas, so nothing is left behind.
	if err := s.repo.MarkRelayerDrained(ctx, r.Address, &hash, new(big.Int)); err != nil {
		return outcomeFailed, zero, fmt.Errorf("mark drained: %w", err)
	}
	s.keys.Evict(r.Address)
	return outcomeSwept, value, nil
}

// resume settles a sweep that was broadcast by an earlier pass.
func (s *Service) resume(ctx context.Context, r model.Relayer) (*big.Int, bool) {
	receipt, err := s.waiter.WaitMined(ctx, *r.DrainTxHash, s.cfg.ConfirmTimeout)
	if err != nil || receipt == nil {
		s.logger.Warn("earlier sweep not confirmed, sweeping again",
			zap.String("relayer", r.Address.Hex()), zap.Error(err))
		return nil, false
	}
	balance, err := s.chain.BalanceAt(ctx, r.Address, nil)
	if err != nil {
		return nil, false
	}
	if err := s.repo.MarkRelayerDrained(ctx, r.Address, r.DrainTxHash, balance); err != nil {
		return nil, false
	}
	s.keys.Evict(r.Address)
	return new(big.Int), true
}

func (s *Service) retire(ctx context.Context, r model.Relayer, balance *big.Int) (string, *big.Int, error) {
	if err := s.repo.MarkRelayerDrained(ctx, r.Address, nil, balance); err != nil {
		return outcomeFailed, new(big.Int), fmt.Errorf("mark drained: %w", err)
	}
	s.keys.Evict(r.Address)
	return outcomeDust, new(big.Int), nil
}
