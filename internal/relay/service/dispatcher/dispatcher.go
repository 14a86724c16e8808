// Package dispatcher drives batch transactions through their relayer accounts
// and recovers rows left behind by crashed or stalled workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/chain"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/workerpool"
)

var (
	// ErrStuckNonce is returned when a relayer still has unmined nonces after resolution.
	ErrStuckNonce = errors.New("relayer nonce still stuck")
	// ErrRelayerExhausted is returned when a relayer cannot pay for further transactions.
	ErrRelayerExhausted = errors.New("relayer cannot pay for transactions")

	// errRoundOver ends a worker round early; the rows it touched are back in the queue.
	errRoundOver = errors.New("dispatch round over")
)

// Config tunes dispatch.
type Config struct {
	ConfirmTimeout time.Duration
	// GasHeadroomBips is applied to every gas estimate.
	GasHeadroomBips int64
	Audit           AuditConfig
}

// AuditConfig tunes batching of audit rows.
type AuditConfig struct {
	FlushSize     int
	FlushInterval time.Duration
	RPS           int
}

// Service runs one worker per relayer of a batch.
type Service struct {
	repo      Repository
	chain     Chain
	pricer    Pricer
	committer Committer
	keys      Keys
	waiter    Waiter
	retrier   Retrier
	signer    *chain.Signer
	audit     *auditLog
	metrics   Metrics
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

// New builds a dispatcher Service. sink may be nil to disable the audit log.
func New(
	repo Repository,
	client Chain,
	pricer Pricer,
	committer Committer,
	keys Keys,
	waiter Waiter,
	retrier Retrier,
	signer *chain.Signer,
	sink AuditSink,
	metrics Metrics,
	logger *zap.Logger,
	cfg Config,
) (*Service, error) {
	if metrics == nil {
		return nil, errors.New("dispatcher metrics is required")
	}
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if retrier == nil {
		return nil, errors.New("retrier is required")
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	if cfg.GasHeadroomBips <= 0 {
		cfg.GasHeadroomBips = defaultGasHeadroomBips
	}
	logger = logger.Named("dispatcher")
	return &Service{
		repo:      repo,
		chain:     client,
		pricer:    pricer,
		committer: committer,
		keys:      keys,
		waiter:    waiter,
		retrier:   retrier,
		signer:    signer,
		audit:     newAuditLog(sink, logger, cfg.Audit),
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// Start begins flushing audit rows in the background.
func (s *Service) Start(ctx context.Context) {
	s.audit.start(ctx)
}

// Stop flushes the remaining audit rows.
func (s *Service) Stop() {
	s.audit.stop()
}

// Run works the batch with one worker per relayer until no relayer can claim
// another row. A failing relayer does not stop the others; their errors are joined.
func (s *Service) Run(ctx context.Context, batch model.Batch, relayers []model.Relayer) error {
	if len(relayers) == 0 {
		return nil
	}
	return workerpool.ProcessEach(ctx, len(relayers), relayers, func(ctx context.Context, r model.Relayer) error {
		w := s.newWorker(batch, r)
		if err := w.run(ctx); err != nil {
			w.logger.Warn("relayer worker stopped", zap.Error(err))
			return fmt.Errorf("relayer %s: %w", r.Address.Hex(), err)
		}
		return nil
	})
}
