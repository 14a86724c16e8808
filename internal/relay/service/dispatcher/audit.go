package dispatcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/batcher"
)

// auditLog ships dispatch attempts to the audit sink in batches. Audit rows
// are best effort: a full or stopped log never blocks dispatch.
type auditLog struct {
	b      *batcher.Batcher[model.DispatchAttempt]
	logger *zap.Logger
}

func newAuditLog(sink AuditSink, logger *zap.Logger, cfg AuditConfig) *auditLog {
	if sink == nil {
		return &auditLog{logger: logger}
	}
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = defaultAuditFlushSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultAuditFlushInterval
	}
	if cfg.RPS <= 0 {
		cfg.RPS = defaultAuditRPS
	}
	return &auditLog{
		b:      batcher.New(logger.Named("audit"), sink.InsertDispatchAttempts, cfg.FlushSize, cfg.FlushInterval, cfg.RPS),
		logger: logger,
	}
}

func (a *auditLog) start(ctx context.Context) {
	if a.b != nil {
		a.b.Start(ctx)
	}
}

func (a *auditLog) stop() {
	if a.b != nil {
		a.b.Stop()
	}
}

func (a *auditLog) record(ctx context.Context, attempt model.DispatchAttempt) {
	if a.b == nil {
		return
	}
	if err := a.b.Add(ctx, attempt); err != nil {
		a.logger.Debug("audit row dropped", zap.Int64("tx_id", attempt.TxID), zap.Error(err))
	}
}
