// Package batcher provides a generic buffered batch processor with rate limiting.
package batcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

const (
	// retainFactor bounds how many flushSize batches are kept after failed flushes.
	retainFactor = 4

	finalFlushTimeout = 10 * time.Second
)

// Batcher buffers items and flushes them either by size or interval.
// Items of a failed flush are kept and retried with the next flush, up to
// retainFactor*flushSize items; beyond that the oldest are dropped.
type Batcher[T any] struct {
	flushCallback func(context.Context, []T) error
	itemsCh       chan T
	flushSize     int
	flushInterval time.Duration
	rl            ratelimit.Limiter
	logger        *zap.Logger

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// New constructs a Batcher.
func New[T any](logger *zap.Logger, flushCallback func(context.Context, []T) error, flushSize int, flushInterval time.Duration, rps int) *Batcher[T] {
	if flushSize <= 0 {
		flushSize = 1
	}
	return &Batcher[T]{
		logger:        logger,
		flushCallback: flushCallback,
		itemsCh:       make(chan T, flushSize*2),
		flushSize:     flushSize,
		flushInterval: flushInterval,
		rl:            ratelimit.New(rps),
		stop:          make(chan struct{}),
	}
}

// Start begins the background flushing loop.
func (b *Batcher[T]) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.run(ctx)
}

// Stop flushes what is buffered and stops the background loop. It is safe to call twice.
func (b *Batcher[T]) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
}

// Add queues an item for batching, respecting context cancellation.
func (b *Batcher[T]) Add(ctx context.Context, item T) error {
	select {
	case <-b.stop:
		return context.Canceled
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stop:
		return context.Canceled
	case b.itemsCh <- item:
		return nil
	}
}

func (b *Batcher[T]) run(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	buf := make([]T, 0, b.flushSize)
	limit := b.flushSize * retainFactor
	// failing holds size-triggered flushes back until the next tick.
	failing := false

	flush := func(ctx context.Context) {
		if len(buf) == 0 {
			return
		}

		b.rl.Take()
		err := b.flushCallback(ctx, buf)
		if err == nil {
			b.logger.Debug("batch flushed", zap.Int("size", len(buf)))
			buf = buf[:0]
			failing = false
			return
		}
		failing = true

		if dropped := len(buf) - limit; dropped > 0 {
			b.logger.Error("batch not flushed, dropping oldest items",
				zap.Int("dropped", dropped), zap.Error(err))
			buf = append(buf[:0], buf[dropped:]...)
			return
		}
		b.logger.Warn("batch not flushed, retained for next flush",
			zap.Int("size", len(buf)), zap.Error(err))
	}

	final := func() {
	drain:
		for {
			select {
			case item := <-b.itemsCh:
				buf = append(buf, item)
			default:
				break drain
			}
		}
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
		defer cancel()
		flush(flushCtx)
		if len(buf) > 0 {
			b.logger.Error("items lost on shutdown", zap.Int("size", len(buf)))
		}
	}

	for {
		select {
		case <-ctx.Done():
			final()
			return

		case <-b.stop:
			final()
			return

		case item := <-b.itemsCh:
			buf = append(buf, item)
			if len(buf) >= b.flushSize && !failing {
				flush(ctx)
			}

		case <-ticker.C:
			flush(ctx)
		}
	}
}
