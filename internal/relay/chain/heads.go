package chain

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goodnatureofminers/batchrelay-backend/internal/clock"
	"go.uber.org/zap"
)

// Heads fans new-head notifications out to every subscriber. Notifications are
// coalesced: a slow subscriber sees at most one pending signal.
type Heads struct {
	source HeadSubscriber
	logger *zap.Logger
	retry  time.Duration
	sleep  func(context.Context, time.Duration) error

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewHeads builds a Heads broadcaster. A nil source yields signals that never fire.
func NewHeads(source HeadSubscriber, logger *zap.Logger) *Heads {
	return &Heads{
		source: source,
		logger: logger,
		retry:  5 * time.Second,
		sleep:  clock.SleepWithContext,
		subs:   make(map[chan struct{}]struct{}),
	}
}

// Subscribe returns a signal channel and a function that releases it.
func (h *Heads) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Notify signals every subscriber.
func (h *Heads) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Run keeps a new-head subscription open until ctx is done, resubscribing after errors.
func (h *Heads) Run(ctx context.Context) error {
	if h.source == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		if err := h.follow(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			h.logger.Warn("new head subscription failed, resubscribing", zap.Error(err), zap.Duration("sleep", h.retry))
			if sleepErr := h.sleep(ctx, h.retry); sleepErr != nil {
				return sleepErr
			}
		}
	}
}

func (h *Heads) follow(ctx context.Context) error {
	headers := make(chan *types.Header, 16)
	sub, err := h.source.SubscribeNewHead(ctx, headers)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case header := <-headers:
			if header != nil {
				h.logger.Debug("new head", zap.Uint64("number", header.Number.Uint64()))
			}
			h.Notify()
		}
	}
}
