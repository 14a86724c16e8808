package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goodnatureofminers/batchrelay-backend/internal/clock"
)

// Waiter waits for receipts with a bounded timeout, polling on every new head
// and at least every poll interval.
type Waiter struct {
	receipts ReceiptReader
	heads    *Heads
	poll     time.Duration
}

// NewWaiter builds a Waiter. heads may be nil.
func NewWaiter(receipts ReceiptReader, heads *Heads, poll time.Duration) *Waiter {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Waiter{receipts: receipts, heads: heads, poll: poll}
}

// WaitMined returns the receipt of hash. It returns ErrConfirmationTimeout when
// the transaction is not mined within timeout, and a *RevertError wrapping
// ErrReverted together with the receipt when it was mined but failed.
func (w *Waiter) WaitMined(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var signal <-chan struct{}
	if w.heads != nil {
		ch, release := w.heads.Subscribe()
		defer release()
		signal = ch
	}

	var lastErr error
	for {
		receipt, err := w.receipts.TransactionReceipt(waitCtx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, &RevertError{Err: fmt.Errorf("transaction %s mined with status %d", hash.Hex(), receipt.Status)}
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			lastErr = err
		}

		if err := clock.WaitSignal(waitCtx, w.poll, signal); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %s: last receipt error: %v", ErrConfirmationTimeout, hash.Hex(), lastErr)
			}
			return nil, fmt.Errorf("%w: %s", ErrConfirmationTimeout, hash.Hex())
		}
	}
}
