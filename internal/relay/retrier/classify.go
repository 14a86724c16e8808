// Package retrier classifies dispatch failures and decides what happens next.
package retrier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/chain"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/gas"
)

// Class is a dispatch failure class.
type Class string

var (
	ClassTransient         Class = "transient"
	ClassRateLimited       Class = "rate_limited"
	ClassUnderpriced       Class = "underpriced"
	ClassNonceConflict     Class = "nonce_conflict"
	ClassRevert            Class = "revert"
	ClassCeiling           Class = "gas_ceiling"
	ClassAlreadyKnown      Class = "already_known"
	ClassInsufficientFunds Class = "insufficient_funds"
	// ClassUnknown is an error nothing else recognises.
	ClassUnknown Class = "unknown"
)

// JSON-RPC "limit exceeded" code used by most providers for throttling.
const rpcLimitExceeded = -32005

// Failure carries a classified dispatch error.
type Failure struct {
	Class Class
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Class, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Wrap classifies err. It returns nil for a nil error and keeps an existing Failure.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	return &Failure{Class: Classify(err), Err: err}
}

// Classify maps an error returned by the chain boundary to a failure class.
// Unrecognised errors are ClassUnknown and count against the retry budget.
func Classify(err error) Class {
	var f *Failure
	if errors.As(err, &f) {
		return f.Class
	}

	switch {
	case errors.Is(err, gas.ErrCeilingBelowNetwork), errors.Is(err, gas.ErrNoBumpHeadroom):
		return ClassCeiling
	case errors.Is(err, chain.ErrReverted):
		return ClassRevert
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ClassTransient
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		return ClassRateLimited
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == rpcLimitExceeded {
		return ClassRateLimited
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "already known", "known transaction", "already imported"):
		return ClassAlreadyKnown
	case containsAny(msg, "underpriced", "fee too low", "max fee per gas less than block base fee"):
		return ClassUnderpriced
	case containsAny(msg, "nonce too low", "nonce too high", "invalid nonce"):
		return ClassNonceConflict
	case containsAny(msg, "insufficient funds"):
		return ClassInsufficientFunds
	case containsAny(msg, "execution reverted", "revert"):
		return ClassRevert
	case containsAny(msg, "too many requests", "rate limit", "429"):
		return ClassRateLimited
	case containsAny(msg, "connection reset", "connection refused", "broken pipe", "i/o timeout", "timeout", "eof",
		"no such host", "unavailable", "bad gateway", "gateway timeout"):
		return ClassTransient
	default:
		return ClassUnknown
	}
}

// Retryable reports whether a class may be retried in place without touching the row.
func (c Class) Retryable() bool {
	return c == ClassTransient || c == ClassRateLimited || c == ClassUnknown
}

// Infrastructure reports whether a class is an endpoint problem rather than
// something wrong with the transaction itself.
func (c Class) Infrastructure() bool {
	return c == ClassTransient || c == ClassRateLimited
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
