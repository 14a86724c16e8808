package retrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
)

// Action is what the dispatcher does with a transaction after a failure.
type Action string

var (
	// ActionBump re-prices and re-sends at the same nonce.
	ActionBump Action = "bump"
	// ActionResync reloads the relayer nonce from chain and sends again.
	ActionResync Action = "resync"
	// ActionRelease returns the transaction to the pending queue.
	ActionRelease Action = "release"
	// ActionFail marks the transaction failed.
	ActionFail Action = "fail"
	// ActionAwait treats the transaction as broadcast and waits for its receipt.
	ActionAwait Action = "await"
)

// Decision is the controller verdict for one failure.
type Decision struct {
	Action Action
	Class  Class
	// Increment is true when retry_count must grow by one.
	Increment bool
	// StopRelayer is true when the relayer can do no further work.
	StopRelayer bool
	Reason      string
}

// Config bounds retries.
type Config struct {
	// MaxRetries is the retry_count at which a transaction becomes failed.
	MaxRetries int
	// TransientAttempts is how many times a transient call is tried in place.
	TransientAttempts uint
	// TransientDelay is the base back-off between in-place attempts.
	TransientDelay time.Duration
	// MaxTransientDelay caps the back-off.
	MaxTransientDelay time.Duration
	// RateLimitFactor multiplies the back-off after a rate-limit response.
	RateLimitFactor int
}

// Controller decides how dispatch failures are handled.
type Controller struct {
	cfg     Config
	metrics Metrics
}

// NewController builds a Controller.
func NewController(cfg Config, metrics Metrics) (*Controller, error) {
	if cfg.MaxRetries <= 0 {
		return nil, errors.New("max retries must be positive")
	}
	if metrics == nil {
		return nil, errors.New("retrier metrics is required")
	}
	if cfg.TransientAttempts == 0 {
		cfg.TransientAttempts = 3
	}
	if cfg.TransientDelay <= 0 {
		cfg.TransientDelay = 200 * time.Millisecond
	}
	if cfg.MaxTransientDelay <= 0 {
		cfg.MaxTransientDelay = 5 * time.Second
	}
	if cfg.RateLimitFactor <= 0 {
		cfg.RateLimitFactor = 4
	}
	return &Controller{cfg: cfg, metrics: metrics}, nil
}

// MaxRetries returns the configured retry budget.
func (c *Controller) MaxRetries() int {
	return c.cfg.MaxRetries
}

// Decide returns the next step for a transaction with retryCount that failed with err.
func (c *Controller) Decide(retryCount int, err error) Decision {
	class := Classify(err)
	d := Decision{Class: class, Reason: err.Error()}

	switch class {
	case ClassCeiling, ClassTransient, ClassRateLimited:
		// Endpoint trouble never counts against the transaction.
		d.Action = ActionRelease
	case ClassInsufficientFunds:
		d.Action = ActionRelease
		d.StopRelayer = true
	case ClassAlreadyKnown:
		d.Action = ActionAwait
	case ClassUnderpriced:
		d.Action = ActionBump
		d.Increment = true
	case ClassNonceConflict:
		d.Action = ActionResync
		d.Increment = true
	case ClassRevert:
		d.Action = ActionFail
	default:
		d.Action = ActionRelease
		d.Increment = true
	}

	if d.Increment && retryCount+1 >= c.cfg.MaxRetries {
		d.Action = ActionFail
		d.Reason = fmt.Sprintf("retry budget exhausted after %d attempts: %s", retryCount+1, d.Reason)
	}

	c.metrics.ObserveDecision(string(d.Class), string(d.Action))
	return d
}

// Do runs op, retrying transient, rate-limited and unknown failures in place with back-off.
// Other failures, or the last transient one, are returned classified.
func (c *Controller) Do(ctx context.Context, op func() error) error {
	err := retry.Do(
		op,
		retry.Context(ctx),
		retry.Attempts(c.cfg.TransientAttempts),
		retry.Delay(c.cfg.TransientDelay),
		retry.DelayType(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return Classify(err).Retryable()
		}),
		retry.OnRetry(func(_ uint, err error) {
			c.metrics.ObserveTransientRetry(string(Classify(err)))
		}),
	)
	return Wrap(err)
}

func (c *Controller) delay(n uint, err error, cfg *retry.Config) time.Duration {
	d := retry.BackOffDelay(n, err, cfg)
	if d > c.cfg.MaxTransientDelay {
		d = c.cfg.MaxTransientDelay
	}
	if Classify(err) == ClassRateLimited {
		d *= time.Duration(c.cfg.RateLimitFactor)
	}
	return d
}
