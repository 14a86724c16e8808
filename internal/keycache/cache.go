// Package keycache keeps decrypted signing keys in memory for a bounded time.
package keycache

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goodnatureofminers/batchrelay-backend/internal/clock"
	"github.com/goodnatureofminers/batchrelay-backend/internal/secret"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrAddressMismatch is returned when a stored key does not derive the expected address.
var ErrAddressMismatch = errors.New("key does not match address")

type entry struct {
	key       *ecdsa.PrivateKey
	expiresAt time.Time
}

// Config bounds the cache.
type Config struct {
	Size          int
	TTL           time.Duration
	SweepInterval time.Duration
}

// Cache maps account addresses to private keys fetched from the secret manager.
// Entries expire after TTL and are removed by Sweep, which Run calls on a ticker.
type Cache struct {
	fetcher SecretFetcher
	seal    SealChecker
	metrics Metrics
	logger  *zap.Logger
	ttl     time.Duration
	every   time.Duration
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error

	entries *lru.Cache[common.Address, entry]
	// collapses concurrent fetches of one cold address
	flights singleflight.Group
}

// New builds a Cache.
func New(cfg Config, fetcher SecretFetcher, seal SealChecker, metrics Metrics, logger *zap.Logger) (*Cache, error) {
	if fetcher == nil {
		return nil, errors.New("secret fetcher is required")
	}
	if seal == nil {
		return nil, errors.New("seal checker is required")
	}
	if metrics == nil {
		return nil, errors.New("key cache metrics is required")
	}
	if cfg.Size <= 0 {
		cfg.Size = 1024
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("key cache ttl must be positive")
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.TTL / 2
	}

	entries, err := lru.New[common.Address, entry](cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{
		fetcher: fetcher,
		seal:    seal,
		metrics: metrics,
		logger:  logger,
		ttl:     cfg.TTL,
		every:   cfg.SweepInterval,
		now:     time.Now,
		sleep:   clock.SleepWithContext,
		entries: entries,
	}, nil
}

// Get returns the private key for addr, fetching it from the secret manager under
// ref when it is not cached. A sealed secret manager fails every call with secret.ErrSealed.
func (c *Cache) Get(ctx context.Context, addr common.Address, ref string) (*ecdsa.PrivateKey, error) {
	sealed, err := c.seal.Sealed(ctx)
	if err != nil {
		c.metrics.ObserveLookup("error")
		return nil, fmt.Errorf("check seal status: %w", err)
	}
	if sealed {
		c.metrics.ObserveLookup("sealed")
		return nil, secret.ErrSealed
	}

	if key, ok := c.cached(addr); ok {
		c.metrics.ObserveLookup("hit")
		return key, nil
	}

	// The fetch outlives a cancelled caller so others waiting on it still get
	// the key. The secret manager client bounds it with its own timeout.
	flight := c.flights.DoChan(addr.Hex(), func() (interface{}, error) {
		return c.load(context.WithoutCancel(ctx), addr, ref)
	})
	select {
	case <-ctx.Done():
		c.metrics.ObserveLookup("error")
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			c.metrics.ObserveLookup("error")
			return nil, res.Err
		}
		c.metrics.ObserveLookup("miss")
		return res.Val.(*ecdsa.PrivateKey), nil
	}
}

func (c *Cache) cached(addr common.Address) (*ecdsa.PrivateKey, bool) {
	e, ok := c.entries.Get(addr)
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.entries.Remove(addr)
		return nil, false
	}
	return e.key, true
}

func (c *Cache) load(ctx context.Context, addr common.Address, ref string) (*ecdsa.PrivateKey, error) {
	// A flight that finished between the caller's miss and this one already
	// filled the entry.
	if key, ok := c.cached(addr); ok {
		return key, nil
	}

	raw, err := c.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch key for %s: %w", addr.Hex(), err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode key for %s: %w", addr.Hex(), err)
	}
	if derived := crypto.PubkeyToAddress(key.PublicKey); derived != addr {
		return nil, fmt.Errorf("%w: %s derives %s", ErrAddressMismatch, addr.Hex(), derived.Hex())
	}

	c.entries.Add(addr, entry{key: key, expiresAt: c.now().Add(c.ttl)})
	return key, nil
}

// Evict drops the key for addr.
func (c *Cache) Evict(addr common.Address) {
	c.entries.Remove(addr)
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.now()
	removed := 0
	for _, addr := range c.entries.Keys() {
		e, ok := c.entries.Peek(addr)
		if ok && !now.Before(e.expiresAt) {
			c.entries.Remove(addr)
			removed++
		}
	}
	c.metrics.ObserveEvictions(removed)
	return removed
}

// Len returns the number of cached keys, expired ones included.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached key.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Run sweeps expired entries until ctx is done, then purges the cache.
func (c *Cache) Run(ctx context.Context) error {
	defer c.Purge()
	for {
		if err := c.sleep(ctx, c.every); err != nil {
			return err
		}
		if removed := c.Sweep(); removed > 0 {
			c.logger.Debug("expired keys evicted", zap.Int("count", removed))
		}
	}
}
