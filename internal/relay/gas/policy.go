// Package gas prices relayer transactions from live network fee data.
package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/units"
)

var (
	// ErrCeilingBelowNetwork is returned when the configured ceiling would underprice a
	// transaction against the live network price. Submission must wait for an operator
	// or for the network price to drop.
	ErrCeilingBelowNetwork = errors.New("gas ceiling below network price")
	// ErrNoBumpHeadroom is returned when a replacement cannot be priced above the previous attempt.
	ErrNoBumpHeadroom = errors.New("no gas bump headroom under ceiling")
)

const defaultBumpBips int64 = 11_000

// Config is the operator pricing policy.
type Config struct {
	// Ceiling is the highest price in wei ever attached. Nil or zero disables the cap.
	Ceiling *big.Int
	// Boosts maps a transaction class to a multiplier in basis points.
	// Classes without an entry use 10000.
	Boosts map[model.TxClass]int64
	// BumpBips multiplies the previous price of a replacement, in basis points.
	BumpBips int64
}

// Validate checks that no multiplier can price below the network.
func (c Config) Validate() error {
	for class, bips := range c.Boosts {
		if bips < units.BipsOne {
			return fmt.Errorf("boost for %s is %d bips, must be at least %d", class, bips, units.BipsOne)
		}
	}
	if c.BumpBips != 0 && c.BumpBips <= units.BipsOne {
		return fmt.Errorf("bump is %d bips, must exceed %d", c.BumpBips, units.BipsOne)
	}
	if c.Ceiling != nil && c.Ceiling.Sign() < 0 {
		return errors.New("gas ceiling is negative")
	}
	return nil
}

// Quote is a priced network snapshot.
type Quote struct {
	Network *big.Int
	Price   *big.Int
}

// Policy computes gas prices for relayer transactions.
type Policy struct {
	cfg     Config
	source  NetworkPricer
	metrics Metrics
}

// NewPolicy builds a Policy.
func NewPolicy(cfg Config, source NetworkPricer, metrics Metrics) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("network pricer is required")
	}
	if metrics == nil {
		return nil, errors.New("gas metrics is required")
	}
	if cfg.BumpBips == 0 {
		cfg.BumpBips = defaultBumpBips
	}
	return &Policy{cfg: cfg, source: source, metrics: metrics}, nil
}

// Quote fetches the network price and prices class against it.
func (p *Policy) Quote(ctx context.Context, class model.TxClass) (Quote, error) {
	network, err := p.source.SuggestGasPrice(ctx)
	if err != nil {
		p.metrics.ObserveQuote(string(class), err)
		return Quote{}, fmt.Errorf("suggest gas price: %w", err)
	}
	price, err := p.Price(class, network)
	p.metrics.ObserveQuote(string(class), err)
	if err != nil {
		return Quote{Network: network}, err
	}
	return Quote{Network: network, Price: price}, nil
}

// Price returns network * boost(class), capped at the ceiling. It refuses when the
// ceiling is below the network price.
func (p *Policy) Price(class model.TxClass, network *big.Int) (*big.Int, error) {
	if network == nil || network.Sign() <= 0 {
		return nil, fmt.Errorf("invalid network gas price %v", network)
	}
	if err := p.checkCeiling(network); err != nil {
		return nil, err
	}
	return p.clamp(units.MulBips(network, p.boost(class))), nil
}

// Bump prices a replacement for a transaction previously sent at prev. The result is
// max(prev * bump, network * boost(class)) capped at the ceiling and must exceed prev.
func (p *Policy) Bump(class model.TxClass, prev, network *big.Int) (*big.Int, error) {
	if prev == nil || prev.Sign() <= 0 {
		return p.Price(class, network)
	}
	if network == nil || network.Sign() <= 0 {
		return nil, fmt.Errorf("invalid network gas price %v", network)
	}
	if err := p.checkCeiling(network); err != nil {
		return nil, err
	}

	bumped := units.MulBips(prev, p.cfg.BumpBips)
	if fresh := units.MulBips(network, p.boost(class)); fresh.Cmp(bumped) > 0 {
		bumped = fresh
	}
	bumped = p.clamp(bumped)
	if bumped.Cmp(prev) <= 0 {
		return nil, fmt.Errorf("%w: previous %s wei, ceiling %s wei", ErrNoBumpHeadroom, prev, p.cfg.Ceiling)
	}
	return bumped, nil
}

// Ceiling returns the configured ceiling or nil when uncapped.
func (p *Policy) Ceiling() *big.Int {
	if !p.capped() {
		return nil
	}
	return new(big.Int).Set(p.cfg.Ceiling)
}

func (p *Policy) boost(class model.TxClass) int64 {
	if bips, ok := p.cfg.Boosts[class]; ok {
		return bips
	}
	return units.BipsOne
}

func (p *Policy) capped() bool {
	return p.cfg.Ceiling != nil && p.cfg.Ceiling.Sign() > 0
}

func (p *Policy) checkCeiling(network *big.Int) error {
	if p.capped() && p.cfg.Ceiling.Cmp(network) < 0 {
		return fmt.Errorf("%w: ceiling %s wei, network %s wei", ErrCeilingBelowNetwork, p.cfg.Ceiling, network)
	}
	return nil
}

func (p *Policy) clamp(price *big.Int) *big.Int {
	if p.capped() && price.Cmp(p.cfg.Ceiling) > 0 {
		return new(big.Int).Set(p.cfg.Ceiling)
	}
	return price
}
