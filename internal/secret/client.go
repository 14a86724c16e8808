// Package secret is a client for the Vault key custody service.
//
// Relayer and faucet private keys are stored as KV v2 secrets. A sealed Vault
// is reported as ErrSealed and must block every signing operation.
package secret

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/vault/api"
)

var (
	// ErrSealed is returned while Vault is sealed.
	ErrSealed = errors.New("secret manager is sealed")
	// ErrNotFound is returned when a reference has no stored secret.
	ErrNotFound = errors.New("secret not found")
)

const valueField = "private_key"

// Config configures the Vault client.
type Config struct {
	Address    string
	Token      string
	Mount      string
	MaxRetries int
	Timeout    time.Duration
	// StatusTTL bounds how long a seal status answer is reused by Sealed.
	StatusTTL time.Duration
}

// SealStatus reports the unseal progress.
type SealStatus struct {
	Sealed    bool
	Threshold int
	Shares    int
	Progress  int
}

// Client reads and writes secrets in Vault.
type Client struct {
	vault     *api.Client
	mount     string
	metrics   Metrics
	statusTTL time.Duration
	now       func() time.Time

	mu        sync.Mutex
	sealed    bool
	checkedAt time.Time
}

// NewClient builds a Client.
func NewClient(cfg Config, metrics Metrics) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("vault address is required")
	}
	if cfg.Mount == "" {
		return nil, errors.New("vault kv mount is required")
	}
	if metrics == nil {
		return nil, errors.New("secret metrics is required")
	}

	vcfg := api.DefaultConfig()
	if vcfg.Error != nil {
		return nil, fmt.Errorf("vault default config: %w", vcfg.Error)
	}
	vcfg.Address = cfg.Address
	vcfg.MaxRetries = cfg.MaxRetries
	if cfg.Timeout > 0 {
		vcfg.Timeout = cfg.Timeout
	}

	vault, err := api.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if cfg.Token != "" {
		vault.SetToken(cfg.Token)
	}

	ttl := cfg.StatusTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Client{
		vault:     vault,
		mount:     cfg.Mount,
		metrics:   metrics,
		statusTTL: ttl,
		now:       time.Now,
	}, nil
}

// NewRef returns a fresh secret reference for an account of kind owned by batchID.
func NewRef(kind string, batchID int64) string {
	return fmt.Sprintf("%s/%d/%s", kind, batchID, uuid.NewString())
}

// Fetch returns the secret stored under ref.
func (c *Client) Fetch(ctx context.Context, ref string) (value string, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("fetch", err, started)
	}()

	s, err := c.vault.KVv2(c.mount).Get(ctx, ref)
	if err != nil {
		return "", c.mapError(fmt.Errorf("read secret %s: %w", ref, err))
	}
	raw, ok := s.Data[valueField]
	if !ok {
		return "", fmt.Errorf("%w: %s has no %s field", ErrNotFound, ref, valueField)
	}
	value, ok = raw.(string)
	if !ok {
		return "", fmt.Errorf("secret %s field %s is %T", ref, valueField, raw)
	}
	return value, nil
}

// Store writes value under ref.
func (c *Client) Store(ctx context.Context, ref, value string) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("store", err, started)
	}()

	if _, err = c.vault.KVv2(c.mount).Put(ctx, ref, map[string]interface{}{valueField: value}); err != nil {
		return c.mapError(fmt.Errorf("write secret %s: %w", ref, err))
	}
	return nil
}

// SealStatus queries the current seal status.
func (c *Client) SealStatus(ctx context.Context) (status SealStatus, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("seal_status", err, started)
	}()

	resp, err := c.vault.Sys().SealStatusWithContext(ctx)
	if err != nil {
		return SealStatus{}, fmt.Errorf("seal status: %w", err)
	}
	status = toStatus(resp)
	c.remember(status.Sealed)
	return status, nil
}

// Sealed reports whether Vault is sealed, reusing a recent answer.
func (c *Client) Sealed(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if !c.checkedAt.IsZero() && c.now().Sub(c.checkedAt) < c.statusTTL {
		sealed := c.sealed
		c.mu.Unlock()
		return sealed, nil
	}
	c.mu.Unlock()

	status, err := c.SealStatus(ctx)
	if err != nil {
		return false, err
	}
	return status.Sealed, nil
}

// Unseal submits one unseal key share.
func (c *Client) Unseal(ctx context.Context, share string) (status SealStatus, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("unseal", err, started)
	}()

	resp, err := c.vault.Sys().UnsealWithContext(ctx, share)
	if err != nil {
		return SealStatus{}, fmt.Errorf("unseal: %w", err)
	}
	status = toStatus(resp)
	c.remember(status.Sealed)
	return status, nil
}

func (c *Client) remember(sealed bool) {
	c.mu.Lock()
	c.sealed = sealed
	c.checkedAt = c.now()
	c.mu.Unlock()
}

func (c *Client) mapError(err error) error {
	if errors.Is(err, api.ErrSecretNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var respErr *api.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusServiceUnavailable {
		c.remember(true)
		return fmt.Errorf("%w: %v", ErrSealed, err)
	}
	return err
}

func toStatus(resp *api.SealStatusResponse) SealStatus {
	return SealStatus{
		Sealed:    resp.Sealed,
		Threshold: resp.T,
		Shares:    resp.N,
		Progress:  resp.Progress,
	}
}
