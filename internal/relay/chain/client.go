// Package chain wraps the EVM JSON-RPC boundary used by the relayer engine.
package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ObservedClient wraps a Backend with rate limiting and per-call metrics.
type ObservedClient struct {
	backend Backend
	limiter Limiter
	metrics RPCMetrics
}

// NewObservedClient constructs an instrumented client.
func NewObservedClient(backend Backend, limiter Limiter, metrics RPCMetrics) (*ObservedClient, error) {
	if backend == nil {
		return nil, errors.New("chain backend is required")
	}
	if limiter == nil {
		return nil, errors.New("rpc limiter is required")
	}
	if metrics == nil {
		return nil, errors.New("rpc metrics is required")
	}
	return &ObservedClient{backend: backend, limiter: limiter, metrics: metrics}, nil
}

func (c *ObservedClient) observe(operation string, err error, started time.Time) {
	if errors.Is(err, ethereum.NotFound) {
		err = nil
	}
	c.metrics.Observe(operation, err, started)
}

// BalanceAt returns the balance of account at blockNumber, or latest when nil.
func (c *ObservedClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (balance *big.Int, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("balance_at", err, started)
	}()
	return c.backend.BalanceAt(ctx, account, blockNumber)
}

// NonceAt returns the account nonce at blockNumber, or latest when nil.
func (c *ObservedClient) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (nonce uint64, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("nonce_at", err, started)
	}()
	return c.backend.NonceAt(ctx, account, blockNumber)
}

// PendingNonceAt returns the account nonce including pool transactions.
func (c *ObservedClient) PendingNonceAt(ctx context.Context, account common.Address) (nonce uint64, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("pending_nonce_at", err, started)
	}()
	return c.backend.PendingNonceAt(ctx, account)
}

// SuggestGasPrice returns the live network gas price.
func (c *ObservedClient) SuggestGasPrice(ctx context.Context) (price *big.Int, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("suggest_gas_price", err, started)
	}()
	return c.backend.SuggestGasPrice(ctx)
}

// SendTransaction broadcasts a signed transaction.
func (c *ObservedClient) SendTransaction(ctx context.Context, tx *types.Transaction) (err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("send_transaction", err, started)
	}()
	return c.backend.SendTransaction(ctx, tx)
}

// TransactionReceipt returns the receipt of a mined transaction or ethereum.NotFound.
func (c *ObservedClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (receipt *types.Receipt, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("transaction_receipt", err, started)
	}()
	return c.backend.TransactionReceipt(ctx, txHash)
}

// TransactionByHash returns a known transaction and whether it is still
// pending, or ethereum.NotFound.
func (c *ObservedClient) TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("transaction_by_hash", err, started)
	}()
	return c.backend.TransactionByHash(ctx, hash)
}

// CallContract executes a static call. Reverts are returned as *RevertError.
func (c *ObservedClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) (out []byte, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("call_contract", err, started)
	}()
	out, err = c.backend.CallContract(ctx, msg, blockNumber)
	return out, asRevert(err)
}

// EstimateGas estimates the gas needed by msg. Reverts are returned as *RevertError.
func (c *ObservedClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (gas uint64, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("estimate_gas", err, started)
	}()
	gas, err = c.backend.EstimateGas(ctx, msg)
	return gas, asRevert(err)
}

// ChainID returns the chain id of the connected node.
func (c *ObservedClient) ChainID(ctx context.Context) (id *big.Int, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.observe("chain_id", err, started)
	}()
	return c.backend.ChainID(ctx)
}

// SubscribeNewHead subscribes to new block headers.
func (c *ObservedClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (sub ethereum.Subscription, err error) {
	started := time.Now()
	defer func() {
		c.observe("subscribe_new_head", err, started)
	}()
	return c.backend.SubscribeNewHead(ctx, ch)
}
