package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Backend is the subset of *ethclient.Client the engine uses.
	Backend interface {
		BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
		NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
		PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
		SuggestGasPrice(ctx context.Context) (*big.Int, error)
		SendTransaction(ctx context.Context, tx *types.Transaction) error
		TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
		TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
		CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
		EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
		ChainID(ctx context.Context) (*big.Int, error)
		SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	}
	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
	// Limiter throttles outgoing RPC calls.
	Limiter interface {
		Take() time.Time
	}
	// ReceiptReader fetches receipts.
	ReceiptReader interface {
		TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	}
	// HeadSubscriber opens new-head subscriptions.
	HeadSubscriber interface {
		SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	}
)
