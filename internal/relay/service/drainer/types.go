package drainer

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/gas"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Repository interface {
		Batch(ctx context.Context, id int64) (model.Batch, error)
		Faucet(ctx context.Context, id int64) (model.Faucet, error)
		UndrainedRelayers(ctx context.Context, batchID int64) ([]model.Relayer, error)
		RecordDrainTx(ctx context.Context, relayer common.Address, txHash common.Hash) error
		MarkRelayerDrained(ctx context.Context, relayer common.Address, txHash *common.Hash, balance *big.Int) error
	}
	Chain interface {
		BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
		PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
		SendTransaction(ctx context.Context, tx *types.Transaction) error
	}
	Pricer interface {
		Quote(ctx context.Context, class model.TxClass) (gas.Quote, error)
	}
	Keys interface {
		Get(ctx context.Context, addr common.Address, ref string) (*ecdsa.PrivateKey, error)
		Evict(addr common.Address)
	}
	Waiter interface {
		WaitMined(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error)
	}
	Metrics interface {
		ObserveSweep(outcome string, recovered *big.Int)
	}
)
