package provisioner

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
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
		SetBatchStatus(ctx context.Context, batchID int64, from, to model.BatchStatus, reason string) error
		InsertRelayers(ctx context.Context, relayers []model.Relayer) ([]model.Relayer, error)
		SetRelayersStatus(ctx context.Context, batchID int64, from, to model.RelayerStatus) (int64, error)
		UpdateRelayerBalance(ctx context.Context, relayer common.Address, balance *big.Int) error
	}
	Chain interface {
		BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
		PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
		EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
		SendTransaction(ctx context.Context, tx *types.Transaction) error
	}
	Pricer interface {
		Quote(ctx context.Context, class model.TxClass) (gas.Quote, error)
	}
	Keys interface {
		Get(ctx context.Context, addr common.Address, ref string) (*ecdsa.PrivateKey, error)
	}
	SecretStore interface {
		Store(ctx context.Context, ref, value string) error
	}
	Waiter interface {
		WaitMined(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error)
	}
	Metrics interface {
		ObserveProvision(outcome string, relayers int)
	}
)
