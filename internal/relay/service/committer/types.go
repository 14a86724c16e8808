package committer

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
		TransactionsByBatch(ctx context.Context, batchID int64) ([]model.BatchTransaction, error)
		ReplaceMerkleNodes(ctx context.Context, batchID int64, levels [][]common.Hash) error
		MerkleNodes(ctx context.Context, batchID int64) ([]model.MerkleNode, error)
		SetMerkleRoot(ctx context.Context, batchID int64, root common.Hash, commitTx *common.Hash) error
		MarkLeavesVerified(ctx context.Context, batchID int64, indexes []int) error
	}
	Chain interface {
		CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
		EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
		PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
		SendTransaction(ctx context.Context, tx *types.Transaction) error
		TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	}
	Pricer interface {
		Quote(ctx context.Context, class model.TxClass) (gas.Quote, error)
		Bump(class model.TxClass, prev *big.Int, network *big.Int) (*big.Int, error)
	}
	Keys interface {
		Get(ctx context.Context, addr common.Address, ref string) (*ecdsa.PrivateKey, error)
	}
	Waiter interface {
		WaitMined(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error)
	}
	Metrics interface {
		ObserveCommit(outcome string)
		ObserveVerifiedLeaves(count int)
	}
)
