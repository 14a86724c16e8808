package dispatcher

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
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/retrier"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/service/committer"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Repository interface {
		Batch(ctx context.Context, id int64) (model.Batch, error)
		ClaimNextTransaction(ctx context.Context, batchID int64, relayer common.Address) (model.BatchTransaction, error)
		MarkTransactionSubmitted(ctx context.Context, s model.Submission) error
		ReleaseTransaction(ctx context.Context, txID int64, relayer common.Address, incrementRetry bool, reason string) error
		ReassignTransaction(ctx context.Context, txID int64, reason string) error
		RecordRetry(ctx context.Context, txID int64, relayer common.Address, reason string) (int, error)
		CompleteTransaction(ctx context.Context, s model.Settlement) (model.BatchStatus, error)
		FailTransaction(ctx context.Context, txID int64, reason string, incrementRetry bool) (model.BatchStatus, error)
		TransactionByRelayerNonce(ctx context.Context, relayer common.Address, nonce uint64) (model.BatchTransaction, error)
		UpdateRelayerBalance(ctx context.Context, relayer common.Address, balance *big.Int) error
		StaleTransactions(ctx context.Context, status model.TxStatus, olderThan time.Time, limit int) ([]model.BatchTransaction, error)
		ReconcileBatchCounts(ctx context.Context, batchID int64) (model.Reconciliation, error)
	}
	Chain interface {
		NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
		PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
		BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
		CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
		EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
		SendTransaction(ctx context.Context, tx *types.Transaction) error
		TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	}
	Pricer interface {
		Quote(ctx context.Context, class model.TxClass) (gas.Quote, error)
		Bump(class model.TxClass, prev *big.Int, network *big.Int) (*big.Int, error)
	}
	Committer interface {
		SettleCall(ctx context.Context, batch model.Batch, tx model.BatchTransaction) (committer.SettleCall, error)
		LeafProcessed(ctx context.Context, batch model.Batch, leaf common.Hash) (bool, error)
	}
	Keys interface {
		Get(ctx context.Context, addr common.Address, ref string) (*ecdsa.PrivateKey, error)
	}
	Waiter interface {
		WaitMined(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.Receipt, error)
	}
	Retrier interface {
		Decide(retryCount int, err error) retrier.Decision
		Do(ctx context.Context, op func() error) error
	}
	AuditSink interface {
		InsertDispatchAttempts(ctx context.Context, attempts []model.DispatchAttempt) error
	}
	Metrics interface {
		ObserveAttempt(outcome string)
		ObserveConfirmation(started time.Time)
		ObserveStuckNonces(count int)
		ObserveRecovered(status string, action string)
		ObserveCountDrift(repaired bool)
	}
)
