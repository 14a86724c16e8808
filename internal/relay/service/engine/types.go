package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/service/drainer"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Repository interface {
		Batch(ctx context.Context, id int64) (model.Batch, error)
		ActiveRelayers(ctx context.Context, batchID int64) ([]model.Relayer, error)
		SetBatchStatus(ctx context.Context, batchID int64, from model.BatchStatus, to model.BatchStatus, reason string) error
		RunnableBatches(ctx context.Context, limit int) ([]model.Batch, error)
	}
	Committer interface {
		EnsureCommitted(ctx context.Context, batchID int64) (common.Hash, error)
		MarkSettled(ctx context.Context, batchID int64) (int, error)
	}
	Provisioner interface {
		Provision(ctx context.Context, batchID int64, count int, amountEach *big.Int) ([]model.Relayer, error)
	}
	Dispatcher interface {
		Run(ctx context.Context, batch model.Batch, relayers []model.Relayer) error
	}
	Reconciler interface {
		Run(ctx context.Context)
		ReconcileCounts(ctx context.Context, batchID int64) (model.Reconciliation, error)
	}
	Drainer interface {
		Drain(ctx context.Context, batchID int64) (drainer.Report, error)
	}
	Metrics interface {
		ObserveRound(err error)
		ObserveBatchFinished(status string)
	}
)
