package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Batch is a set of recipient transfers submitted together under one funder.
type Batch struct {
	ID                 int64
	ChainID            *big.Int
	ContractAddress    common.Address
	FunderAddress      common.Address
	FaucetID           int64
	Status             BatchStatus
	TotalTransactions  int64
	SentTransactions   int64
	FailedTransactions int64
	MerkleRoot         *common.Hash
	MerkleCommitTx     *common.Hash
	GasUsed            uint64
	GasSpentWei        *big.Int
	LastError          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
}

// Outstanding returns the number of transactions that are not terminal yet.
func (b Batch) Outstanding() int64 {
	return b.TotalTransactions - b.SentTransactions - b.FailedTransactions
}

// FinalStatus returns the terminal status the batch counters justify, or false when
// transactions are still outstanding.
func (b Batch) FinalStatus() (BatchStatus, bool) {
	if b.TotalTransactions == 0 || b.Outstanding() != 0 {
		return "", false
	}
	if b.FailedTransactions > 0 {
		return BatchCompletedWithFailures, true
	}
	return BatchCompleted, true
}

// Faucet is the long-lived funded account that seeds relayers for a funder.
type Faucet struct {
	ID            int64
	Address       common.Address
	KeyRef        string
	FunderAddress *common.Address
	CreatedAt     time.Time
}

// BatchCounts are batch counters recomputed from transaction rows.
type BatchCounts struct {
	Total     int64
	Completed int64
	Failed    int64
}

// Matches reports whether the stored batch counters agree with the recomputed ones.
func (c BatchCounts) Matches(b Batch) bool {
	return c.Total == b.TotalTransactions &&
		c.Completed == b.SentTransactions &&
		c.Failed == b.FailedTransactions
}

// Reconciliation reports the outcome of recomputing batch counters.
type Reconciliation struct {
	BatchID  int64
	Stored   BatchCounts
	Actual   BatchCounts
	Status   BatchStatus
	Repaired bool
}
