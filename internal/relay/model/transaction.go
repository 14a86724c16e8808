package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TxClass selects the gas boost applied to a transaction.
type TxClass string

var (
	// ClassTransfer is a settlement call paying one recipient.
	ClassTransfer TxClass = "transfer"
	// ClassFunding is the atomic multi-recipient relayer funding call.
	ClassFunding TxClass = "funding"
	// ClassCommit publishes a batch merkle root.
	ClassCommit TxClass = "commit"
	// ClassSweep returns a relayer balance to the faucet.
	ClassSweep TxClass = "sweep"
	// ClassCancel reuses a stuck nonce slot with a zero-value self transfer.
	ClassCancel TxClass = "cancel"
)

// BatchTransaction is one recipient transfer inside a batch.
type BatchTransaction struct {
	ID             int64
	BatchID        int64
	Recipient      common.Address
	Amount         *big.Int
	Status         TxStatus
	RelayerAddress *common.Address
	Nonce          *uint64
	TxHash         *common.Hash
	GasPrice       *big.Int
	RetryCount     int
	ReassignCount  int
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SentAt         *time.Time
	ConfirmedAt    *time.Time
}

// Submission is what the dispatcher records once a transaction has been broadcast.
type Submission struct {
	TxID     int64
	Relayer  common.Address
	Nonce    uint64
	TxHash   common.Hash
	GasPrice *big.Int
}

// Settlement is what the dispatcher records once a receipt confirmed the transaction.
type Settlement struct {
	TxID        int64
	TxHash      common.Hash
	GasUsed     uint64
	GasSpentWei *big.Int
}

// DispatchOutcome labels an audit row.
type DispatchOutcome string

var (
	OutcomeSubmitted  DispatchOutcome = "submitted"
	OutcomeConfirmed  DispatchOutcome = "confirmed"
	OutcomeReverted   DispatchOutcome = "reverted"
	OutcomeRetried    DispatchOutcome = "retried"
	OutcomeReleased   DispatchOutcome = "released"
	OutcomeReassigned DispatchOutcome = "reassigned"
	OutcomeFailed     DispatchOutcome = "failed"
)

// DispatchAttempt is an append-only audit record of one dispatch step.
type DispatchAttempt struct {
	BatchID     int64
	TxID        int64
	Relayer     common.Address
	Nonce       uint64
	TxHash      common.Hash
	GasPrice    *big.Int
	Class       TxClass
	Outcome     DispatchOutcome
	Reason      string
	RetryCount  int
	AttemptedAt time.Time
}

// NonceCollision is a (relayer, nonce) pair that confirmed more than one transaction.
type NonceCollision struct {
	Relayer common.Address
	Nonce   uint64
	Count   uint64
}
