// Package model defines domain models for batch relaying.
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status change is not in the transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// TxStatus describes the processing status of a batch transaction.
type TxStatus string

var (
	// TxPending marks a transaction waiting to be claimed by a relayer.
	TxPending TxStatus = "pending"
	// TxSending marks a claimed transaction that is being priced, signed and broadcast.
	TxSending TxStatus = "sending"
	// TxWaitingConfirmation marks a broadcast transaction waiting for a receipt.
	TxWaitingConfirmation TxStatus = "waiting_confirmation"
	// TxCompleted marks a transaction settled on-chain.
	TxCompleted TxStatus = "completed"
	// TxFailed marks a transaction that will never be retried.
	TxFailed TxStatus = "failed"
)

var txTransitions = map[TxStatus][]TxStatus{
	TxPending:             {TxSending},
	// sending -> completed is taken when a reassigned row turns out to be
	// settled on-chain by an earlier broadcast.
	TxSending:             {TxWaitingConfirmation, TxPending, TxCompleted, TxFailed},
	// waiting_confirmation -> waiting_confirmation is a replacement broadcast
	// at the same nonce.
	TxWaitingConfirmation: {TxWaitingConfirmation, TxCompleted, TxPending, TxFailed},
	TxCompleted:           nil,
	TxFailed:              nil,
}

// Valid reports whether s is a known transaction status.
func (s TxStatus) Valid() bool {
	_, ok := txTransitions[s]
	return ok
}

// Terminal reports whether s is absorbing.
func (s TxStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed
}

// CanTransition reports whether a transaction may move from s to next.
func (s TxStatus) CanTransition(next TxStatus) bool {
	return allowed(txTransitions[s], next)
}

// Transition validates the move from s to next.
func (s TxStatus) Transition(next TxStatus) (TxStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: transaction %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// BatchStatus describes the lifecycle status of a batch.
type BatchStatus string

var (
	BatchCreated               BatchStatus = "created"
	BatchProvisioning          BatchStatus = "provisioning"
	BatchProcessing            BatchStatus = "processing"
	BatchPaused                BatchStatus = "paused"
	BatchCompleted             BatchStatus = "completed"
	BatchCompletedWithFailures BatchStatus = "completed_with_failures"
	BatchSetupFailed           BatchStatus = "setup_failed"
	BatchAbandoned             BatchStatus = "abandoned"
)

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchCreated:               {BatchProvisioning, BatchAbandoned},
	BatchProvisioning:          {BatchProcessing, BatchSetupFailed},
	BatchProcessing:            {BatchPaused, BatchCompleted, BatchCompletedWithFailures, BatchAbandoned},
	BatchPaused:                {BatchProcessing, BatchCompleted, BatchCompletedWithFailures, BatchAbandoned},
	BatchCompleted:             nil,
	BatchCompletedWithFailures: nil,
	BatchSetupFailed:           nil,
	BatchAbandoned:             nil,
}

// Valid reports whether s is a known batch status.
func (s BatchStatus) Valid() bool {
	_, ok := batchTransitions[s]
	return ok
}

// Terminal reports whether the batch will never run again.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchCompleted, BatchCompletedWithFailures, BatchSetupFailed, BatchAbandoned:
		return true
	default:
		return false
	}
}

// Drainable reports whether relayers of a batch in this status may be swept.
func (s BatchStatus) Drainable() bool {
	return s.Terminal()
}

// CanTransition reports whether a batch may move from s to next.
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	return allowed(batchTransitions[s], next)
}

// Transition validates the move from s to next.
func (s BatchStatus) Transition(next BatchStatus) (BatchStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: batch %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// RelayerStatus describes the lifecycle status of a relayer account.
type RelayerStatus string

var (
	// RelayerRegistered marks a relayer whose key is stored but which is not funded yet.
	RelayerRegistered RelayerStatus = "registered"
	// RelayerActive marks a funded relayer usable by the dispatcher.
	RelayerActive RelayerStatus = "active"
	// RelayerFailed marks a relayer whose funding failed. It is never handed
	// to the dispatcher but is still checked for stranded funds.
	RelayerFailed RelayerStatus = "failed"
	// RelayerDrained marks a relayer whose residual balance was recovered.
	RelayerDrained RelayerStatus = "drained"
)

var relayerTransitions = map[RelayerStatus][]RelayerStatus{
	RelayerRegistered: {RelayerActive, RelayerFailed},
	RelayerActive:     {RelayerDrained},
	RelayerFailed:     {RelayerDrained},
	RelayerDrained:    nil,
}

// Valid reports whether s is a known relayer status.
func (s RelayerStatus) Valid() bool {
	_, ok := relayerTransitions[s]
	return ok
}

// CanTransition reports whether a relayer may move from s to next.
func (s RelayerStatus) CanTransition(next RelayerStatus) bool {
	return allowed(relayerTransitions[s], next)
}

// Transition validates the move from s to next.
func (s RelayerStatus) Transition(next RelayerStatus) (RelayerStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: relayer %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

func allowed[T comparable](targets []T, next T) bool {
	for _, t := range targets {
		if t == next {
			return true
		}
	}
	return false
}
