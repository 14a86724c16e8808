package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Relayer is an ephemeral account funded to execute part of one batch.
// The private key lives in the secret manager under KeyRef.
type Relayer struct {
	ID             int64
	Address        common.Address
	BatchID        int64
	KeyRef         string
	LastBalance    *big.Int
	Status         RelayerStatus
	DrainTxHash    *common.Hash
	LastActivityAt *time.Time
	CreatedAt      time.Time
}

// MerkleNode is one persisted node of a batch merkle tree. Level 0 holds the leaves.
type MerkleNode struct {
	BatchID         int64
	Level           int
	Index           int
	Hash            common.Hash
	VerifiedOnChain bool
}
