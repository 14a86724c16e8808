// Package merkle builds keccak256 merkle trees over settlement leaves.
//
// Inner nodes hash the sorted pair of their children, so a proof is a plain
// list of sibling hashes and verification needs no leaf index. A node without
// a sibling at the end of a level is promoted to the next level unchanged.
package merkle

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrEmpty is returned when a tree is requested over no leaves.
	ErrEmpty = errors.New("merkle: no leaves")
	// ErrIndexOutOfRange is returned when a proof is requested for a missing leaf.
	ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")
	// ErrInconsistentLevels is returned when persisted levels do not hash up to each other.
	ErrInconsistentLevels = errors.New("merkle: inconsistent levels")
)

const wordSize = 32

// Leaf holds the fields committed for one batch transaction.
type Leaf struct {
	ChainID   *big.Int
	Contract  common.Address
	BatchID   uint64
	TxID      uint64
	Funder    common.Address
	Recipient common.Address
	Amount    *big.Int
}

// Hash returns keccak256 over the tightly packed leaf fields:
// uint256 chainId, address contract, uint256 batchId, uint256 txId,
// address funder, address recipient, uint256 amount.
func (l Leaf) Hash() (common.Hash, error) {
	chainID, err := word(l.ChainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id: %w", err)
	}
	amount, err := word(l.Amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("amount: %w", err)
	}

	buf := make([]byte, 0, 4*wordSize+3*common.AddressLength)
	buf = append(buf, chainID...)
	buf = append(buf, l.Contract.Bytes()...)
	buf = append(buf, uint64Word(l.BatchID)...)
	buf = append(buf, uint64Word(l.TxID)...)
	buf = append(buf, l.Funder.Bytes()...)
	buf = append(buf, l.Recipient.Bytes()...)
	buf = append(buf, amount...)

	return crypto.Keccak256Hash(buf), nil
}

func word(v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, errors.New("value is nil")
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", v)
	}
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("value %s exceeds uint256", v)
	}
	return common.LeftPadBytes(v.Bytes(), wordSize), nil
}

func uint64Word(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), wordSize)
}

// HashPair combines two nodes in sorted order.
func HashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// Tree keeps every level of a merkle tree. Level 0 holds the leaves and the
// last level holds the root.
type Tree struct {
	levels [][]common.Hash
}

// Build constructs a tree over leaves in the given order.
func Build(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmpty
	}

	level := append([]common.Hash(nil), leaves...)
	levels := [][]common.Hash{level}
	for len(level) > 1 {
		level = nextLevel(level)
		levels = append(levels, level)
	}
	return &Tree{levels: levels}, nil
}

// FromLevels restores a tree from persisted levels and checks that every level
// hashes up to the next one.
func FromLevels(levels [][]common.Hash) (*Tree, error) {
	if len(levels) == 0 || len(levels[0]) == 0 {
		return nil, ErrEmpty
	}
	for i := 0; i < len(levels)-1; i++ {
		want := nextLevel(levels[i])
		if !equal(want, levels[i+1]) {
			return nil, fmt.Errorf("%w: level %d", ErrInconsistentLevels, i+1)
		}
	}
	if len(levels[len(levels)-1]) != 1 {
		return nil, fmt.Errorf("%w: top level has %d nodes", ErrInconsistentLevels, len(levels[len(levels)-1]))
	}
	return &Tree{levels: levels}, nil
}

func nextLevel(level []common.Hash) []common.Hash {
	next := make([]common.Hash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 == len(level) {
			next = append(next, level[i])
			continue
		}
		next = append(next, HashPair(level[i], level[i+1]))
	}
	return next
}

func equal(a, b []common.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Root returns the tree root.
func (t *Tree) Root() common.Hash {
	return t.levels[len(t.levels)-1][0]
}

// Levels returns the tree levels, leaves first.
func (t *Tree) Levels() [][]common.Hash {
	return t.levels
}

// Leaves returns the number of leaves.
func (t *Tree) Leaves() int {
	return len(t.levels[0])
}

// Proof returns the sibling path from the leaf at index up to the root.
// Levels where the node was promoted contribute no sibling.
func (t *Tree) Proof(index int) ([]common.Hash, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	proof := make([]common.Hash, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
	}
	return proof, nil
}

// Verify reports whether proof links leaf to root.
func Verify(leaf common.Hash, proof []common.Hash, root common.Hash) bool {
	node := leaf
	for _, sibling := range proof {
		node = HashPair(node, sibling)
	}
	return node == root
}
