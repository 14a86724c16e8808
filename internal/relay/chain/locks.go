package chain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// AccountLocks serialises nonce reads and broadcasts per sending account.
// Faucets are shared by every batch of a funder, so two batches must not read
// the same pending nonce.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[common.Address]*sync.Mutex
}

// NewAccountLocks builds an empty lock set.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[common.Address]*sync.Mutex)}
}

// Lock locks addr and returns the unlock function.
func (l *AccountLocks) Lock(addr common.Address) func() {
	l.mu.Lock()
	m, ok := l.locks[addr]
	if !ok {
		m = &sync.Mutex{}
		l.locks[addr] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
