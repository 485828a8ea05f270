package chain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type nonceKey struct {
	address common.Address
	chainID int64
}

// NonceLocker serializes nonce allocation per (signer, chain).
// The lock is held from the pending nonce read until the transaction is broadcast.
type NonceLocker struct {
	mu    sync.Mutex
	locks map[nonceKey]*sync.Mutex
}

func NewNonceLocker() *NonceLocker {
	return &NonceLocker{locks: make(map[nonceKey]*sync.Mutex)}
}

// Lock blocks until the (address, chainID) slot is free and returns its unlock function
func (l *NonceLocker) Lock(address common.Address, chainID int64) func() {
	key := nonceKey{address: address, chainID: chainID}

	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
