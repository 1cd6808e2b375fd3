package core

import (
	"strings"
	"sync"
)

// MemoryAccountLocker serializes work per custodial account with one mutex
// per account key. Lock blocks until the account is free and returns the
// release function.
type MemoryAccountLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryAccountLocker() *MemoryAccountLocker {
	return &MemoryAccountLocker{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *MemoryAccountLocker) Lock(account string) func() {
	if l == nil {
		return func() {}
	}
	account = strings.TrimSpace(account)

	l.mu.Lock()
	lock, ok := l.locks[account]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[account] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

var _ AccountLocker = (*MemoryAccountLocker)(nil)
