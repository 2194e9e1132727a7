// Package syncutil provides context-aware locking primitives.
package syncutil

import (
	"context"
	"sync"
)

// KeyedMutex serializes work per key. Lock acquisition honors context
// cancellation, so a caller stuck behind a slow wallet operation can
// give up instead of blocking forever.
//
// The zero value is not usable; construct with NewKeyedMutex. Lock
// channels are created on first use and kept for the lifetime of the
// mutex, which is fine here: the key space is the set of wallet
// directories a process serves, typically one.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]chan struct{})}
}

// Lock acquires the lock for key, blocking until it is free or ctx is
// done. On success it returns a release function the caller must invoke
// exactly once. On cancellation it returns the context error and no
// release function.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	ch, ok := m.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[key] = ch
	}
	m.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
