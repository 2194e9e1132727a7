package allowlist

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory allowlist for tests and embedding.
type MemoryStore struct {
	entries []Entry
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory allowlist.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryStore) Contains(ctx context.Context, address string) (bool, error) {
	canonical, err := Canonicalize(address)
	if err != nil {
		return false, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return containsCanonical(m.entries, canonical), nil
}

func (m *MemoryStore) Add(ctx context.Context, address, label string) (*Entry, error) {
	canonical, err := Canonicalize(address)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if containsCanonical(m.entries, canonical) {
		return nil, ErrDuplicate
	}
	entry := Entry{Address: canonical, Label: label, AddedAt: time.Now().UTC()}
	m.entries = append(m.entries, entry)
	return &entry, nil
}
