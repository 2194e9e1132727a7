package audit

import (
	"context"
	"sync"
)

// MemoryLogger collects entries in memory for tests.
type MemoryLogger struct {
	entries []*Entry
	mu      sync.RWMutex
}

// NewMemoryLogger creates an empty in-memory audit logger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (m *MemoryLogger) Append(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MemoryLogger) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]*Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// All returns every recorded entry.
func (m *MemoryLogger) All() []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
