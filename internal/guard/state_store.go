package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/txguard/txguard/internal/integrity"
)

// StateFileName is the persisted guard state inside the wallet directory.
const StateFileName = "state.json"

// StateStore persists GuardState snapshots.
type StateStore interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
}

// FileStateStore keeps state.json in the wallet directory. Reads verify
// the integrity tag; writes are atomic (write-temp-then-rename) and
// re-sign the file.
type FileStateStore struct {
	dir     string
	checker *integrity.Checker
	now     func() time.Time
	mu      sync.Mutex
}

// NewFileStateStore creates a file-backed state store.
func NewFileStateStore(dir string, checker *integrity.Checker) *FileStateStore {
	return &FileStateStore{dir: dir, checker: checker, now: time.Now}
}

func (f *FileStateStore) Load(ctx context.Context) (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := filepath.Join(f.dir, StateFileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// Lazy creation: a wallet that has never transacted gets the
		// default state, provided no tag claims the file should exist.
		if verr := f.checker.VerifyAbsent(StateFileName); verr != nil {
			return nil, verr
		}
		return NewState(f.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := f.checker.Verify(StateFileName, raw); err != nil {
		return nil, err
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &st, nil
}

func (f *FileStateStore) Save(ctx context.Context, st *State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	path := filepath.Join(f.dir, StateFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return f.checker.Sign(StateFileName, raw)
}

// MemoryStateStore holds state in memory for tests and embedding.
type MemoryStateStore struct {
	state *State
	mu    sync.Mutex
}

// NewMemoryStateStore creates a store with the default empty state.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

func (m *MemoryStateStore) Load(ctx context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return NewState(time.Now()), nil
	}
	return m.state.Clone(), nil
}

func (m *MemoryStateStore) Save(ctx context.Context, st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = st.Clone()
	return nil
}
