package allowlist

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

// FileName is the allowlist document inside the wallet directory.
const FileName = "allowlist.json"

// FileStore persists the allowlist as allowlist.json in the wallet
// directory. Reads verify the integrity tag; writes re-sign it.
type FileStore struct {
	dir     string
	checker *integrity.Checker
	mu      sync.Mutex
}

// NewFileStore creates a file-backed allowlist store.
func NewFileStore(dir string, checker *integrity.Checker) *FileStore {
	return &FileStore{dir: dir, checker: checker}
}

func (f *FileStore) List(ctx context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return doc.Addresses, nil
}

func (f *FileStore) Contains(ctx context.Context, address string) (bool, error) {
	canonical, err := Canonicalize(address)
	if err != nil {
		return false, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return false, err
	}
	return containsCanonical(doc.Addresses, canonical), nil
}

func (f *FileStore) Add(ctx context.Context, address, label string) (*Entry, error) {
	canonical, err := Canonicalize(address)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	if containsCanonical(doc.Addresses, canonical) {
		return nil, ErrDuplicate
	}

	entry := Entry{Address: canonical, Label: label, AddedAt: time.Now().UTC()}
	doc.Addresses = append(doc.Addresses, entry)
	if err := f.save(doc); err != nil {
		return nil, err
	}
	return &entry, nil
}

// load reads and verifies allowlist.json. A missing file is an empty
// allowlist, provided no tag claims it should exist.
func (f *FileStore) load() (*Document, error) {
	path := filepath.Join(f.dir, FileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if verr := f.checker.VerifyAbsent(FileName); verr != nil {
			return nil, verr
		}
		return &Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read allowlist: %w", err)
	}
	if err := f.checker.Verify(FileName, raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse allowlist: %w", err)
	}
	return &doc, nil
}

// save writes allowlist.json atomically and records its new tag.
func (f *FileStore) save(doc *Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}

	path := filepath.Join(f.dir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return f.checker.Sign(FileName, raw)
}
