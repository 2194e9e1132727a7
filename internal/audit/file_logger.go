package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the audit log inside the wallet directory.
const FileName = "transactions.log"

// FileLogger appends newline-delimited JSON entries to transactions.log.
// The log is not tag-tracked: it is append-only evidence, and signing it on
// every append would turn each decision into a full rewrite of the tag map.
type FileLogger struct {
	path string
	mu   sync.Mutex
}

// NewFileLogger creates a logger writing to dir/transactions.log.
func NewFileLogger(dir string) *FileLogger {
	return &FileLogger{path: filepath.Join(dir, FileName)}
}

func (l *FileLogger) Append(ctx context.Context, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return f.Sync()
}

// Recent returns the last limit entries, oldest first. Lines that fail to
// parse are skipped rather than blocking forensic review of the rest.
func (l *FileLogger) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []*Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, &e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
