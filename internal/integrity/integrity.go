// Package integrity detects out-of-band tampering with persisted wallet files.
//
// Every tracked file (config.json, allowlist.json, state.json) gets an
// HMAC-SHA256 tag over its raw bytes, keyed by the operator's secret. Tags
// live in a side-channel map file (.signatures) next to the data, so an
// attacker must forge both the file and its tag to slip a modified state
// past the guard.
//
// With no secret configured the checker is disabled and every verification
// passes. That is a deliberate trust decision: the tool stays usable without
// setup, and enabling tamper detection is an explicit opt-in.
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TagFile is the name of the side-channel tag map inside the wallet directory.
const TagFile = ".signatures"

// ErrTampered is returned when a tracked file's content does not match its
// recorded tag. Callers must treat it as fatal for the operation in
// progress: no decision may be made from untrusted data. It is a distinct
// error so operators can tell "rejected by policy" from "storage tampered".
var ErrTampered = errors.New("integrity check failed")

// Checker signs and verifies tracked files for one wallet directory.
type Checker struct {
	dir    string
	secret []byte

	mu sync.Mutex // serializes tag map read-modify-write
}

// New creates a checker for the given wallet directory. An empty secret
// disables checking entirely.
func New(dir, secret string) *Checker {
	c := &Checker{dir: dir}
	if secret != "" {
		c.secret = []byte(secret)
	}
	return c
}

// Enabled reports whether integrity checking is active.
func (c *Checker) Enabled() bool {
	return len(c.secret) > 0
}

// Sign records the tag for a tracked file's content, overwriting any prior
// tag. Called after every successful write of a tracked file.
func (c *Checker) Sign(name string, data []byte) error {
	if !c.Enabled() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tags, err := c.loadTags()
	if err != nil {
		return err
	}
	tags[name] = c.tag(data)
	return c.saveTags(tags)
}

// Verify checks a tracked file's content against its recorded tag. A
// missing or mismatched tag returns ErrTampered.
func (c *Checker) Verify(name string, data []byte) error {
	if !c.Enabled() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tags, err := c.loadTags()
	if err != nil {
		return err
	}
	stored, ok := tags[name]
	if !ok {
		return fmt.Errorf("%w: %s has no recorded tag", ErrTampered, name)
	}
	// hmac.Equal is constant-time; a plain string compare here would leak
	// how many leading tag bytes matched.
	if !hmac.Equal([]byte(c.tag(data)), []byte(stored)) {
		return fmt.Errorf("%w: %s does not match its recorded tag", ErrTampered, name)
	}
	return nil
}

// VerifyAbsent checks that no tag is recorded for a file that does not
// exist on disk. A file that has never been written trivially passes; a
// recorded tag with no file means the file was deleted out-of-band.
func (c *Checker) VerifyAbsent(name string) error {
	if !c.Enabled() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tags, err := c.loadTags()
	if err != nil {
		return err
	}
	if _, ok := tags[name]; ok {
		return fmt.Errorf("%w: %s is missing but has a recorded tag", ErrTampered, name)
	}
	return nil
}

func (c *Checker) tag(data []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Checker) loadTags() (map[string]string, error) {
	raw, err := os.ReadFile(filepath.Join(c.dir, TagFile))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tag file: %w", err)
	}
	tags := map[string]string{}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("%w: tag file is not valid JSON", ErrTampered)
	}
	return tags, nil
}

func (c *Checker) saveTags(tags map[string]string) error {
	raw, err := json.MarshalIndent(tags, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, TagFile), raw, 0o600)
}
