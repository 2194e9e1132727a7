package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/txguard/txguard/internal/integrity"
)

// ConfigFileName is the guard policy document inside the wallet directory.
const ConfigFileName = "config.json"

// ConfigLoader supplies the guard policy, loaded fresh on every operation
// so edits to config.json take effect without a restart.
type ConfigLoader interface {
	Load(ctx context.Context) (*Config, error)
}

// FileConfigLoader reads config.json, verifies its integrity tag, and
// merges it over DefaultConfig. A missing file means pure defaults.
type FileConfigLoader struct {
	dir     string
	checker *integrity.Checker
}

// NewFileConfigLoader creates a loader for the given wallet directory.
func NewFileConfigLoader(dir string, checker *integrity.Checker) *FileConfigLoader {
	return &FileConfigLoader{dir: dir, checker: checker}
}

func (f *FileConfigLoader) Load(ctx context.Context) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(filepath.Join(f.dir, ConfigFileName))
	if os.IsNotExist(err) {
		if verr := f.checker.VerifyAbsent(ConfigFileName); verr != nil {
			return nil, verr
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := f.checker.Verify(ConfigFileName, raw); err != nil {
		return nil, err
	}

	// Unmarshal into the defaults value: absent fields keep their default.
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes config.json atomically and records its tag. Used by operator
// tooling; the engine itself never writes config.
func (f *FileConfigLoader) Save(ctx context.Context, cfg *Config) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}

	path := filepath.Join(f.dir, ConfigFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return f.checker.Sign(ConfigFileName, raw)
}

// StaticConfig is a fixed-policy loader for tests and embedding.
type StaticConfig struct {
	Config *Config
}

func (s *StaticConfig) Load(ctx context.Context) (*Config, error) {
	return s.Config, nil
}
