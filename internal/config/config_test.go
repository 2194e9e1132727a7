package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "TXGUARD_DIR", "")
	setEnv(t, "PORT", "")
	setEnv(t, "ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultWalletDir, cfg.WalletDir)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "TXGUARD_DIR", "/tmp/wallet-a")
	setEnv(t, "TXGUARD_SECRET", "hunter2")
	setEnv(t, "PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/wallet-a", cfg.WalletDir)
	assert.Equal(t, "hunter2", cfg.IntegritySecret)
	assert.Equal(t, "9090", cfg.Port)
}

func TestValidate_BadPort(t *testing.T) {
	cfg := &Config{WalletDir: "w", Port: "not-a-port"}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := &Config{WalletDir: "w", Port: "8090", Env: "production"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TXGUARD_SECRET")

	cfg.IntegritySecret = "s"
	assert.NoError(t, cfg.Validate())
}
