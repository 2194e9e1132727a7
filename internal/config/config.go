// Package config handles process configuration from environment variables.
//
// This is the process-wide configuration (where the wallet directory lives,
// whether integrity checking is enabled, server settings). The per-wallet
// guard policy (limits, cooldowns, thresholds) lives in config.json inside
// the wallet directory and is loaded by the guard package.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all process configuration.
type Config struct {
	// WalletDir is the directory holding config.json, allowlist.json,
	// state.json, transactions.log and .signatures for one wallet.
	WalletDir string

	// IntegritySecret keys the HMAC over persisted files. Empty means
	// integrity checking is disabled. Signing is an explicit opt-in, so the tool
	// works without setup.
	IntegritySecret string

	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string

	// APIToken, when set, is required as a bearer token on mutating
	// HTTP endpoints.
	APIToken string

	// DatabaseURL enables the optional Postgres audit archive.
	DatabaseURL string

	// OTLPEndpoint enables tracing when set.
	OTLPEndpoint string
}

const (
	DefaultWalletDir = "txguard-data"
	DefaultPort      = "8090"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		WalletDir:       getEnv("TXGUARD_DIR", DefaultWalletDir),
		IntegritySecret: os.Getenv("TXGUARD_SECRET"), // Optional, empty disables integrity checks
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:       getEnv("LOG_FORMAT", DefaultLogFormat),
		APIToken:        os.Getenv("TXGUARD_API_TOKEN"),
		DatabaseURL:     os.Getenv("DATABASE_URL"), // Optional audit archive
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.WalletDir == "" {
		return fmt.Errorf("TXGUARD_DIR must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if c.IsProduction() && c.IntegritySecret == "" {
		return fmt.Errorf("TXGUARD_SECRET is required in production (integrity checking must be on)")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
