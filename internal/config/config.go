// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath            string
	EncryptionPepper  string
	HIBPAPIKey        string
	SweepInterval     time.Duration
	PasswordScanDelay time.Duration
	EmailScanDelay    time.Duration
}

// HasHIBPAPIKey reports whether the breached-account endpoint is usable.
// The password range endpoint never needs a key.
func (c *Config) HasHIBPAPIKey() bool {
	return c.HIBPAPIKey != ""
}

// Load reads configuration from a .env file (if present) and environment
// variables, returning a validated Config. All variables are optional:
// SECUREVAULT_DB_PATH (securevault.db), SECUREVAULT_ENCRYPTION_PEPPER (empty),
// SECUREVAULT_HIBP_API_KEY (empty, disables email scanning),
// SECUREVAULT_SWEEP_INTERVAL (6h), SECUREVAULT_PASSWORD_SCAN_DELAY (100ms),
// SECUREVAULT_EMAIL_SCAN_DELAY (1.5s).
func Load() (*Config, error) {
	// A missing .env file is fine; real env vars always win.
	_ = godotenv.Load()

	dbPath := "securevault.db"
	if v, ok := os.LookupEnv("SECUREVAULT_DB_PATH"); ok {
		dbPath = v
	}

	sweepInterval := 6 * time.Hour
	if v, ok := os.LookupEnv("SECUREVAULT_SWEEP_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SECUREVAULT_SWEEP_INTERVAL has invalid duration %q: %w", v, err)
		}
		sweepInterval = parsed
	}

	passwordScanDelay := 100 * time.Millisecond
	if v, ok := os.LookupEnv("SECUREVAULT_PASSWORD_SCAN_DELAY"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SECUREVAULT_PASSWORD_SCAN_DELAY has invalid duration %q: %w", v, err)
		}
		passwordScanDelay = parsed
	}

	emailScanDelay := 1500 * time.Millisecond
	if v, ok := os.LookupEnv("SECUREVAULT_EMAIL_SCAN_DELAY"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SECUREVAULT_EMAIL_SCAN_DELAY has invalid duration %q: %w", v, err)
		}
		emailScanDelay = parsed
	}

	return &Config{
		DBPath:            dbPath,
		EncryptionPepper:  os.Getenv("SECUREVAULT_ENCRYPTION_PEPPER"),
		HIBPAPIKey:        os.Getenv("SECUREVAULT_HIBP_API_KEY"),
		SweepInterval:     sweepInterval,
		PasswordScanDelay: passwordScanDelay,
		EmailScanDelay:    emailScanDelay,
	}, nil
}
