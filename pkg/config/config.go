// Package config loads ledger configuration from environment variables
// only (§4.12): no file or flag parsing lives in the core, grounded on the
// teacher lineage's own env-var-only Load() convention.
package config

import (
	"os"
	"strconv"
	"time"
)

// Backend selects the Event Store implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Config holds the core's runtime configuration.
type Config struct {
	DatabaseURL         string
	Backend             Backend
	SystemPrivateKeyB64 string // optional; empty means an ephemeral system key
	AnchorBatchSize     int
	AnchorInterval      time.Duration
	LogLevel            string
}

// Load reads configuration from environment variables, applying the same
// safe-default-in-dev-mode posture as the teacher lineage's config.Load().
func Load() *Config {
	backend := Backend(os.Getenv("LEDGER_BACKEND"))
	if backend == "" {
		backend = BackendMemory
	}

	dbURL := os.Getenv("LEDGER_DATABASE_URL")
	if dbURL == "" {
		switch backend {
		case BackendPostgres:
			dbURL = "postgres://accountabilityme@localhost:5432/accountabilityme?sslmode=disable"
		case BackendSQLite:
			dbURL = "file:accountabilityme.db?cache=shared"
		}
	}

	batchSize := 1000
	if v := os.Getenv("LEDGER_ANCHOR_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			batchSize = n
		}
	}

	interval := 10 * time.Minute
	if v := os.Getenv("LEDGER_ANCHOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	logLevel := os.Getenv("LEDGER_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		DatabaseURL:         dbURL,
		Backend:             backend,
		SystemPrivateKeyB64: os.Getenv("LEDGER_SYSTEM_PRIVATE_KEY"),
		AnchorBatchSize:     batchSize,
		AnchorInterval:      interval,
		LogLevel:            logLevel,
	}
}
