// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

// StructuredConfig is the top-level configuration container. It aggregates
// all sub-configurations and is populated by merging values from
// environment variables, command-line flags, an optional JSON file and the
// built-in defaults.
//
// Struct tags:
//   - envPrefix is the prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       is the direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings.
	App App `envPrefix:"APP_"`

	// Storage holds the local persistence settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter selects and configures the remote store driver.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Server holds the local HTTP API settings.
	Server Server `envPrefix:"SERVER_"`

	// Workers holds background sync and connectivity settings.
	Workers Workers `envPrefix:"WORKERS_"`

	// Backup holds backup and restore tuning.
	Backup Backup `envPrefix:"BACKUP_"`

	// Registries holds the collection and preference registries. They are
	// only read from the JSON file.
	Registries Registries

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`

	// LogLevel is a zerolog level name ("debug", "info", ...).
	// Env: APP_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL"`

	// LogFile is where interactive binaries write their logs.
	// Env: APP_LOG_FILE
	LogFile string `env:"LOG_FILE"`

	// BackupDir is the directory backups are written to.
	// Env: APP_BACKUP_DIR
	BackupDir string `env:"BACKUP_DIR"`

	// SessionID pins the session identity used as the relevance filter.
	// When empty it is read from preferences or the access token.
	// Env: APP_SESSION_ID
	SessionID string `env:"SESSION_ID"`
}

// Storage groups the local persistence settings.
type Storage struct {
	// DB holds the SQLite local store settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite store.
type DB struct {
	// DSN is the SQLite file path (or ":memory:").
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Adapter selects and configures the remote store.
type Adapter struct {
	// Driver is one of "postgres", "supabase", "postgrest" or "memory".
	// Env: ADAPTER_DRIVER
	Driver string `env:"DRIVER"`

	// DSN is the PostgreSQL connection string for the postgres driver.
	// Env: ADAPTER_DSN
	DSN string `env:"DSN"`

	// URL is the project URL for the supabase driver.
	// Env: ADAPTER_URL
	URL string `env:"URL"`

	// APIKey is the anon/service key for the supabase driver.
	// Env: ADAPTER_API_KEY
	APIKey string `env:"API_KEY"`

	// AccessToken is the user access token (JWT) for the supabase driver.
	// Its subject is used as the session id when none is configured.
	// Env: ADAPTER_ACCESS_TOKEN
	AccessToken string `env:"ACCESS_TOKEN"`

	// HealthURL is probed to detect connectivity. When empty the driver's
	// own ping is used.
	// Env: ADAPTER_HEALTH_URL
	HealthURL string `env:"HEALTH_URL"`

	// RequestTimeout bounds every remote call.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Server holds the local HTTP API settings.
type Server struct {
	// HTTPAddress is the listen address in "host:port" format.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds the handling of a single request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds background worker settings.
type Workers struct {
	// SyncInterval is the period of the background reconciliation pass.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// ProbeInterval is the period of the connectivity probe.
	// Env: WORKERS_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// MaxRetries is the number of failed attempts after which a queue
	// item is moved to the failed state.
	// Env: WORKERS_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// RetryBaseDelay is the first backoff delay.
	// Env: WORKERS_RETRY_BASE_DELAY
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY"`

	// RetryMaxDelay caps the backoff delay.
	// Env: WORKERS_RETRY_MAX_DELAY
	RetryMaxDelay time.Duration `env:"RETRY_MAX_DELAY"`

	// FullPullInterval is the longest a delta-pulled collection goes
	// without a full pull, which also prunes remote deletions.
	// Env: WORKERS_FULL_PULL_INTERVAL
	FullPullInterval time.Duration `env:"FULL_PULL_INTERVAL"`
}

// Backup holds backup and restore tuning.
type Backup struct {
	// BatchSize is the number of rows per restore insert request.
	// Env: BACKUP_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`
}

// Registries holds the declarative collection and preference registries.
type Registries struct {
	Collections models.CollectionRegistry
	Preferences models.PreferenceRegistry
}

// GetStructuredConfig loads, merges, and validates the configuration from
// all available sources. For every field the first non-zero value wins in
// this order:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}
