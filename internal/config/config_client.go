package config

import (
	"fmt"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// Version is stamped into backup artifacts.
	Version string
	// LogLevel is the zerolog level name.
	LogLevel string
	// LogFile is where the TUI writes its logs.
	LogFile string
	// BackupDir is where backup artifacts are written.
	BackupDir string
	// SessionID pins the relevance identity; optional.
	SessionID string
}

// ClientAdapter holds remote store settings used by the transport layer.
type ClientAdapter struct {
	// Driver selects the remote store implementation.
	Driver string
	// DSN is the PostgreSQL connection string.
	DSN string
	// URL is the supabase project URL.
	URL string
	// APIKey is the supabase API key.
	APIKey string
	// AccessToken is the user JWT forwarded to supabase.
	AccessToken string
	// HealthURL is probed by the connectivity monitor.
	HealthURL string
	// RequestTimeout is the default timeout for outbound remote calls.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite connection string used by the client.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often the reconciliation pass runs.
	SyncInterval time.Duration
	// ProbeInterval defines how often connectivity is probed.
	ProbeInterval time.Duration
	// MaxRetries bounds delivery attempts of a queue item.
	MaxRetries int
	// RetryBaseDelay is the first backoff delay.
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the backoff delay.
	RetryMaxDelay time.Duration
	// FullPullInterval bounds the time between full pulls of a
	// delta-pulled collection.
	FullPullInterval time.Duration
}

// ClientBackup contains backup and restore tuning.
type ClientBackup struct {
	// BatchSize is the number of rows per restore request.
	BatchSize int
}

// ClientServer contains the local HTTP API settings.
type ClientServer struct {
	// HTTPAddress is the listen address of the local API.
	HTTPAddress string
	// RequestTimeout bounds a single API request.
	RequestTimeout time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Adapter contains remote store settings.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Workers contains background job settings.
	Workers ClientWorkers
	// Backup contains backup engine settings.
	Backup ClientBackup
	// Server contains local API settings.
	Server ClientServer
	// Collections is the remote collection registry.
	Collections models.CollectionRegistry
	// Preferences is the preference key registry.
	Preferences models.PreferenceRegistry
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps the fields
// relevant to the client runtime, and validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := newClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

func newClientConfig(cfg *StructuredConfig) *ClientConfig {
	return &ClientConfig{
		App: ClientApp{
			Version:   cfg.App.Version,
			LogLevel:  cfg.App.LogLevel,
			LogFile:   cfg.App.LogFile,
			BackupDir: cfg.App.BackupDir,
			SessionID: cfg.App.SessionID,
		},
		Adapter: ClientAdapter{
			Driver:         cfg.Adapter.Driver,
			DSN:            cfg.Adapter.DSN,
			URL:            cfg.Adapter.URL,
			APIKey:         cfg.Adapter.APIKey,
			AccessToken:    cfg.Adapter.AccessToken,
			HealthURL:      cfg.Adapter.HealthURL,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
		},
		Workers: ClientWorkers{
			SyncInterval:     cfg.Workers.SyncInterval,
			ProbeInterval:    cfg.Workers.ProbeInterval,
			MaxRetries:       cfg.Workers.MaxRetries,
			RetryBaseDelay:   cfg.Workers.RetryBaseDelay,
			RetryMaxDelay:    cfg.Workers.RetryMaxDelay,
			FullPullInterval: cfg.Workers.FullPullInterval,
		},
		Backup: ClientBackup{BatchSize: cfg.Backup.BatchSize},
		Server: ClientServer{
			HTTPAddress:    cfg.Server.HTTPAddress,
			RequestTimeout: cfg.Server.RequestTimeout,
		},
		Collections: cfg.Registries.Collections,
		Preferences: cfg.Registries.Preferences,
	}
}
