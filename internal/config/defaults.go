package config

import (
	"time"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

// Supported remote drivers.
const (
	DriverPostgres  = "postgres"
	DriverSupabase  = "supabase"
	DriverPostgREST = "postgrest"
	DriverMemory    = "memory"
)

// defaultConfig is merged last, so every value here only fills fields no
// other source provided.
func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			Version:   "dev",
			LogLevel:  "info",
			BackupDir: ".",
		},
		Storage: Storage{
			DB: DB{DSN: "spendlytics.db"},
		},
		Adapter: Adapter{
			Driver:         DriverMemory,
			RequestTimeout: 15 * time.Second,
		},
		Server: Server{
			HTTPAddress:    "localhost:8089",
			RequestTimeout: 30 * time.Second,
		},
		Workers: Workers{
			SyncInterval:     time.Minute,
			ProbeInterval:    15 * time.Second,
			MaxRetries:       5,
			RetryBaseDelay:   2 * time.Second,
			RetryMaxDelay:    5 * time.Minute,
			FullPullInterval: time.Hour,
		},
		Backup: Backup{BatchSize: 100},
		Registries: Registries{
			Collections: models.DefaultCollections,
			Preferences: models.DefaultPreferences,
		},
	}
}
