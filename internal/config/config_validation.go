// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// validate checks that the final merged [StructuredConfig] satisfies the
// invariants shared by every binary: a parseable log level and well-formed
// registries.
func (cfg *StructuredConfig) validate() error {
	if _, err := zerolog.ParseLevel(cfg.App.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidAppConfigs, cfg.App.LogLevel)
	}

	if err := cfg.Registries.Collections.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRegistryConfigs, err)
	}

	if _, err := cfg.Registries.Preferences.Compile(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRegistryConfigs, err)
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	switch cfg.Adapter.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.Adapter.DSN == "" {
			return fmt.Errorf("%w: postgres driver requires a DSN", ErrInvalidAdapterConfigs)
		}
	case DriverSupabase:
		if cfg.Adapter.URL == "" || cfg.Adapter.APIKey == "" {
			return fmt.Errorf("%w: supabase driver requires url and api key", ErrInvalidAdapterConfigs)
		}
	case DriverPostgREST:
		if cfg.Adapter.URL == "" {
			return fmt.Errorf("%w: postgrest driver requires url", ErrInvalidAdapterConfigs)
		}
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidAdapterConfigs, cfg.Adapter.Driver)
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.ProbeInterval <= 0 || cfg.Workers.MaxRetries < 1 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Workers.RetryBaseDelay <= 0 || cfg.Workers.RetryMaxDelay < cfg.Workers.RetryBaseDelay {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Workers.FullPullInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Backup.BatchSize < 1 {
		return ErrInvalidBackupConfigs
	}

	if cfg.App.BackupDir == "" {
		return ErrInvalidAppConfigs
	}

	return nil
}
