package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
)

// ClientStorages groups all client-side storage repositories into a single
// handle that is opened once and passed to the service layer.
type ClientStorages struct {
	// Records is the local document cache.
	Records RecordRepository
	// Queue is the outbox of pending mutations.
	Queue SyncQueueRepository
	// Metadata is the key/value bookkeeping table.
	Metadata MetadataRepository
	// Preferences is the client-side preference table.
	Preferences PreferenceStore

	db *DB
}

// Open initialises the client storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to cfg.DB.DSN, creating the database file
//     if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//
// Returns an error wrapping [ErrStorage] if any step fails.
func Open(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (*ClientStorages, error) {
	log.Info().Str("dsn", cfg.DB.DSN).Msg("opening local storage...")

	db, err := NewConnectSQLite(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	ids := utils.NewUUIDGenerator()

	return &ClientStorages{
		Records:     NewRecordRepository(db, log, ids),
		Queue:       NewSyncQueueRepository(db, log, ids),
		Metadata:    NewMetadataRepository(db, log),
		Preferences: NewPreferenceRepository(db, log),
		db:          db,
	}, nil
}

// Close releases the database handle.
func (s *ClientStorages) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}
