package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed local/*.sql remote/*.sql
var embedMigrations embed.FS

// Schema selects which embedded migration set is applied.
type Schema struct {
	dir     string
	dialect goose.Dialect
}

var (
	// Local is the SQLite schema of the on-device store.
	Local = Schema{dir: "local", dialect: goose.DialectSQLite3}
	// Remote is the PostgreSQL schema of the remote collections.
	Remote = Schema{dir: "remote", dialect: goose.DialectPostgres}
)

// Migrate applies every pending migration of schema to db.
func Migrate(ctx context.Context, db *sql.DB, schema Schema) error {
	if db == nil {
		return errors.New("migration error: db is nil")
	}

	fsys, err := fs.Sub(embedMigrations, schema.dir)
	if err != nil {
		return fmt.Errorf("migration error opening %s migrations: %w", schema.dir, err)
	}

	provider, err := goose.NewProvider(schema.dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("migration error creating provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
