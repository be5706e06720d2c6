package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
)

type metadataRepository struct {
	*DB
	logger *logger.Logger
}

func NewMetadataRepository(db *DB, logger *logger.Logger) MetadataRepository {
	return &metadataRepository{
		DB:     db,
		logger: logger,
	}
}

func (m *metadataRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := sqlite.Select("value").From(metadataTable).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	var value string
	err = m.DB.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		m.logger.Err(err).Str("func", "metadataRepository.Get").Str("key", key).Msg("failed to read metadata")
		return "", false, fmt.Errorf("%w: failed to read metadata: %w", ErrStorage, err)
	}

	return value, true, nil
}

func (m *metadataRepository) Set(ctx context.Context, key, value string) error {
	query, args, err := upsertMetadataQuery(key, value, utcNow())
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	if _, err = m.DB.ExecContext(ctx, query, args...); err != nil {
		m.logger.Err(err).Str("func", "metadataRepository.Set").Str("key", key).Msg("failed to write metadata")
		return fmt.Errorf("%w: failed to write metadata: %w", ErrStorage, err)
	}

	return nil
}

// GetTime reads an RFC 3339 timestamp. Missing or unparseable values read
// as nil.
func (m *metadataRepository) GetTime(ctx context.Context, key string) (*time.Time, error) {
	value, ok, err := m.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		m.logger.Warn().Str("func", "metadataRepository.GetTime").Str("key", key).Msg("ignoring malformed timestamp")
		return nil, nil
	}

	return &t, nil
}

func (m *metadataRepository) SetTime(ctx context.Context, key string, t time.Time) error {
	return m.Set(ctx, key, t.UTC().Format(time.RFC3339Nano))
}

func (m *metadataRepository) Delete(ctx context.Context, key string) error {
	query, args, err := sqlite.Delete(metadataTable).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	if _, err = m.DB.ExecContext(ctx, query, args...); err != nil {
		m.logger.Err(err).Str("func", "metadataRepository.Delete").Str("key", key).Msg("failed to delete metadata")
		return fmt.Errorf("%w: failed to delete metadata: %w", ErrStorage, err)
	}

	return nil
}

func (m *metadataRepository) All(ctx context.Context) (map[string]string, error) {
	values, err := allMetadata(ctx, m.DB)
	if err != nil {
		m.logger.Err(err).Str("func", "metadataRepository.All").Msg("failed to read metadata")
		return nil, err
	}
	return values, nil
}

// Reset removes every metadata key. It is the only way metadata is ever
// dropped.
func (m *metadataRepository) Reset(ctx context.Context) error {
	query, args, err := sqlite.Delete(metadataTable).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	if _, err = m.DB.ExecContext(ctx, query, args...); err != nil {
		m.logger.Err(err).Str("func", "metadataRepository.Reset").Msg("failed to reset metadata")
		return fmt.Errorf("%w: failed to reset metadata: %w", ErrStorage, err)
	}

	return nil
}

func allMetadata(ctx context.Context, q queryer) (map[string]string, error) {
	query, args, err := sqlite.Select("key", "value").From(metadataTable).OrderBy("key").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query metadata: %w", ErrStorage, err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err = rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: failed to scan metadata row: %w", ErrStorage, err)
		}
		values[key] = value
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return values, nil
}
