package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
)

type preferenceRepository struct {
	*DB
	logger *logger.Logger
}

func NewPreferenceRepository(db *DB, logger *logger.Logger) PreferenceStore {
	return &preferenceRepository{
		DB:     db,
		logger: logger,
	}
}

// Keys lists every stored key in ascending order.
func (p *preferenceRepository) Keys(ctx context.Context) ([]string, error) {
	query, args, err := sqlite.Select("key").From(prefsTable).OrderBy("key").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		p.logger.Err(err).Str("func", "preferenceRepository.Keys").Msg("failed to list preferences")
		return nil, fmt.Errorf("%w: failed to list preferences: %w", ErrStorage, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: failed to scan preference key: %w", ErrStorage, err)
		}
		keys = append(keys, key)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return keys, nil
}

func (p *preferenceRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := sqlite.Select("value").From(prefsTable).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	var value string
	err = p.DB.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		p.logger.Err(err).Str("func", "preferenceRepository.Get").Str("key", key).Msg("failed to read preference")
		return "", false, fmt.Errorf("%w: failed to read preference: %w", ErrStorage, err)
	}

	return value, true, nil
}

func (p *preferenceRepository) Set(ctx context.Context, key, value string) error {
	query, args, err := upsertPreferenceQuery(key, value, utcNow())
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	if _, err = p.DB.ExecContext(ctx, query, args...); err != nil {
		p.logger.Err(err).Str("func", "preferenceRepository.Set").Str("key", key).Msg("failed to write preference")
		return fmt.Errorf("%w: failed to write preference: %w", ErrStorage, err)
	}

	return nil
}

// Delete removes key. Deleting a key that was never set is not an error.
func (p *preferenceRepository) Delete(ctx context.Context, key string) error {
	query, args, err := sqlite.Delete(prefsTable).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	if _, err = p.DB.ExecContext(ctx, query, args...); err != nil {
		p.logger.Err(err).Str("func", "preferenceRepository.Delete").Str("key", key).Msg("failed to delete preference")
		return fmt.Errorf("%w: failed to delete preference: %w", ErrStorage, err)
	}

	return nil
}
