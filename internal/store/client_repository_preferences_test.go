package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
)

func TestPreferenceRepository(t *testing.T) {
	s := openTestStorages(t)
	ctx := context.Background()

	keys, err := s.Preferences.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, ok, err := s.Preferences.Get(ctx, "spendlytics.currency")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Preferences.Set(ctx, "spendlytics.theme", "light"))
	require.NoError(t, s.Preferences.Set(ctx, "spendlytics.theme", "dark"))
	require.NoError(t, s.Preferences.Set(ctx, "spendlytics.currency", "EUR"))
	require.NoError(t, s.Preferences.Set(ctx, "spendlytics.empty", ""))

	v, ok, err := s.Preferences.Get(ctx, "spendlytics.theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	v, ok, err = s.Preferences.Get(ctx, "spendlytics.empty")
	require.NoError(t, err)
	assert.True(t, ok, "an empty value is still set")
	assert.Empty(t, v)

	keys, err = s.Preferences.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"spendlytics.currency", "spendlytics.empty", "spendlytics.theme"}, keys)

	require.NoError(t, s.Preferences.Delete(ctx, "spendlytics.theme"))
	require.NoError(t, s.Preferences.Delete(ctx, "never-set"))

	_, ok, err = s.Preferences.Get(ctx, "spendlytics.theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreferenceRepository_SeparateFromMetadata(t *testing.T) {
	s := openTestStorages(t)
	ctx := context.Background()

	require.NoError(t, s.Preferences.Set(ctx, "k", "pref"))
	require.NoError(t, s.Metadata.Set(ctx, "k", "meta"))
	require.NoError(t, s.Metadata.Reset(ctx))

	v, ok, err := s.Preferences.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "resetting metadata leaves preferences alone")
	assert.Equal(t, "pref", v)
}

func TestPreferenceRepository_InMemoryDatabase(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.ClientStorage{DB: config.ClientDB{DSN: ":memory:"}}, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Preferences.Set(ctx, "a", "1"))
	v, ok, err := s.Preferences.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestPreferenceRepository_StorageErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	prefs := NewPreferenceRepository(&DB{DB: sqlDB, logger: logger.Nop()}, logger.Nop())
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(`SELECT key FROM preferences ORDER BY key`).WillReturnError(boom)
	_, err = prefs.Keys(ctx)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(`SELECT value FROM preferences WHERE key = \?`).WithArgs("k").WillReturnError(boom)
	_, _, err = prefs.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStorage)

	mock.ExpectExec(`INSERT INTO preferences \(key,value,updated_at\) VALUES \(\?,\?,\?\) ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("k", "v", sqlmock.AnyArg()).
		WillReturnError(boom)
	assert.ErrorIs(t, prefs.Set(ctx, "k", "v"), ErrStorage)

	mock.ExpectExec(`DELETE FROM preferences WHERE key = \?`).WithArgs("k").WillReturnError(boom)
	assert.ErrorIs(t, prefs.Delete(ctx, "k"), ErrStorage)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_PreferencesShareTheDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ClientStorage{DB: config.ClientDB{DSN: filepath.Join(dir, "local.db")}}
	ctx := context.Background()

	s, err := Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Preferences.Set(ctx, "spendlytics.currency", "EUR"))
	require.NoError(t, s.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no side file is written")

	s, err = Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Preferences.Get(ctx, "spendlytics.currency")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "EUR", v)
}
