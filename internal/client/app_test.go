package client

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laoluafolami/spendlytics-sub001/internal/adapter"
	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

func testConfig(t *testing.T, driver string) *config.ClientConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.ClientConfig{
		App: config.ClientApp{Version: "test", BackupDir: dir},
		Adapter: config.ClientAdapter{
			Driver:         driver,
			RequestTimeout: time.Second,
		},
		Storage: config.ClientStorage{
			DB: config.ClientDB{DSN: filepath.Join(dir, "local.db")},
		},
		Workers: config.ClientWorkers{
			SyncInterval:   time.Hour,
			ProbeInterval:  time.Hour,
			MaxRetries:     3,
			RetryBaseDelay: time.Millisecond,
			RetryMaxDelay:  time.Millisecond,
		},
		Backup:      config.ClientBackup{BatchSize: 10},
		Server:      config.ClientServer{HTTPAddress: "127.0.0.1:0", RequestTimeout: time.Second},
		Collections: models.DefaultCollections,
		Preferences: models.DefaultPreferences,
	}
}

func TestNewApp_MemoryDriver(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t, config.DriverMemory), models.NewAppBuildInfo("", "", ""), logger.Nop())
	require.NoError(t, err)

	require.NotNil(t, app.Services())
	require.NotNil(t, app.Storages())
	assert.NotNil(t, app.Services().Orchestrator)
	assert.NotNil(t, app.Services().BackupService)
	assert.NotNil(t, app.Services().RestoreService)

	assert.True(t, app.Connect(context.Background()))
	assert.True(t, app.Services().Orchestrator.Status().IsOnline)

	err = app.Migrate(context.Background())
	assert.ErrorIs(t, err, ErrMigrationUnsupported)

	assert.NoError(t, app.Close())
}

func TestNewApp_UnknownDriver(t *testing.T) {
	_, err := NewApp(context.Background(), testConfig(t, "cassandra"), models.AppBuildInfo{}, logger.Nop())
	assert.ErrorIs(t, err, adapter.ErrUnknownDriver)
}

func TestNewApp_BadStoragePath(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)
	cfg.Storage.DB.DSN = filepath.Join(t.TempDir(), "missing", "dir", "local.db")

	_, err := NewApp(context.Background(), cfg, models.AppBuildInfo{}, logger.Nop())
	assert.Error(t, err)
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t, config.DriverMemory), models.AppBuildInfo{}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()

	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestApp_ServeWithoutAddress(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)
	cfg.Server.HTTPAddress = ""

	app, err := NewApp(context.Background(), cfg, models.AppBuildInfo{}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Error(t, app.Serve(context.Background()))
}

func TestNewApp_StampsBuildVersion(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)

	app, err := NewApp(context.Background(), cfg, models.NewAppBuildInfo("2.3.1", "", ""), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Equal(t, "2.3.1", cfg.App.Version)
}
