package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/laoluafolami/spendlytics-sub001/internal/adapter"
	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/handler"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/server"
	"github.com/laoluafolami/spendlytics-sub001/internal/service"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/internal/tui"
	"github.com/laoluafolami/spendlytics-sub001/internal/workers"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type App struct {
	cfg       *config.ClientConfig
	storages  *store.ClientStorages
	remote    adapter.RemoteStore
	services  *service.ClientServices
	monitor   *workers.ConnectivityMonitor
	workers   *workers.Workers
	buildInfo models.AppBuildInfo
	logger    *logger.Logger
}

// NewApp opens the local store and the remote driver and wires the
// services and background workers. Nothing runs until Run or Serve.
func NewApp(ctx context.Context, cfg *config.ClientConfig, info models.AppBuildInfo, log *logger.Logger) (*App, error) {
	storages, err := store.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}

	remote, err := adapter.NewRemoteStore(ctx, cfg.Adapter, log)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("create remote store: %w", err)
	}

	return newApp(cfg, storages, remote, info, log), nil
}

func newApp(cfg *config.ClientConfig, storages *store.ClientStorages, remote adapter.RemoteStore, info models.AppBuildInfo, log *logger.Logger) *App {
	if info.Stamped() {
		cfg.App.Version = info.BuildVersion()
	}
	services := service.NewClientServices(cfg, storages, remote, log)

	monitor := workers.NewConnectivityMonitor(
		workers.NewProber(cfg.Adapter.HealthURL, cfg.Adapter.RequestTimeout, remote),
		services.Orchestrator,
		cfg.Workers.ProbeInterval,
		cfg.Workers.SyncInterval,
		log,
	)

	return &App{
		cfg:       cfg,
		storages:  storages,
		remote:    remote,
		services:  services,
		monitor:   monitor,
		workers:   workers.NewWorkers(monitor, workers.NewSyncWorker(services.SyncJob, cfg.Workers.SyncInterval)),
		buildInfo: info,
		logger:    log,
	}
}

func (a *App) Services() *service.ClientServices { return a.services }

func (a *App) Storages() *store.ClientStorages { return a.storages }

// Connect probes the remote store once and reports the outcome to the
// orchestrator. Coming online drains the sync queue.
func (a *App) Connect(ctx context.Context) bool {
	return a.monitor.Check(ctx)
}

// Run starts the background workers and shows the terminal UI until the
// user quits.
func (a *App) Run(ctx context.Context) error {
	a.workers.Run(ctx)
	defer a.workers.Stop()

	ui := tui.New(a.services, a.storages.Records, a.cfg.App.BackupDir, a.buildInfo, a.logger)
	return ui.Run(ctx)
}

// Serve exposes the local HTTP API until ctx is cancelled. The workers run
// for the lifetime of the server.
func (a *App) Serve(ctx context.Context) error {
	handlers, err := handler.NewHandlers(a.services, a.storages, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("create handlers: %w", err)
	}

	srv, err := server.NewServer(handlers, a.workers, a.cfg.Server, a.logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	return srv.Run(ctx)
}

// Migrate applies the remote schema for drivers that own one.
func (a *App) Migrate(ctx context.Context) error {
	m, ok := a.remote.(adapter.Migrator)
	if !ok {
		return fmt.Errorf("%w: %q", ErrMigrationUnsupported, a.cfg.Adapter.Driver)
	}
	return m.Migrate(ctx)
}

// Close stops the orchestrator and releases both stores.
func (a *App) Close() error {
	a.services.Orchestrator.Close()
	return errors.Join(a.remote.Close(), a.storages.Close())
}
