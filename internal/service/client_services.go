package service

import (
	"github.com/laoluafolami/spendlytics-sub001/internal/adapter"
	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/crypto"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
)

type ClientServices struct {
	Session        SessionSource
	Orchestrator   SyncOrchestrator
	SyncJob        SyncJob
	BackupService  BackupService
	RestoreService RestoreService
}

func NewClientServices(cfg *config.ClientConfig, storages *store.ClientStorages, remote adapter.RemoteStore, log *logger.Logger) *ClientServices {
	session := NewSessionSource(cfg.App.SessionID, cfg.Adapter.AccessToken, storages.Preferences, log)
	sealer := crypto.NewSealer()
	orchestrator := NewSyncOrchestrator(storages, remote, session, cfg.Collections, cfg.Workers, log)

	return &ClientServices{
		Session:        session,
		Orchestrator:   orchestrator,
		SyncJob:        NewSyncJob(orchestrator, log),
		BackupService:  NewBackupService(storages, remote, session, sealer, cfg.Collections, cfg.Preferences, cfg.App.Version, log),
		RestoreService: NewRestoreService(storages, remote, session, sealer, cfg.Collections, cfg.Preferences, cfg.Backup.BatchSize, log),
	}
}
