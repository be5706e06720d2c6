// Package tui is the terminal front end of the spendlytics client: an
// expense list with live sync status, plus backup and restore screens.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/service"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type TUI struct {
	services  *service.ClientServices
	records   store.RecordRepository
	backupDir string
	buildInfo models.AppBuildInfo
	logger    *logger.Logger
}

func New(services *service.ClientServices, records store.RecordRepository, backupDir string, info models.AppBuildInfo, log *logger.Logger) *TUI {
	return &TUI{
		services:  services,
		records:   records,
		backupDir: backupDir,
		buildInfo: info,
		logger:    log,
	}
}

// Run shows the UI until the user quits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	expenses := service.NewCollection[models.Expense]("expenses", t.records, t.services.Orchestrator, t.logger)
	defer expenses.Close()

	statusCh := make(chan models.SyncStatus, 1)
	unsubscribe := t.services.Orchestrator.Subscribe(func(st models.SyncStatus) {
		publishLatest(statusCh, st)
	})
	defer unsubscribe()

	model := newAppModel(ctx, t.services, expenses, statusCh, t.backupDir, t.buildInfo)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

// publishLatest replaces any undelivered status with st. The orchestrator
// calls subscribers synchronously, so this never blocks.
func publishLatest(ch chan models.SyncStatus, st models.SyncStatus) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
