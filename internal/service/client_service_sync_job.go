package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
)

type syncJob struct {
	orchestrator SyncOrchestrator
	logger       *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob creates a syncJob that calls orchestrator.ForceSyncNow on a
// ticker. The job is idle until Start is called.
func NewSyncJob(orchestrator SyncOrchestrator, log *logger.Logger) SyncJob {
	return &syncJob{orchestrator: orchestrator, logger: log}
}

// Start implements SyncJob. Ticks that find the orchestrator offline are
// skipped quietly; the connectivity monitor triggers a pass on reconnect.
func (j *syncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				err := j.orchestrator.ForceSyncNow(jobCtx)
				if err != nil && !errors.Is(err, ErrOffline) && jobCtx.Err() == nil {
					j.logger.Err(err).Str("func", "syncJob.Start").Msg("scheduled sync pass failed")
				}
			}
		}
	}()
}

// Stop implements SyncJob. Safe to call when the job is not running.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
