// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

// spyOrchestrator counts ForceSyncNow calls.
type spyOrchestrator struct {
	calls atomic.Int64
	err   error
}

func (s *spyOrchestrator) Status() models.SyncStatus { return models.SyncStatus{} }
func (s *spyOrchestrator) Subscribe(func(models.SyncStatus)) func() { return func() {} }
func (s *spyOrchestrator) RequestSync() {}
func (s *spyOrchestrator) SetOnline(context.Context, bool) error { return nil }
func (s *spyOrchestrator) RetryFailed(context.Context) (int, error) { return 0, nil }
func (s *spyOrchestrator) Refresh(context.Context) error { return nil }
func (s *spyOrchestrator) Close() {}
func (s *spyOrchestrator) ForceSyncNow(context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestNewSyncJob_ReturnsInterface(t *testing.T) {
	job := NewSyncJob(&spyOrchestrator{}, logger.Nop())
	require.NotNil(t, job)

	var _ SyncJob = job
}

func TestSyncJob_Start_TriggersPasses(t *testing.T) {
	spy := &spyOrchestrator{}
	job := NewSyncJob(spy, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	job.Stop()

	got := spy.calls.Load()
	assert.GreaterOrEqual(t, got, int64(3), "ForceSyncNow called %d times", got)
}

func TestSyncJob_Stop_StopsGoroutine(t *testing.T) {
	spy := &spyOrchestrator{}
	job := NewSyncJob(spy, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	callsAfterStop := spy.calls.Load()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, callsAfterStop, spy.calls.Load())
}

func TestSyncJob_Stop_BeforeStart_NoPanic(t *testing.T) {
	job := NewSyncJob(&spyOrchestrator{}, logger.Nop())
	assert.NotPanics(t, func() { job.Stop() })
}

func TestSyncJob_DoubleStop_NoPanic(t *testing.T) {
	job := NewSyncJob(&spyOrchestrator{}, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	job.Stop()

	assert.NotPanics(t, func() { job.Stop() })
}

func TestSyncJob_Start_DefaultInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		spy := &spyOrchestrator{}
		job := NewSyncJob(spy, logger.Nop())

		job.Start(context.Background(), interval)
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		assert.Zero(t, spy.calls.Load(), "interval %v falls back to one minute", interval)
	}
}

func TestSyncJob_Start_RestartStopsPrevious(t *testing.T) {
	spy := &spyOrchestrator{}
	job := NewSyncJob(spy, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	job.Start(context.Background(), time.Hour)
	time.Sleep(30 * time.Millisecond)
	before := spy.calls.Load()
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	assert.Equal(t, before, spy.calls.Load())
}

func TestSyncJob_Start_ContextCancelStops(t *testing.T) {
	spy := &spyOrchestrator{}
	job := NewSyncJob(spy, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	job.Start(ctx, 10*time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond)
	job.Stop()

	assert.LessOrEqual(t, spy.calls.Load(), int64(1))
}

func TestSyncJob_OfflineErrorsKeepTicking(t *testing.T) {
	spy := &spyOrchestrator{err: ErrOffline}
	job := NewSyncJob(spy, logger.Nop())

	job.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(45 * time.Millisecond)
	job.Stop()

	assert.GreaterOrEqual(t, spy.calls.Load(), int64(2))
}
