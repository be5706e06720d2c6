// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
)

// ConnectivityMonitor probes the remote store on a ticker and reports the
// result to a [ConnectivitySink]. The first probe runs as soon as the
// monitor starts.
type ConnectivityMonitor struct {
	prober      Prober
	sink        ConnectivitySink
	interval    time.Duration
	timeout     time.Duration
	syncTimeout time.Duration
	logger      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConnectivityMonitor creates an idle monitor. A non-positive interval
// defaults to 15 seconds; each probe is bounded by the interval. The sync
// pass a reconnect starts is bounded by syncTimeout (one minute when not
// positive); an unfinished pass is left to the next sync.
func NewConnectivityMonitor(prober Prober, sink ConnectivitySink, interval, syncTimeout time.Duration, log *logger.Logger) *ConnectivityMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if syncTimeout <= 0 {
		syncTimeout = time.Minute
	}
	return &ConnectivityMonitor{
		prober:      prober,
		sink:        sink,
		interval:    interval,
		timeout:     interval,
		syncTimeout: syncTimeout,
		logger:      log,
	}
}

// Run implements Worker. A running monitor is restarted.
func (m *ConnectivityMonitor) Run(ctx context.Context) {
	m.Stop()

	m.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		t := time.NewTicker(m.interval)
		defer t.Stop()

		m.Check(runCtx)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-t.C:
				m.Check(runCtx)
			}
		}
	}()
}

// Stop implements Worker.
func (m *ConnectivityMonitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Check runs one probe and forwards the outcome. It reports whether the
// remote store was reachable.
func (m *ConnectivityMonitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Probe(probeCtx)
	cancel()

	if ctx.Err() != nil {
		return false
	}

	online := err == nil
	if err != nil {
		m.logger.Debug().Err(err).Str("func", "ConnectivityMonitor.Check").Msg("remote store unreachable")
	}

	syncCtx, cancel := context.WithTimeout(ctx, m.syncTimeout)
	serr := m.sink.SetOnline(syncCtx, online)
	cancel()

	switch {
	case serr == nil:
	case errors.Is(serr, context.DeadlineExceeded) && ctx.Err() == nil:
		m.logger.Warn().Str("func", "ConnectivityMonitor.Check").Dur("timeout", m.syncTimeout).Msg("sync after reconnect timed out")
	default:
		m.logger.Err(serr).Str("func", "ConnectivityMonitor.Check").Bool("online", online).Msg("sync after reconnect failed")
	}
	return online
}
