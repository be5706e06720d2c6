package workers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/laoluafolami/spendlytics-sub001/internal/adapter"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/mock"
)

// recordingSink keeps every reported state.
type recordingSink struct {
	mu     sync.Mutex
	states []bool
}

func (s *recordingSink) SetOnline(_ context.Context, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, online)
	return nil
}

func (s *recordingSink) snapshot() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.states...)
}

func TestConnectivityMonitor_Check(t *testing.T) {
	ctrl := gomock.NewController(t)
	prober := mock.NewMockProber(ctrl)
	sink := mock.NewMockConnectivitySink(ctrl)

	gomock.InOrder(
		prober.EXPECT().Probe(gomock.Any()).Return(nil),
		sink.EXPECT().SetOnline(gomock.Any(), true).Return(nil),
		prober.EXPECT().Probe(gomock.Any()).Return(errors.New("connection refused")),
		sink.EXPECT().SetOnline(gomock.Any(), false).Return(nil),
	)

	m := NewConnectivityMonitor(prober, sink, time.Second, time.Second, logger.Nop())
	assert.True(t, m.Check(context.Background()))
	assert.False(t, m.Check(context.Background()))
}

func TestConnectivityMonitor_SinkErrorIsLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	prober := mock.NewMockProber(ctrl)
	sink := mock.NewMockConnectivitySink(ctrl)

	prober.EXPECT().Probe(gomock.Any()).Return(nil)
	sink.EXPECT().SetOnline(gomock.Any(), true).Return(errors.New("pass failed"))

	m := NewConnectivityMonitor(prober, sink, time.Second, time.Second, logger.Nop())
	assert.True(t, m.Check(context.Background()))
}

func TestConnectivityMonitor_CancelledContextReportsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	prober := mock.NewMockProber(ctrl)
	sink := mock.NewMockConnectivitySink(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prober.EXPECT().Probe(gomock.Any()).Return(context.Canceled)

	m := NewConnectivityMonitor(prober, sink, time.Second, time.Second, logger.Nop())
	assert.False(t, m.Check(ctx))
}

func TestConnectivityMonitor_RunProbesImmediatelyAndOnTicks(t *testing.T) {
	remote := adapter.NewMemoryRemote()
	sink := &recordingSink{}

	m := NewConnectivityMonitor(NewRemoteProber(remote), sink, 10*time.Millisecond, time.Second, logger.Nop())
	m.Run(context.Background())
	require.Eventually(t, func() bool { return len(sink.snapshot()) >= 1 }, time.Second, time.Millisecond)
	assert.True(t, sink.snapshot()[0])

	remote.SetOffline(true)
	require.Eventually(t, func() bool {
		states := sink.snapshot()
		return !states[len(states)-1]
	}, time.Second, time.Millisecond)

	m.Stop()
	n := len(sink.snapshot())
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, sink.snapshot(), n, "no probes after Stop")

	assert.NotPanics(t, m.Stop)
}

func TestConnectivityMonitor_DefaultInterval(t *testing.T) {
	m := NewConnectivityMonitor(nil, nil, 0, 0, logger.Nop())
	assert.Equal(t, 15*time.Second, m.interval)
	assert.Equal(t, time.Minute, m.syncTimeout)
}

// blockingSink holds SetOnline until its context ends.
type blockingSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *blockingSink) SetOnline(ctx context.Context, _ bool) error {
	<-ctx.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, ctx.Err())
	return ctx.Err()
}

func (s *blockingSink) calls() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func TestConnectivityMonitor_SlowSyncIsBounded(t *testing.T) {
	sink := &blockingSink{}
	m := NewConnectivityMonitor(NewRemoteProber(adapter.NewMemoryRemote()), sink, time.Second, 20*time.Millisecond, logger.Nop())

	start := time.Now()
	assert.True(t, m.Check(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []error{context.DeadlineExceeded}, sink.calls())
}

func TestConnectivityMonitor_SlowSyncDoesNotStallMonitor(t *testing.T) {
	sink := &blockingSink{}
	m := NewConnectivityMonitor(NewRemoteProber(adapter.NewMemoryRemote()), sink, 5*time.Millisecond, 10*time.Millisecond, logger.Nop())

	m.Run(context.Background())
	require.Eventually(t, func() bool { return len(sink.calls()) >= 3 }, 2*time.Second, time.Millisecond)
	m.Stop()
}

func TestHTTPProber(t *testing.T) {
	var status int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL+"/health", time.Second)

	mu.Lock()
	status = http.StatusOK
	mu.Unlock()
	assert.NoError(t, p.Probe(context.Background()))

	mu.Lock()
	status = http.StatusServiceUnavailable
	mu.Unlock()
	err := p.Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPProber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Error(t, NewHTTPProber(url, time.Second).Probe(context.Background()))
}

func TestNewProber(t *testing.T) {
	remote := adapter.NewMemoryRemote()

	_, isHTTP := NewProber("http://localhost/health", time.Second, remote).(*HTTPProber)
	assert.True(t, isHTTP)

	_, isRemote := NewProber("", time.Second, remote).(*RemoteProber)
	assert.True(t, isRemote)
}

func TestSyncWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	job := mock.NewMockSyncJob(ctrl)

	ctx := context.Background()
	gomock.InOrder(
		job.EXPECT().Start(ctx, time.Minute),
		job.EXPECT().Stop(),
	)

	w := NewSyncWorker(job, time.Minute)
	w.Run(ctx)
	w.Stop()
}
