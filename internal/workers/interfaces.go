// Package workers provides the background workers of the spendlytics
// client: the connectivity monitor and the scheduled sync pass.
//
// It defines the Worker interface and a Workers aggregate that starts and
// stops several workers as one.
package workers

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mock/workers_mock.go -package=mock

// Worker is the interface that must be implemented by any background worker.
//
// Run starts the worker and returns; the work happens in goroutines owned
// by the worker until ctx is cancelled or Stop is called. Stop blocks until
// those goroutines have exited and is safe to call on a stopped worker.
//
// Example implementation:
//
//	type MyWorker struct{ cancel context.CancelFunc }
//
//	func (w *MyWorker) Run(ctx context.Context) {
//	    ctx, w.cancel = context.WithCancel(ctx)
//	    go process(ctx)
//	}
type Worker interface {
	Run(ctx context.Context)
	Stop()
}

// Prober checks whether the remote store is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// ConnectivitySink receives connectivity changes. The sync orchestrator is
// the production sink.
type ConnectivitySink interface {
	SetOnline(ctx context.Context, online bool) error
}
