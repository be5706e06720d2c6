package server

import "context"

// Server defines the lifecycle of the local API process: the HTTP
// transport and the background workers that run next to it.
type Server interface {
	// RunServer serves until SIGTERM, SIGINT or SIGQUIT is received and
	// then shuts down gracefully.
	RunServer()

	// Run serves until ctx is done or the listener fails. The returned
	// error is nil after a clean shutdown.
	Run(ctx context.Context) error

	// Shutdown stops the transport and the workers. It is safe to call
	// more than once.
	Shutdown()
}
