package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/handler"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/workers"
)

type server struct {
	httpServer *httpServer
	workers    *workers.Workers
	logger     *logger.Logger

	mu        sync.Mutex
	running   bool
	listening chan struct{}
	stopOnce  sync.Once
}

// NewServer creates the local API server. background is started with the
// server and stopped after the listener has drained; it may be nil.
func NewServer(handlers *handler.Handlers, background *workers.Workers, cfg config.ClientServer, logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating new server...")

	if handlers == nil || handlers.HTTP == nil || cfg.HTTPAddress == "" {
		return nil, errNoServersAreCreated
	}
	if background == nil {
		background = workers.NewWorkers()
	}

	return &server{
		httpServer: newHTTPServer(handlers.HTTP.Init(), cfg, logger),
		workers:    background,
		logger:     logger,
		listening:  make(chan struct{}),
	}, nil
}

func (s *server) RunServer() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	if err := s.Run(ctx); err != nil {
		s.logger.Err(err).Str("func", "*server.RunServer").Msg("error running server")
	}
}

func (s *server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errServerIsRunning
	}
	s.running = true
	s.mu.Unlock()

	if err := s.httpServer.listen(); err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.server.Addr, err)
	}

	close(s.listening)
	s.workers.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.RunServer()
	}()
	s.logger.Info().Str("address", s.httpServer.addr()).Msg("local API is listening")

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	s.Shutdown()
	s.logger.Info().Msg("server shutdown gracefully")

	return err
}

func (s *server) Shutdown() {
	s.stopOnce.Do(func() {
		s.httpServer.Shutdown()
		s.workers.Stop()
	})
}
