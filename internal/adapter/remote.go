package adapter

import (
	"context"
	"fmt"

	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
)

// NewRemoteStore builds the driver selected by cfg.Driver.
func NewRemoteStore(ctx context.Context, cfg config.ClientAdapter, log *logger.Logger) (RemoteStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return NewPostgresRemote(ctx, cfg, log)
	case config.DriverSupabase:
		return NewSupabaseRemote(cfg, log)
	case config.DriverPostgREST:
		return NewPostgRESTRemote(cfg, log)
	case config.DriverMemory, "":
		log.Warn().Str("func", "NewRemoteStore").Msg("using in-memory remote store, data will not leave this process")
		return NewMemoryRemote(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
