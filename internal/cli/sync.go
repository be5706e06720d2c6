package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/laoluafolami/spendlytics-sub001/internal/service"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type statusReport struct {
	Status   models.SyncStatus    `json:"status"`
	Unsynced models.UnsyncedCount `json:"unsynced"`
}

func report(ctx context.Context, app App) (statusReport, error) {
	unsynced, err := app.Storages().Records.CountUnsynced(ctx)
	if err != nil {
		return statusReport{}, err
	}
	return statusReport{Status: app.Services().Orchestrator.Status(), Unsynced: unsynced}, nil
}

type statusCmd struct {
	*env
	probe bool
}

func (*statusCmd) Name() string { return "status" }
func (*statusCmd) Synopsis() string { return "show sync queue and connectivity state" }
func (*statusCmd) Usage() string {
	return `spendctl status [-probe]

  Prints pending and failed queue counts and the unsynced records per
  collection. With -probe the remote store is contacted first, which also
  drains the queue when it is reachable.
`
}

func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.probe, "probe", false, "Probe the remote store before reporting.")
}

func (c *statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(app App) error {
		if c.probe {
			app.Connect(ctx)
		}
		r, err := report(ctx, app)
		if err != nil {
			return err
		}
		return c.print(r)
	})
}

type syncCmd struct{ *env }

func (*syncCmd) Name() string { return "sync" }
func (*syncCmd) Synopsis() string { return "push pending changes and refresh from the remote store" }
func (*syncCmd) Usage() string {
	return `spendctl sync

  Runs one reconciliation pass. Fails when the remote store is unreachable.
`
}
func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(app App) error {
		if !app.Connect(ctx) {
			return service.ErrOffline
		}
		if err := app.Services().Orchestrator.ForceSyncNow(ctx); err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		r, err := report(ctx, app)
		if err != nil {
			return err
		}
		return c.print(r)
	})
}

type retryCmd struct{ *env }

func (*retryCmd) Name() string { return "retry" }
func (*retryCmd) Synopsis() string { return "queue failed changes for delivery again" }
func (*retryCmd) Usage() string {
	return `spendctl retry

  Resets the retry counter of every failed queue item.
`
}
func (*retryCmd) SetFlags(*flag.FlagSet) {}

func (c *retryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(app App) error {
		n, err := app.Services().Orchestrator.RetryFailed(ctx)
		if err != nil {
			return err
		}
		return c.print(map[string]int{"reset": n})
	})
}

type migrateCmd struct{ *env }

func (*migrateCmd) Name() string { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply the remote schema" }
func (*migrateCmd) Usage() string {
	return `spendctl migrate

  Creates or upgrades the remote tables. Only the postgres driver owns a
  schema.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(app App) error {
		if err := app.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(c.errOut, "remote schema is up to date")
		return nil
	})
}
