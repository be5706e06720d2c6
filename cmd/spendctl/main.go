package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"

	"github.com/laoluafolami/spendlytics-sub001/internal/cli"
	"github.com/laoluafolami/spendlytics-sub001/internal/client"
	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	// Configuration flags come before the subcommand name, so parsing them
	// also leaves the subcommand in flag.Args for the commander.
	cfg, err := config.GetClientConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error getting configs:", err)
		os.Exit(int(subcommands.ExitUsageError))
	}

	log := logger.NewLogger("spendctl")
	logger.SetLevel(cfg.App.LogLevel)
	info := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)

	open := func(ctx context.Context) (cli.App, error) {
		app, err := client.NewApp(ctx, cfg, info, log)
		if err != nil {
			return nil, err
		}
		return app, nil
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range cli.Commands(open, os.Stdout, os.Stderr) {
		commander.Register(c, "")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
