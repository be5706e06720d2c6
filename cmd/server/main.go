package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

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
	info := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	fmt.Println(info)

	log := logger.NewLogger("spendlytics-api")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	logger.SetLevel(cfg.App.LogLevel)

	log.Debug().Str("address", cfg.Server.HTTPAddress).Str("driver", cfg.Adapter.Driver).Msg("received configs")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := client.NewApp(ctx, cfg, info, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating app")
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Err(err).Msg("error closing app")
		}
	}()

	if err = app.Serve(ctx); err != nil {
		log.Err(err).Msg("error running local API")
	}
}
