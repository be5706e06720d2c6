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

	cfg, err := config.GetClientConfig()
	if err != nil {
		logger.NewLogger("spendlytics-client").Fatal().Err(err).Msg("error getting configs")
	}

	log := logger.NewClientLogger("spendlytics-client", cfg.App.LogFile)
	logger.SetLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := client.NewApp(ctx, cfg, info, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Err(err).Msg("close client app")
		}
	}()

	if err = app.Run(ctx); err != nil {
		log.Err(err).Msg("client run error")
	}
}
