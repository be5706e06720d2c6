package http

import (
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/service"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type Handler struct {
	services    *service.ClientServices
	records     store.RecordRepository
	collections models.CollectionRegistry

	logger *logger.Logger
}

func NewHandler(services *service.ClientServices, records store.RecordRepository, collections models.CollectionRegistry, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services:    services,
		records:     records,
		collections: collections,
		logger:      logger,
	}
}
