package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging, withGZip)

	router.Get("/api/status", h.status)
	router.Post("/api/sync", h.forceSync)
	router.Post("/api/sync/retry", h.retryFailed)

	router.Get("/api/collections/{name}", h.listRecords)

	router.Post("/api/backup", h.createBackup)

	// uploaded artifacts may carry a digest of the body
	router.Group(func(r chi.Router) {
		r.Use(h.withContentDigest)
		r.Post("/api/backup/validate", h.validateBackup)
		r.Post("/api/restore", h.restoreBackup)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
