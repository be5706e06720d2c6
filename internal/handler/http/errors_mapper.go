package http

import (
	"errors"
	"net/http"

	"github.com/laoluafolami/spendlytics-sub001/internal/crypto"
	"github.com/laoluafolami/spendlytics-sub001/internal/service"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
)

// errorStatusMap is consulted in a fixed order so that a wrapped error
// matching several targets always maps to the same status.
var errorStatusMap = []struct {
	target error
	status int
}{
	{ErrInvalidRequestBody, http.StatusBadRequest},
	{ErrEmptyRequestBody, http.StatusBadRequest},
	{ErrInvalidQueryParameter, http.StatusBadRequest},
	{ErrContentDigestMismatch, http.StatusBadRequest},

	{service.ErrOffline, http.StatusServiceUnavailable},
	{service.ErrClosed, http.StatusServiceUnavailable},
	{service.ErrNoSession, http.StatusUnauthorized},
	{service.ErrUnknownCollection, http.StatusNotFound},
	{service.ErrValidation, http.StatusUnprocessableEntity},
	{service.ErrDecryption, http.StatusUnprocessableEntity},

	{crypto.ErrEmptyPassphrase, http.StatusBadRequest},

	{store.ErrRecordNotFound, http.StatusNotFound},
	{store.ErrInvalidFilter, http.StatusBadRequest},
	{store.ErrInvalidRecord, http.StatusBadRequest},
	{store.ErrStorage, http.StatusInternalServerError},
}

func statusFromError(err error) int {
	for _, e := range errorStatusMap {
		if errors.Is(err, e.target) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}
