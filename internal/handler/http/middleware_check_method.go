// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
)

// CheckHTTPMethod is registered as the router's MethodNotAllowed handler.
// It answers 404 instead of chi's 405 when the path exists but the method
// does not, so unsupported methods look like unknown routes.
//
// Only literal patterns are compared with the request path. A path that
// matches a registered pattern and method is routed normally.
func CheckHTTPMethod(router *chi.Mux) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, route := range router.Routes() {
			if route.Pattern != r.URL.Path {
				continue
			}
			if _, ok := route.Handlers[r.Method]; ok {
				router.ServeHTTP(w, r)
				return
			}
			break
		}

		utils.WriteError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	}
}
