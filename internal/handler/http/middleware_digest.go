// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
)

// digestHeader carries the hex SHA-256 of a body. The API sets it on
// backup downloads and honours it on uploads.
const digestHeader = "X-Content-SHA256"

// withContentDigest verifies uploaded bodies against the X-Content-SHA256
// header. Requests without the header pass through unchanged. The body is
// restored for the next handler.
func (h *Handler) withContentDigest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := r.Header.Get(digestHeader)
		if expected == "" {
			next.ServeHTTP(w, r)
			return
		}

		log := logger.FromRequest(r)

		var body []byte
		if r.Body != nil {
			var err error
			if body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxArtifactSize)); err != nil {
				log.Err(err).Str("func", "*Handler.withContentDigest").Msg("failed to read request body")
				utils.WriteError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidRequestBody, err).Error())
				return
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		actual := utils.Checksum(body)
		if !utils.ChecksumEqual(actual, expected) {
			log.Error().Str("func", "*Handler.withContentDigest").
				Str("expected", expected).
				Str("actual", actual).
				Msg("body digest does not match")
			utils.WriteError(w, http.StatusBadRequest, ErrContentDigestMismatch.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
