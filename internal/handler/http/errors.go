// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

// Sentinel errors produced by the transport layer itself. Callers can match
// against them with [errors.Is].
var (
	// ErrInvalidRequestBody is returned when a JSON request body cannot be
	// decoded into the expected type.
	ErrInvalidRequestBody = errors.New("invalid request body")

	// ErrEmptyRequestBody is returned when an endpoint that needs an
	// uploaded artifact receives no body.
	ErrEmptyRequestBody = errors.New("empty request body")

	// ErrInvalidQueryParameter is returned when a query parameter has a
	// value of the wrong type.
	ErrInvalidQueryParameter = errors.New("invalid query parameter")

	// ErrContentDigestMismatch is returned by the digest middleware when
	// the body does not hash to the value of the X-Content-SHA256 header.
	ErrContentDigestMismatch = errors.New("content digest mismatch")
)
