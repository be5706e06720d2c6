// Package http serves the local spendlytics API.
//
// The API is a thin chi router over the client services: it reports the
// sync status, triggers reconciliation passes, lists locally cached
// records, and produces, validates and restores backup artifacts. Request
// tracing, access logging, gzip and upload integrity checks run as
// middleware before the handlers.
package http
