// Package server runs the local spendlytics API.
//
// It owns the HTTP listener and the background workers (connectivity
// monitor and periodic sync) for the lifetime of the process, starting
// them together and stopping them together on a termination signal.
package server
