// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"errors"
	"strings"

	"github.com/laoluafolami/spendlytics-sub001/internal/service"
)

var (
	errAmountRequired   = errors.New("amount must be a positive number")
	errCategoryRequired = errors.New("category is required")
	errInvalidDate      = errors.New("date must look like 2006-01-02")
	errPathRequired     = errors.New("backup file path is required")
	errNothingToBackup  = errors.New("select at least one backup source")
)

// humanizeError turns service errors into short messages for the status
// line.
func humanizeError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, service.ErrOffline):
		return "Offline: changes are kept locally and will sync on reconnect"
	case errors.Is(err, service.ErrNoSession):
		return "Not signed in: set a session id or access token"
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "connection refused") ||
		strings.Contains(s, "dial tcp") ||
		strings.Contains(s, "no such host") ||
		strings.Contains(s, "i/o timeout") ||
		strings.Contains(s, "context deadline exceeded") {
		return "Remote store is unreachable"
	}

	return err.Error()
}
