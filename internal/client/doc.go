// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the spendlytics client runtime.
//
// It opens the local store and the remote driver, builds the services and
// background workers, and runs them under one of the front ends: the
// terminal UI or the local HTTP API.
package client
