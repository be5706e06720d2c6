// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides transport-layer access to the remote relational
// store that backs spendlytics.
//
// The primary abstraction is [RemoteStore], a generic table client that
// decouples the sync and restore services from the underlying protocol. The
// package ships four drivers selected by [NewRemoteStore]: PostgreSQL over
// pgx, supabase through supabase-go, plain PostgREST over resty, and an
// in-process [MemoryRemote].
//
// Every failure returned by a driver wraps [ErrRemote] and exactly one of
// [ErrRetryable] or [ErrNonRetryable], so callers can decide between
// backing off and giving up with [errors.Is].
package adapter

import (
	"context"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_store_mock.go -package=mock

// RemoteStore is a generic request/response client for remote tables.
// Identity, relevance and ordering columns are passed by the caller; the
// driver knows nothing about collections.
type RemoteStore interface {
	// Select returns the rows of q.Table matching the relevance filter and,
	// when requested, the delta bound. Rows are ordered by q.OrderBy when
	// set.
	Select(ctx context.Context, q models.RemoteQuery) ([]models.Row, error)

	// Upsert writes rows keyed by idField: existing rows are updated,
	// missing rows inserted. A call is applied atomically where the driver
	// allows it.
	Upsert(ctx context.Context, table, idField string, rows []models.Row) error

	// Insert writes new rows. An identity clash is a non-retryable error.
	Insert(ctx context.Context, table string, rows []models.Row) error

	// DeleteByID removes the row with the given identity. Deleting a
	// missing row is not an error.
	DeleteByID(ctx context.Context, table, idField, id string) error

	// DeleteWhere removes every row whose field equals value.
	DeleteWhere(ctx context.Context, table, field, value string) error

	// Ping checks that the remote store is reachable.
	Ping(ctx context.Context) error

	// Close releases connections held by the driver.
	Close() error
}

// Migrator is implemented by drivers that own the remote schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}
