package store

import (
	"context"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// RecordRepository is the local document cache. Every mutation is written
// together with its sync queue item in one transaction.
type RecordRepository interface {
	Put(ctx context.Context, collection string, record models.Record) (models.Record, error)
	Get(ctx context.Context, collection, id string) (models.Record, error)
	GetAll(ctx context.Context, collection string, filter *models.RecordFilter) ([]models.Record, error)
	Remove(ctx context.Context, collection, id string) error
	CountUnsynced(ctx context.Context) (models.UnsyncedCount, error)
	ApplyRemote(ctx context.Context, collection string, records []models.Record, prune bool) (models.MergeStats, error)
	Purge(ctx context.Context, collection, id string) error
	Snapshot(ctx context.Context, collections []string) (models.LocalSnapshot, error)
	Import(ctx context.Context, snapshot models.LocalSnapshot) (int, error)
}

// SyncQueueRepository is the outbox of pending mutations, drained in
// enqueue order.
type SyncQueueRepository interface {
	Enqueue(ctx context.Context, item models.SyncQueueItem) (models.SyncQueueItem, error)
	PeekAll(ctx context.Context) ([]models.SyncQueueItem, error)
	PeekReady(ctx context.Context, now time.Time) ([]models.SyncQueueItem, error)
	Remove(ctx context.Context, id string) error
	IncrementRetry(ctx context.Context, id, cause string, nextAttempt time.Time, failed bool) error
	PendingCount(ctx context.Context) (int, error)
	FailedCount(ctx context.Context) (int, error)
	ResetFailed(ctx context.Context, now time.Time) (int, error)
	Confirm(ctx context.Context, item models.SyncQueueItem) error
}

// MetadataRepository is the flat key/value table for bookkeeping such as
// the last sync time.
type MetadataRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	GetTime(ctx context.Context, key string) (*time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)
	Reset(ctx context.Context) error
}

// PreferenceStore is the client-side key/value preference storage. It
// lives in the same SQLite database as the local store.
type PreferenceStore interface {
	Keys(ctx context.Context) ([]string, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
