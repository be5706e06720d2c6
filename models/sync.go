// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// Operation is the kind of mutation carried by a [SyncQueueItem].
type Operation string

const (
	// OperationCreate is emitted for a record the remote store has never seen.
	OperationCreate Operation = "create"
	// OperationUpdate is emitted for a change to an existing record.
	OperationUpdate Operation = "update"
	// OperationDelete is emitted when a record is removed locally.
	OperationDelete Operation = "delete"
)

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// QueueState is the lifecycle state of a [SyncQueueItem].
type QueueState string

const (
	// QueueStatePending items are waiting to be applied (possibly after a
	// backoff delay).
	QueueStatePending QueueState = "pending"
	// QueueStateFailed items exhausted their retries or hit a
	// non-retryable error. They are kept for the user to retry.
	QueueStateFailed QueueState = "failed"
)

// SyncQueueItem is one pending mutation in the outbox.
type SyncQueueItem struct {
	// ID is the unique identifier of the queue item.
	ID string `json:"id"`

	// Seq is the enqueue order. Items are drained in ascending Seq.
	Seq int64 `json:"seq"`

	// Collection is the logical collection of the mutated record.
	Collection string `json:"collection"`

	// RecordID is the identity of the mutated record.
	RecordID string `json:"record_id"`

	// Operation is the mutation kind.
	Operation Operation `json:"operation"`

	// Payload is the record's business fields at enqueue time. Empty for
	// deletes.
	Payload json.RawMessage `json:"payload,omitempty"`

	// EnqueuedAt is the time the mutation was recorded.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// RetryCount is the number of failed apply attempts.
	RetryCount int `json:"retry_count"`

	// LastError is the message of the most recent failure.
	LastError *string `json:"last_error,omitempty"`

	// NextAttemptAt is the earliest time the item may be applied again.
	NextAttemptAt time.Time `json:"next_attempt_at"`

	// State is the lifecycle state.
	State QueueState `json:"state"`
}

// SyncStatus is the connectivity and reconciliation state published to
// subscribers.
type SyncStatus struct {
	IsOnline     bool       `json:"is_online"`
	IsSyncing    bool       `json:"is_syncing"`
	PendingCount int        `json:"pending_count"`
	FailedCount  int        `json:"failed_count"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Well-known metadata keys.
const (
	MetaLastSync       = "lastSync"
	MetaLastBackup     = "lastBackup"
	MetaLastPullPrefix = "lastPull:"

	// MetaLastFullPullPrefix keys the time of the last full pull of a
	// delta-pulled collection.
	MetaLastFullPullPrefix = "lastFullPull:"
)
