// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// Record is a single domain entity (an expense, an income entry, a
// category) as it lives in the local store. The business fields are kept
// opaque in Data; the store only understands the sync tags.
type Record struct {
	// ID is the client-generated identity of the record. It is also the
	// identity used by the remote store, so replays are upserts.
	ID string `json:"id"`

	// Collection is the logical collection the record belongs to
	// (e.g. "expenses").
	Collection string `json:"collection"`

	// Data holds the business fields as a JSON object.
	Data json.RawMessage `json:"data"`

	// Synced is true when the remote store has confirmed the current
	// local value. Remote pulls only overwrite synced records.
	Synced bool `json:"synced"`

	// LocalOnly is true for records created locally that the remote store
	// has never confirmed. Such records are never overwritten by a pull.
	LocalOnly bool `json:"local_only"`

	// Deleted marks a tombstone: the record is hidden from reads and kept
	// until the remote delete is confirmed.
	Deleted bool `json:"deleted"`

	// UpdatedAt is the time of the last local write.
	UpdatedAt time.Time `json:"updated_at"`
}

// Row converts the record into the remote representation: the business
// fields plus the identity column.
func (r Record) Row(idField string) (Row, error) {
	row := make(Row)
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &row); err != nil {
			return nil, err
		}
	}
	if idField == "" {
		idField = DefaultIDField
	}
	row[idField] = r.ID
	return row, nil
}

// RecordFromRow builds a synced record from a remote row. The identity
// column stays in Data so that backups and restores round-trip it.
func RecordFromRow(collection, idField string, row Row) (Record, error) {
	if idField == "" {
		idField = DefaultIDField
	}
	data, err := json.Marshal(row)
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:         row.ID(idField),
		Collection: collection,
		Data:       data,
		Synced:     true,
	}, nil
}

// RecordFilter narrows [Record] reads from the local store.
type RecordFilter struct {
	// Field is a top-level JSON field of Data to compare with Equals.
	// Empty means no field filter.
	Field string

	// Equals is the value Field must have.
	Equals any

	// OnlyUnsynced restricts the result to records with Synced=false.
	OnlyUnsynced bool

	// OrderBy is a top-level JSON field of Data used for ordering.
	// Records are ordered by UpdatedAt when empty.
	OrderBy string

	// Descending reverses the order.
	Descending bool

	// Limit caps the number of returned records when positive.
	Limit uint64
}

// UnsyncedCount reports how many local records still carry an
// unconfirmed local edit.
type UnsyncedCount struct {
	PerCollection map[string]int `json:"per_collection"`
	Total         int            `json:"total"`
}

// MergeStats summarizes one application of remote records to the local
// store.
type MergeStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Pruned   int `json:"pruned"`
}
