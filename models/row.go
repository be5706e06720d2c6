// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"time"
)

// DefaultIDField is the identity column used when a collection does not
// declare its own.
const DefaultIDField = "id"

// Row is a single remote row keyed by column name.
type Row map[string]any

// ID returns the identity value of the row as a string, or "" when the
// identity column is absent.
func (r Row) ID(idField string) string {
	if idField == "" {
		idField = DefaultIDField
	}
	v, ok := r[idField]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RemoteQuery describes a read against one remote table.
type RemoteQuery struct {
	// Table is the remote table name.
	Table string

	// FilterField and FilterValue bound the read to rows relevant to the
	// current session (e.g. user_id = <session id>). Ignored when
	// FilterField is empty.
	FilterField string
	FilterValue string

	// OrderBy is an optional ordering hint.
	OrderBy string

	// SinceField and Since request a delta: only rows whose SinceField is
	// strictly after Since. Ignored when SinceField is empty or Since is
	// zero.
	SinceField string
	Since      time.Time
}
