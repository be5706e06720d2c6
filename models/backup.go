// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"slices"
	"time"
)

// Artifact constants. The magic string and the format version are checked
// before anything else when an artifact is validated.
const (
	BackupMagic         = "SPENDLYTICS_BACKUP"
	BackupFormatVersion = "1.0.0"
)

// BackupArtifact is the whole-state backup document.
type BackupArtifact struct {
	Meta               BackupMeta         `json:"meta"`
	RemoteCollections  map[string][]Row   `json:"remoteCollections"`
	LocalStoreSnapshot LocalSnapshot      `json:"localStoreSnapshot"`
	Preferences        map[string]*string `json:"preferences"`
}

// BackupMeta describes an artifact. It is excluded from the checksum.
type BackupMeta struct {
	// Magic must equal [BackupMagic].
	Magic string `json:"magic"`

	// FormatVersion is the semantic version of the artifact layout.
	FormatVersion string `json:"formatVersion"`

	// CreatedAt is the creation time (UTC).
	CreatedAt time.Time `json:"createdAt"`

	// SourceSessionID identifies the session the backup was taken from.
	SourceSessionID string `json:"sourceSessionId"`

	// AppVersion is the build version of the producing binary.
	AppVersion string `json:"appVersion,omitempty"`

	// Checksum is the hex SHA-256 of the canonical payload.
	Checksum string `json:"checksum"`

	// Encrypted is set when the artifact was sealed with a passphrase.
	Encrypted bool `json:"encrypted"`

	// PerCollectionCounts is the number of remote rows per collection.
	PerCollectionCounts map[string]int `json:"perCollectionCounts"`

	// Sources lists what the backup was asked to include, see the
	// BackupSource constants. Older artifacts do not carry it.
	Sources []string `json:"sources"`
}

// Backup sources recorded in [BackupMeta.Sources].
const (
	BackupSourceRemote      = "remote"
	BackupSourceLocalStore  = "localStore"
	BackupSourcePreferences = "preferences"
)

// Includes reports whether the artifact was built with source. Artifacts
// without a source list are assumed to hold everything.
func (m BackupMeta) Includes(source string) bool {
	return m.Sources == nil || slices.Contains(m.Sources, source)
}

// LocalSnapshot is the dump of the local store embedded in an artifact.
type LocalSnapshot struct {
	Records  map[string][]Record `json:"records"`
	Queue    []SyncQueueItem     `json:"queue"`
	Metadata map[string]string   `json:"metadata"`
}

// EmptyLocalSnapshot returns a snapshot with an empty list for each
// collection, so that excluded local data serializes as empty arrays.
func EmptyLocalSnapshot(collections []string) LocalSnapshot {
	s := LocalSnapshot{
		Records:  make(map[string][]Record, len(collections)),
		Queue:    []SyncQueueItem{},
		Metadata: map[string]string{},
	}
	for _, c := range collections {
		s.Records[c] = []Record{}
	}
	return s
}

// BackupOptions selects what goes into an artifact.
type BackupOptions struct {
	IncludeRemote      bool   `json:"includeRemote"`
	IncludeLocalStore  bool   `json:"includeLocalStore"`
	IncludePreferences bool   `json:"includePreferences"`
	Encrypt            bool   `json:"encrypt"`
	Passphrase         string `json:"passphrase,omitempty"`
}

// BackupOutput is the product of a backup.
type BackupOutput struct {
	Artifact  BackupArtifact
	Filename  string
	Content   []byte
	SizeBytes int
}

// RestoreOptions selects what is replayed from an artifact.
type RestoreOptions struct {
	RestoreRemote      bool `json:"restoreRemote"`
	RestoreLocalStore  bool `json:"restoreLocalStore"`
	RestorePreferences bool `json:"restorePreferences"`

	// MergeMode upserts rows by identity and keeps unrelated rows. When
	// false, rows matching the session filter are deleted first.
	MergeMode bool `json:"mergeMode"`
}

// RestoreResult reports the outcome of a restore. Partial failure is
// expressed through Errors, never returned as an error.
type RestoreResult struct {
	Success           bool           `json:"success"`
	RestoredCounts    map[string]int `json:"restoredCounts"`
	PreferencesCount  int            `json:"preferencesCount"`
	LocalRecordsCount int            `json:"localRecordsCount"`
	Errors            []string       `json:"errors"`
	Warnings          []string       `json:"warnings"`
}

// ValidationResult is the outcome of validating an artifact.
type ValidationResult struct {
	Valid    bool            `json:"valid"`
	Artifact *BackupArtifact `json:"-"`
	Meta     *BackupMeta     `json:"meta,omitempty"`
	Err      error           `json:"-"`
	Error    string          `json:"error,omitempty"`
}

// Progress is one step of a long-running backup or restore.
type Progress struct {
	Phase   string `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// ProgressFunc receives progress updates. It may be nil.
type ProgressFunc func(Progress)
