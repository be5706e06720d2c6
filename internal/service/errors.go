package service

import "errors"

var (
	// ErrOffline is returned by ForceSyncNow while the remote store is
	// unreachable.
	ErrOffline = errors.New("remote store is offline")

	// ErrNoSession is returned when no session identity can be resolved
	// for the relevance filter.
	ErrNoSession = errors.New("no session identity available")

	// ErrClosed is returned by a closed orchestrator.
	ErrClosed = errors.New("sync orchestrator is closed")

	// ErrUnknownCollection is returned for a collection missing from the
	// registry.
	ErrUnknownCollection = errors.New("collection is not registered")
)

// Artifact validation errors. Every error below unwraps to ErrValidation.
var (
	ErrValidation = errors.New("backup validation failed")

	ErrMalformedArtifact    = errors.New("backup file is malformed")
	ErrNotRecognizedBackup  = errors.New("not a recognized backup")
	ErrMissingVersion       = errors.New("backup format version is missing")
	ErrUnsupportedVersion   = errors.New("backup format version is not supported")
	ErrIntegrityCheckFailed = errors.New("integrity check failed, file may be corrupted")
)

// ErrDecryption is returned when an encrypted artifact cannot be opened:
// no passphrase, a wrong passphrase or a corrupted envelope. It does not
// unwrap to ErrValidation.
var ErrDecryption = errors.New("backup decryption failed")
