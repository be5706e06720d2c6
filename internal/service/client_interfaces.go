package service

import (
	"context"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_service_mock.go -package=mock

// SessionSource resolves the identity used as the relevance filter for
// remote reads and bound into remote writes.
type SessionSource interface {
	// SessionID returns the current session identity or [ErrNoSession].
	SessionID(ctx context.Context) (string, error)
}

// SyncOrchestrator reconciles the local store with the remote store and
// publishes the resulting [models.SyncStatus].
type SyncOrchestrator interface {
	// Status returns a copy of the current status.
	Status() models.SyncStatus

	// Subscribe registers fn for status changes. fn is called once with the
	// current status, then on every change, synchronously and in
	// registration order. The returned func removes the subscription.
	Subscribe(fn func(models.SyncStatus)) (unsubscribe func())

	// ForceSyncNow runs a reconciliation pass and waits for it. A call made
	// while a pass is running waits for the follow-up pass that covers it.
	// Returns [ErrOffline] when offline.
	ForceSyncNow(ctx context.Context) error

	// RequestSync triggers a pass in the background. Offline, it only
	// refreshes the pending counts.
	RequestSync()

	// SetOnline records the connectivity state. A transition from offline
	// to online runs a pass before returning.
	SetOnline(ctx context.Context, online bool) error

	// RetryFailed moves failed queue items back to pending and, when
	// online, runs a pass. It returns the number of items reset.
	RetryFailed(ctx context.Context) (int, error)

	// Refresh reloads the counters and the last sync time from the local
	// store and publishes them.
	Refresh(ctx context.Context) error

	// Close waits for background passes and rejects new ones.
	Close()
}

// SyncJob runs reconciliation passes on a ticker.
type SyncJob interface {
	// Start launches the background goroutine. It triggers a pass every
	// interval, defaulting to one minute if interval is zero or negative.
	// Any previously running job is stopped first.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it
	// has terminated.
	Stop()
}

// BackupService produces backup artifacts.
type BackupService interface {
	CreateBackup(ctx context.Context, opts models.BackupOptions, progress models.ProgressFunc) (models.BackupOutput, error)
}

// RestoreService validates artifacts and replays them.
type RestoreService interface {
	// Validate decrypts (when needed), parses and checks an artifact. It
	// never returns a valid result together with an error.
	Validate(ctx context.Context, content []byte, passphrase string) models.ValidationResult

	// Restore replays a validated artifact. Partial failure is reported in
	// the result, never as an error.
	Restore(ctx context.Context, artifact models.BackupArtifact, opts models.RestoreOptions, progress models.ProgressFunc) models.RestoreResult
}
