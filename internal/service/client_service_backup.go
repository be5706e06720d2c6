// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/internal/adapter"
	"github.com/laoluafolami/spendlytics-sub001/internal/crypto"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type backupService struct {
	records  store.RecordRepository
	metadata store.MetadataRepository
	prefs    store.PreferenceStore
	remote   adapter.RemoteStore
	session  SessionSource
	sealer   crypto.Sealer

	collections models.CollectionRegistry
	preferences models.PreferenceRegistry
	appVersion  string
	now         func() time.Time
	logger      *logger.Logger
}

// NewBackupService builds the backup engine over the given collection and
// preference registries.
func NewBackupService(
	storages *store.ClientStorages,
	remote adapter.RemoteStore,
	session SessionSource,
	sealer crypto.Sealer,
	collections models.CollectionRegistry,
	preferences models.PreferenceRegistry,
	appVersion string,
	log *logger.Logger,
) BackupService {
	return &backupService{
		records:     storages.Records,
		metadata:    storages.Metadata,
		prefs:       storages.Preferences,
		remote:      remote,
		session:     session,
		sealer:      sealer,
		collections: collections,
		preferences: preferences,
		appVersion:  appVersion,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      log,
	}
}

// CreateBackup builds an artifact. A remote collection that cannot be
// fetched is logged and left empty; a local store read failure aborts.
func (b *backupService) CreateBackup(ctx context.Context, opts models.BackupOptions, progress models.ProgressFunc) (models.BackupOutput, error) {
	report := progressReporter(progress)

	if opts.Encrypt && opts.Passphrase == "" {
		return models.BackupOutput{}, fmt.Errorf("encrypted backup: %w", crypto.ErrEmptyPassphrase)
	}

	createdAt := b.now()
	report("start", 0, "")

	session, err := b.session.SessionID(ctx)
	if err != nil {
		if opts.IncludeRemote {
			return models.BackupOutput{}, fmt.Errorf("resolve session: %w", err)
		}
		session = ""
	}

	artifact := models.BackupArtifact{
		Meta: models.BackupMeta{
			Magic:               models.BackupMagic,
			FormatVersion:       models.BackupFormatVersion,
			CreatedAt:           createdAt,
			SourceSessionID:     session,
			AppVersion:          b.appVersion,
			Encrypted:           opts.Encrypt,
			PerCollectionCounts: make(map[string]int, len(b.collections)),
			Sources:             []string{},
		},
		RemoteCollections: make(map[string][]models.Row, len(b.collections)),
		Preferences:       map[string]*string{},
	}

	// Collections of a backup without remote data are left out entirely: an
	// empty list would read as "the collection was empty" and a replace
	// restore would clear it.
	if opts.IncludeRemote {
		artifact.Meta.Sources = append(artifact.Meta.Sources, models.BackupSourceRemote)
		for i, c := range b.collections {
			report("remote:"+c.Name, 5+55*i/len(b.collections), "")
			rows := b.fetchCollection(ctx, c, session)
			artifact.RemoteCollections[c.Name] = rows
			artifact.Meta.PerCollectionCounts[c.Name] = len(rows)
		}
	}

	localNames := b.collections.LocalCollections().Names()
	artifact.LocalStoreSnapshot = models.EmptyLocalSnapshot(localNames)
	if opts.IncludeLocalStore {
		report("local", 60, "")
		snapshot, err := b.records.Snapshot(ctx, localNames)
		if err != nil {
			b.logger.Err(err).Str("func", "backupService.CreateBackup").Msg("failed to read local store")
			return models.BackupOutput{}, fmt.Errorf("read local store: %w", err)
		}
		artifact.LocalStoreSnapshot = snapshot
		artifact.Meta.Sources = append(artifact.Meta.Sources, models.BackupSourceLocalStore)
	}

	if opts.IncludePreferences {
		report("preferences", 70, "")
		prefs, err := b.exportPreferences(ctx, opts.Encrypt)
		if err != nil {
			return models.BackupOutput{}, err
		}
		artifact.Preferences = prefs
		artifact.Meta.Sources = append(artifact.Meta.Sources, models.BackupSourcePreferences)
	}

	report("checksum", 80, "")
	if artifact.Meta.Checksum, err = payloadChecksum(artifact); err != nil {
		return models.BackupOutput{}, fmt.Errorf("checksum: %w", err)
	}

	content, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return models.BackupOutput{}, fmt.Errorf("encode artifact: %w", err)
	}

	if opts.Encrypt {
		report("encrypt", 90, "")
		if content, err = b.sealer.Seal(content, opts.Passphrase); err != nil {
			return models.BackupOutput{}, fmt.Errorf("encrypt artifact: %w", err)
		}
	}

	if err = b.metadata.SetTime(ctx, models.MetaLastBackup, createdAt); err != nil {
		b.logger.Warn().Err(err).Str("func", "backupService.CreateBackup").Msg("failed to stamp last backup time")
	}

	out := models.BackupOutput{
		Artifact:  artifact,
		Filename:  backupFilename(createdAt, opts.Encrypt),
		Content:   content,
		SizeBytes: len(content),
	}
	report("done", 100, out.Filename)

	b.logger.Info().
		Str("func", "backupService.CreateBackup").
		Str("filename", out.Filename).
		Int("size", out.SizeBytes).
		Bool("encrypted", opts.Encrypt).
		Msg("backup created")

	return out, nil
}

func (b *backupService) fetchCollection(ctx context.Context, c models.CollectionSpec, session string) []models.Row {
	q := models.RemoteQuery{Table: c.Table, OrderBy: c.OrderBy}
	if c.RelevanceField != "" {
		q.FilterField, q.FilterValue = c.RelevanceField, session
	}

	rows, err := b.remote.Select(ctx, q)
	if err != nil {
		b.logger.Err(err).
			Str("func", "backupService.fetchCollection").
			Str("collection", c.Name).
			Msg("failed to fetch collection, leaving it empty")
		return []models.Row{}
	}
	return rows
}

// exportPreferences reads every registered key. Unset explicit keys are
// exported as null; sensitive categories are skipped unless encrypting.
func (b *backupService) exportPreferences(ctx context.Context, encrypt bool) (map[string]*string, error) {
	keys, err := b.prefs.Keys(ctx)
	if err != nil {
		b.logger.Err(err).Str("func", "backupService.exportPreferences").Msg("failed to list preferences")
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	selected, err := b.preferences.SelectKeys(keys)
	if err != nil {
		return nil, fmt.Errorf("preference registry: %w", err)
	}

	out := make(map[string]*string, len(selected))
	for _, key := range models.SortedKeys(selected) {
		if selected[key].Sensitive && !encrypt {
			b.logger.Warn().
				Str("func", "backupService.exportPreferences").
				Str("key", key).
				Msg("sensitive preference skipped in unencrypted backup")
			continue
		}

		v, ok, err := b.prefs.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read preference %q: %w", key, err)
		}
		if ok {
			out[key] = &v
		} else {
			out[key] = nil
		}
	}
	return out, nil
}

// progressReporter wraps fn so that a nil fn is allowed and percentages
// never go backwards.
func progressReporter(fn models.ProgressFunc) func(phase string, percent int, message string) {
	last := -1
	return func(phase string, percent int, message string) {
		if fn == nil {
			return
		}
		if percent <= last {
			percent = last + 1
		}
		if percent > 100 {
			percent = 100
		}
		last = percent
		fn(models.Progress{Phase: phase, Percent: percent, Message: message})
	}
}
