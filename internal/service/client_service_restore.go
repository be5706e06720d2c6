// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/laoluafolami/spendlytics-sub001/internal/adapter"
	"github.com/laoluafolami/spendlytics-sub001/internal/crypto"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

// supportedMajorVersion is the artifact major version this build reads.
const supportedMajorVersion = 1

type restoreService struct {
	records  store.RecordRepository
	metadata store.MetadataRepository
	prefs    store.PreferenceStore
	remote   adapter.RemoteStore
	session  SessionSource
	sealer   crypto.Sealer
	ids      utils.IDGenerator

	collections models.CollectionRegistry
	preferences models.PreferenceRegistry
	batchSize   int
	logger      *logger.Logger
}

// NewRestoreService builds the restore engine. Rows are written in batches
// of batchSize (100 when not positive).
func NewRestoreService(
	storages *store.ClientStorages,
	remote adapter.RemoteStore,
	session SessionSource,
	sealer crypto.Sealer,
	collections models.CollectionRegistry,
	preferences models.PreferenceRegistry,
	batchSize int,
	log *logger.Logger,
) RestoreService {
	if batchSize <= 0 {
		batchSize = 100
	}

	return &restoreService{
		records:     storages.Records,
		metadata:    storages.Metadata,
		prefs:       storages.Preferences,
		remote:      remote,
		session:     session,
		sealer:      sealer,
		ids:         utils.NewUUIDGenerator(),
		collections: collections,
		preferences: preferences,
		batchSize:   batchSize,
		logger:      log,
	}
}

// Validate checks, in order: decryption, structure, magic, version,
// checksum. The first failure ends validation.
func (r *restoreService) Validate(_ context.Context, content []byte, passphrase string) models.ValidationResult {
	artifact, err := r.validate(content, passphrase)
	if err != nil {
		r.logger.Warn().Err(err).Str("func", "restoreService.Validate").Msg("backup rejected")
		return models.ValidationResult{Valid: false, Err: err, Error: err.Error()}
	}

	return models.ValidationResult{Valid: true, Artifact: &artifact, Meta: &artifact.Meta}
}

func (r *restoreService) validate(content []byte, passphrase string) (models.BackupArtifact, error) {
	if !isPlainJSON(content) {
		if passphrase == "" {
			return models.BackupArtifact{}, fmt.Errorf("%w: file is encrypted and no passphrase was given", ErrDecryption)
		}
		opened, err := r.sealer.Open(content, passphrase)
		if err != nil {
			return models.BackupArtifact{}, fmt.Errorf("%w: %w", ErrDecryption, err)
		}
		content = opened
	}

	content = trimDocument(content)

	var artifact models.BackupArtifact
	if err := decodeJSON(content, &artifact); err != nil {
		return models.BackupArtifact{}, fmt.Errorf("%w: %w: %w", ErrValidation, ErrMalformedArtifact, err)
	}

	if artifact.Meta.Magic != models.BackupMagic {
		return models.BackupArtifact{}, fmt.Errorf("%w: %w", ErrValidation, ErrNotRecognizedBackup)
	}

	if artifact.Meta.FormatVersion == "" {
		return models.BackupArtifact{}, fmt.Errorf("%w: %w", ErrValidation, ErrMissingVersion)
	}
	major, err := majorVersion(artifact.Meta.FormatVersion)
	if err != nil || major != supportedMajorVersion {
		return models.BackupArtifact{}, fmt.Errorf("%w: %w: %q", ErrValidation, ErrUnsupportedVersion, artifact.Meta.FormatVersion)
	}

	// The struct decode above matches member names case-insensitively and
	// drops unknown ones; the checksum is taken over the members as written.
	var doc map[string]json.RawMessage
	if err = json.Unmarshal(content, &doc); err != nil {
		return models.BackupArtifact{}, fmt.Errorf("%w: %w: %w", ErrValidation, ErrMalformedArtifact, err)
	}
	sum, err := documentChecksum(doc)
	if err != nil {
		return models.BackupArtifact{}, fmt.Errorf("%w: %w: %w", ErrValidation, ErrMalformedArtifact, err)
	}
	if !utils.ChecksumEqual(sum, artifact.Meta.Checksum) {
		return models.BackupArtifact{}, fmt.Errorf("%w: %w", ErrValidation, ErrIntegrityCheckFailed)
	}

	return artifact, nil
}

// Restore replays preferences first so that a restored session key is
// available to the remote step, then each registered collection in
// registry order, then optionally the local store.
func (r *restoreService) Restore(ctx context.Context, artifact models.BackupArtifact, opts models.RestoreOptions, progress models.ProgressFunc) models.RestoreResult {
	report := progressReporter(progress)
	result := models.RestoreResult{
		RestoredCounts: make(map[string]int),
		Errors:         []string{},
		Warnings:       []string{},
	}

	report("start", 0, "")

	if opts.RestorePreferences && r.included(artifact, models.BackupSourcePreferences, &result) {
		report("preferences", 5, "")
		r.restorePreferences(ctx, artifact.Preferences, &result)
	}

	if opts.RestoreRemote && r.included(artifact, models.BackupSourceRemote, &result) {
		r.restoreRemote(ctx, artifact, opts.MergeMode, report, &result)
	}

	if opts.RestoreLocalStore && r.included(artifact, models.BackupSourceLocalStore, &result) {
		report("local", 90, "")
		n, err := r.records.Import(ctx, artifact.LocalStoreSnapshot)
		result.LocalRecordsCount = n
		if err != nil {
			r.logger.Err(err).Str("func", "restoreService.Restore").Msg("failed to import local store")
			result.Errors = append(result.Errors, fmt.Sprintf("local store: %v", err))
		}
	}

	result.Success = len(result.Errors) == 0
	report("done", 100, "")

	r.logger.Info().
		Str("func", "restoreService.Restore").
		Bool("success", result.Success).
		Bool("merge", opts.MergeMode).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("restore finished")

	return result
}

// included reports whether the artifact holds source and records a warning
// when it does not.
func (r *restoreService) included(artifact models.BackupArtifact, source string, result *models.RestoreResult) bool {
	if artifact.Meta.Includes(source) {
		return true
	}
	r.logger.Warn().Str("func", "restoreService.Restore").Str("source", source).Msg("backup does not include source, skipped")
	result.Warnings = append(result.Warnings, fmt.Sprintf("backup does not include %s, skipped", source))
	return false
}

// restorePreferences writes registered keys; a null value deletes the key.
// Failures and unregistered keys are warnings.
func (r *restoreService) restorePreferences(ctx context.Context, prefs map[string]*string, result *models.RestoreResult) {
	selected, err := r.preferences.SelectKeys(models.SortedKeys(prefs))
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("preferences: %v", err))
		return
	}

	for _, key := range models.SortedKeys(prefs) {
		if _, ok := selected[key]; !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("preference %q is not registered, skipped", key))
			continue
		}

		value := prefs[key]
		if value == nil {
			err = r.prefs.Delete(ctx, key)
		} else {
			err = r.prefs.Set(ctx, key, *value)
		}
		if err != nil {
			r.logger.Warn().Err(err).Str("func", "restoreService.restorePreferences").Str("key", key).Msg("failed to write preference")
			result.Warnings = append(result.Warnings, fmt.Sprintf("preference %q: %v", key, err))
			continue
		}
		result.PreferencesCount++
	}
}

func (r *restoreService) restoreRemote(
	ctx context.Context,
	artifact models.BackupArtifact,
	merge bool,
	report func(string, int, string),
	result *models.RestoreResult,
) {
	if len(artifact.RemoteCollections) == 0 {
		result.Warnings = append(result.Warnings, "backup holds no remote collections, skipped")
		return
	}

	session, err := r.session.SessionID(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("remote: %v", err))
		return
	}

	for _, name := range models.SortedKeys(artifact.RemoteCollections) {
		if _, ok := r.collections.Lookup(name); !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("collection %q is not registered, skipped", name))
		}
	}

	for i, c := range r.collections {
		rows, ok := artifact.RemoteCollections[c.Name]
		if !ok {
			continue
		}
		report("remote:"+c.Name, 10+80*i/len(r.collections), "")

		n, err := r.restoreCollection(ctx, c, r.rebind(c, rows, session), session, merge)
		result.RestoredCounts[c.Name] = n
		if err != nil {
			r.logger.Err(err).Str("func", "restoreService.restoreRemote").Str("collection", c.Name).Msg("collection restore failed")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", c.Name, err))
		}

		// Restored rows keep their old delta timestamps; the next pull of a
		// mirrored collection must be full to see them.
		if c.Local && c.DeltaField != "" {
			if err = r.metadata.Delete(ctx, models.MetaLastPullPrefix+c.Name); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: reset pull watermark: %v", c.Name, err))
			}
		}
	}
}

// restoreCollection writes rows in batches and returns how many landed.
// Replace mode first deletes every row bound to the session. The first
// failing batch ends the collection.
func (r *restoreService) restoreCollection(ctx context.Context, c models.CollectionSpec, rows []models.Row, session string, merge bool) (int, error) {
	if !merge && c.RelevanceField != "" {
		if err := r.remote.DeleteWhere(ctx, c.Table, c.RelevanceField, session); err != nil {
			return 0, fmt.Errorf("clear existing rows: %w", err)
		}
	}

	restored := 0
	for start := 0; start < len(rows); start += r.batchSize {
		end := min(start+r.batchSize, len(rows))
		batch := rows[start:end]

		var err error
		if merge {
			err = r.remote.Upsert(ctx, c.Table, c.Identity(), batch)
		} else {
			err = r.remote.Insert(ctx, c.Table, batch)
		}
		if err != nil {
			return restored, fmt.Errorf("batch %d-%d: %w", start+1, end, err)
		}
		restored += len(batch)
	}

	return restored, nil
}

// rebind copies rows, binds them to the current session and gives rows
// without an identity a fresh one.
func (r *restoreService) rebind(c models.CollectionSpec, rows []models.Row, session string) []models.Row {
	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		row = row.Clone()
		if c.RelevanceField != "" {
			row[c.RelevanceField] = session
		}
		if row.ID(c.Identity()) == "" {
			row[c.Identity()] = r.ids.Generate()
		}
		out = append(out, row)
	}
	return out
}
