// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laoluafolami/spendlytics-sub001/internal/adapter"
	"github.com/laoluafolami/spendlytics-sub001/internal/crypto"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type restoreFixture struct {
	storages *store.ClientStorages
	remote   *adapter.MemoryRemote
	restore  *restoreService
}

func newRestoreFixture(t *testing.T, session string, batchSize int) *restoreFixture {
	t.Helper()

	f := &restoreFixture{
		storages: openTestStorages(t),
		remote:   adapter.NewMemoryRemote(),
	}
	f.restore = NewRestoreService(f.storages, f.remote, staticSession(session), crypto.NewSealer(),
		models.DefaultCollections, models.DefaultPreferences, batchSize, logger.Nop()).(*restoreService)
	return f
}

// makeBackup produces a backup of a seeded remote store.
func makeBackup(t *testing.T, opts models.BackupOptions) models.BackupOutput {
	t.Helper()

	f := newBackupFixture(t, testSession, nil)
	f.seed()
	require.NoError(t, f.storages.Preferences.Set(context.Background(), "spendlytics.theme", "dark"))

	out, err := f.backup.CreateBackup(context.Background(), opts, nil)
	require.NoError(t, err)
	return out
}

func validArtifact(t *testing.T, f *restoreFixture, content []byte) models.BackupArtifact {
	t.Helper()

	res := f.restore.Validate(context.Background(), content, "")
	require.True(t, res.Valid, res.Error)
	require.NotNil(t, res.Artifact)
	return *res.Artifact
}

func allOptions(merge bool) models.RestoreOptions {
	return models.RestoreOptions{RestoreRemote: true, RestorePreferences: true, MergeMode: merge}
}

func TestRestore_RoundTrip(t *testing.T) {
	out := makeBackup(t, models.BackupOptions{IncludeRemote: true, IncludePreferences: true})
	f := newRestoreFixture(t, testSession, 0)

	res := f.restore.Validate(context.Background(), out.Content, "")
	require.True(t, res.Valid, res.Error)
	assert.NoError(t, res.Err)
	assert.Equal(t, out.Artifact.Meta.Checksum, res.Meta.Checksum)

	result := f.restore.Restore(context.Background(), *res.Artifact, allOptions(false), nil)
	require.True(t, result.Success, result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.RestoredCounts["expenses"])
	assert.Equal(t, 1, result.RestoredCounts["budgets"])
	assert.Zero(t, result.RestoredCounts["receipts"])

	rows := f.remote.Rows("expenses")
	assert.Equal(t, []string{"e1", "e2"}, remoteIDs(rows))
	assert.Equal(t, json.Number("12.5"), rows[0]["amount"], "numbers survive byte for byte")
	assert.Equal(t, "2026-05-01", rows[0]["date"])

	theme, ok := prefValue(t, f.storages.Preferences, "spendlytics.theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme)

	// A backup of the restored state hashes the same.
	b := NewBackupService(f.storages, f.remote, staticSession(testSession), crypto.NewSealer(),
		models.DefaultCollections, models.DefaultPreferences, "1.4.0", logger.Nop())
	again, err := b.CreateBackup(context.Background(), models.BackupOptions{IncludeRemote: true, IncludePreferences: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, out.Artifact.Meta.Checksum, again.Artifact.Meta.Checksum)
}

// flipByte changes one byte: letters swap case, anything else flips its
// lowest bit.
func flipByte(c byte) byte {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return c ^ 0x20
	default:
		return c ^ 0x01
	}
}

func TestValidate_EveryPayloadCharacterIsChecksummed(t *testing.T) {
	src := newBackupFixture(t, testSession, nil)
	src.seed()
	require.NoError(t, src.storages.Preferences.Set(context.Background(), "spendlytics.theme", "dark"))
	_, err := src.storages.Records.Put(context.Background(), "expenses",
		models.Record{ID: "l1", Data: json.RawMessage(`{"note":"a<b & c"}`)})
	require.NoError(t, err)

	out, err := src.backup.CreateBackup(context.Background(),
		models.BackupOptions{IncludeRemote: true, IncludeLocalStore: true, IncludePreferences: true}, nil)
	require.NoError(t, err)

	f := newRestoreFixture(t, testSession, 0)
	require.True(t, f.restore.Validate(context.Background(), out.Content, "").Valid)

	// meta is written first; everything from the first payload member on
	// is covered.
	start := bytes.Index(out.Content, []byte(`"remoteCollections"`))
	require.Positive(t, start)

	flipped := 0
	for i := start; i < len(out.Content); i++ {
		switch out.Content[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}

		tampered := bytes.Clone(out.Content)
		tampered[i] = flipByte(tampered[i])
		flipped++

		res := f.restore.Validate(context.Background(), tampered, "")
		require.False(t, res.Valid, "byte %d (%q) flipped", i, out.Content[i])
		assert.Nil(t, res.Artifact)
		assert.ErrorIs(t, res.Err, ErrValidation)
		if !errors.Is(res.Err, ErrMalformedArtifact) {
			assert.ErrorIs(t, res.Err, ErrIntegrityCheckFailed, "byte %d (%q) flipped", i, out.Content[i])
		}
	}
	assert.Greater(t, flipped, 100)
}

func TestValidate_MemberNamesAreExact(t *testing.T) {
	out := makeBackup(t, models.BackupOptions{IncludeRemote: true, IncludePreferences: true})
	f := newRestoreFixture(t, testSession, 0)

	tests := []struct {
		name    string
		content []byte
	}{
		{name: "case changed", content: bytes.Replace(out.Content, []byte(`"preferences"`), []byte(`"Preferences"`), 1)},
		{name: "unknown member", content: bytes.Replace(out.Content, []byte(`"preferences"`), []byte(`"extra": 1, "preferences"`), 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotEqual(t, out.Content, tt.content)
			res := f.restore.Validate(context.Background(), tt.content, "")
			assert.False(t, res.Valid)
			assert.ErrorIs(t, res.Err, ErrIntegrityCheckFailed)
			assert.Equal(t, res.Err.Error(), res.Error)
		})
	}

	// Formatting changes do not matter.
	var compact bytes.Buffer
	require.NoError(t, json.Compact(&compact, out.Content))
	assert.True(t, f.restore.Validate(context.Background(), compact.Bytes(), "").Valid)
}

func TestValidate_Errors(t *testing.T) {
	out := makeBackup(t, models.BackupOptions{IncludeRemote: true})
	f := newRestoreFixture(t, testSession, 0)

	withMeta := func(mutate func(meta map[string]any)) []byte {
		var doc map[string]any
		require.NoError(t, json.Unmarshal(out.Content, &doc))
		mutate(doc["meta"].(map[string]any))
		data, err := json.Marshal(doc)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name    string
		content []byte
		want    error
	}{
		{name: "not json", content: []byte("{not json"), want: ErrMalformedArtifact},
		{name: "trailing data", content: append(append([]byte{}, out.Content...), []byte(" {}")...), want: ErrMalformedArtifact},
		{name: "wrong type", content: []byte(`{"meta": []}`), want: ErrMalformedArtifact},
		{name: "no magic", content: []byte(`{"meta": {"formatVersion": "1.0.0"}}`), want: ErrNotRecognizedBackup},
		{name: "foreign magic", content: withMeta(func(m map[string]any) { m["magic"] = "OTHER" }), want: ErrNotRecognizedBackup},
		{name: "no version", content: withMeta(func(m map[string]any) { delete(m, "formatVersion") }), want: ErrMissingVersion},
		{name: "newer major", content: withMeta(func(m map[string]any) { m["formatVersion"] = "2.0.0" }), want: ErrUnsupportedVersion},
		{name: "garbage version", content: withMeta(func(m map[string]any) { m["formatVersion"] = "x.y" }), want: ErrUnsupportedVersion},
		{name: "bad checksum", content: withMeta(func(m map[string]any) { m["checksum"] = "00" }), want: ErrIntegrityCheckFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.restore.Validate(context.Background(), tt.content, "")
			assert.False(t, res.Valid)
			assert.ErrorIs(t, res.Err, ErrValidation)
			assert.ErrorIs(t, res.Err, tt.want)
		})
	}

	minor := withMeta(func(m map[string]any) { m["formatVersion"] = "1.7.2" })
	assert.True(t, f.restore.Validate(context.Background(), minor, "").Valid, "minor versions are compatible")
}

func TestValidate_Encrypted(t *testing.T) {
	out := makeBackup(t, models.BackupOptions{IncludeRemote: true, Encrypt: true, Passphrase: "pw-1"})
	f := newRestoreFixture(t, testSession, 0)
	ctx := context.Background()

	res := f.restore.Validate(ctx, out.Content, "")
	assert.False(t, res.Valid)
	assert.ErrorIs(t, res.Err, ErrDecryption)
	assert.NotErrorIs(t, res.Err, ErrValidation)

	res = f.restore.Validate(ctx, out.Content, "wrong")
	assert.False(t, res.Valid)
	assert.ErrorIs(t, res.Err, ErrDecryption)
	assert.ErrorIs(t, res.Err, crypto.ErrOpen)

	res = f.restore.Validate(ctx, out.Content, "pw-1")
	require.True(t, res.Valid, res.Error)
	assert.True(t, res.Meta.Encrypted)
	assert.Len(t, res.Artifact.RemoteCollections["expenses"], 2)
}

func TestRestore_ReplaceMode(t *testing.T) {
	out := makeBackup(t, models.BackupOptions{IncludeRemote: true})
	f := newRestoreFixture(t, testSession, 0)
	f.remote.Seed("expenses", "id",
		models.Row{"id": "e1", "user_id": testSession, "amount": 1, "note": "stale"},
		models.Row{"id": "x9", "user_id": testSession, "amount": 7},
		models.Row{"id": "o1", "user_id": "other", "amount": 3},
	)

	result := f.restore.Restore(context.Background(), validArtifact(t, f, out.Content), allOptions(false), nil)
	require.True(t, result.Success, result.Errors)

	rows := f.remote.Rows("expenses")
	assert.ElementsMatch(t, []string{"o1", "e1", "e2"}, remoteIDs(rows))
	for _, row := range rows {
		if row.ID("id") == "e1" {
			_, hasNote := row["note"]
			assert.False(t, hasNote, "replace drops fields the backup does not have")
		}
	}
}

func TestRestore_ReplaceKeepsDataTheBackupDoesNotHold(t *testing.T) {
	src := newBackupFixture(t, testSession, nil)
	src.seed()
	require.NoError(t, src.storages.Preferences.Set(context.Background(), "spendlytics.theme", "dark"))
	out, err := src.backup.CreateBackup(context.Background(), models.BackupOptions{IncludePreferences: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Artifact.RemoteCollections)
	assert.Equal(t, []string{models.BackupSourcePreferences}, out.Artifact.Meta.Sources)

	f := newRestoreFixture(t, testSession, 0)
	f.remote.Seed("expenses", "id", models.Row{"id": "live1", "user_id": testSession, "amount": 4})

	opts := models.RestoreOptions{RestoreRemote: true, RestoreLocalStore: true, RestorePreferences: true}
	result := f.restore.Restore(context.Background(), validArtifact(t, f, out.Content), opts, nil)
	require.True(t, result.Success, result.Errors)

	assert.Equal(t, []string{"live1"}, remoteIDs(f.remote.Rows("expenses")))
	assert.Zero(t, countCalls(f.remote.Calls(), adapter.OpDeleteWhere, "expenses"))
	assert.Empty(t, result.RestoredCounts)
	theme, ok := prefValue(t, f.storages.Preferences, "spendlytics.theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], models.BackupSourceRemote)
	assert.Contains(t, result.Warnings[1], models.BackupSourceLocalStore)
}

func TestRestore_ArtifactWithoutCollectionsSkipsRemote(t *testing.T) {
	f := newRestoreFixture(t, testSession, 0)
	f.remote.Seed("expenses", "id", models.Row{"id": "live1", "user_id": testSession})

	result := f.restore.Restore(context.Background(), models.BackupArtifact{}, allOptions(false), nil)
	assert.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no remote collections")
	assert.Len(t, f.remote.Rows("expenses"), 1)
	assert.Zero(t, countCalls(f.remote.Calls(), adapter.OpDeleteWhere, "expenses"))
}

func TestRestore_MergeMode(t *testing.T) {
	out := makeBackup(t, models.BackupOptions{IncludeRemote: true})
	f := newRestoreFixture(t, testSession, 0)
	f.remote.Seed("expenses", "id",
		models.Row{"id": "e1", "user_id": testSession, "amount": 1, "note": "kept"},
		models.Row{"id": "x9", "user_id": testSession, "amount": 7},
	)

	result := f.restore.Restore(context.Background(), validArtifact(t, f, out.Content), allOptions(true), nil)
	require.True(t, result.Success, result.Errors)

	rows := f.remote.Rows("expenses")
	assert.ElementsMatch(t, []string{"e1", "x9", "e2"}, remoteIDs(rows))
	for _, row := range rows {
		if row.ID("id") == "e1" {
			assert.Equal(t, json.Number("12.5"), row["amount"])
			assert.Equal(t, "kept", row["note"])
		}
	}
	assert.Zero(t, countCalls(f.remote.Calls(), adapter.OpDeleteWhere, "expenses"))
}

func TestRestore_RebindsRowsToCurrentSession(t *testing.T) {
	f := newRestoreFixture(t, "u2", 0)
	artifact := models.BackupArtifact{
		RemoteCollections: map[string][]models.Row{
			"categories": {
				{"id": "c1", "user_id": "u1", "name": "food"},
				{"user_id": "u1", "name": "no id"},
			},
		},
	}

	result := f.restore.Restore(context.Background(), artifact, allOptions(false), nil)
	require.True(t, result.Success, result.Errors)

	rows := f.remote.Rows("categories")
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "u2", row["user_id"])
		assert.NotEmpty(t, row.ID("id"))
	}
	assert.Equal(t, "u1", artifact.RemoteCollections["categories"][0]["user_id"], "the artifact is not mutated")
}

func TestRestore_Batches(t *testing.T) {
	f := newRestoreFixture(t, testSession, 2)
	rows := make([]models.Row, 0, 5)
	for i := 1; i <= 5; i++ {
		rows = append(rows, models.Row{"id": fmt.Sprintf("r%d", i)})
	}
	artifact := models.BackupArtifact{RemoteCollections: map[string][]models.Row{"receipts": rows}}

	result := f.restore.Restore(context.Background(), artifact, allOptions(false), nil)
	require.True(t, result.Success, result.Errors)
	assert.Equal(t, 5, result.RestoredCounts["receipts"])

	var sizes []int
	for _, c := range f.remote.Calls() {
		if c.Op == adapter.OpInsert && c.Table == "receipts" {
			sizes = append(sizes, c.Rows)
		}
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestRestore_PartialFailureIsIsolated(t *testing.T) {
	f := newRestoreFixture(t, testSession, 2)
	artifact := models.BackupArtifact{RemoteCollections: map[string][]models.Row{
		"expenses": {{"id": "e1"}},
		"budgets":  {{"id": "b1"}, {"id": "b2"}, {"id": "b3"}},
		"receipts": {{"id": "r1"}},
	}}

	inserted := 0
	f.remote.FailWith(func(op adapter.Op, table string, _ []models.Row) error {
		if op == adapter.OpInsert && table == "budgets" {
			inserted++
			if inserted == 2 {
				return adapter.NonRetryable(errors.New("constraint violated"))
			}
		}
		return nil
	})

	result := f.restore.Restore(context.Background(), artifact, allOptions(false), nil)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "budgets: batch 3-3")
	assert.Contains(t, result.Errors[0], "constraint violated")

	assert.Equal(t, 2, result.RestoredCounts["budgets"])
	assert.Equal(t, 1, result.RestoredCounts["expenses"])
	assert.Equal(t, 1, result.RestoredCounts["receipts"], "collections after the failure still run")
	assert.Len(t, f.remote.Rows("receipts"), 1)
}

func TestRestore_ClearFailureSkipsCollection(t *testing.T) {
	f := newRestoreFixture(t, testSession, 0)
	f.remote.FailWith(func(op adapter.Op, table string, _ []models.Row) error {
		if op == adapter.OpDeleteWhere && table == "expenses" {
			return adapter.Retryable(errors.New("timeout"))
		}
		return nil
	})
	artifact := models.BackupArtifact{RemoteCollections: map[string][]models.Row{"expenses": {{"id": "e1"}}}}

	result := f.restore.Restore(context.Background(), artifact, allOptions(false), nil)
	assert.False(t, result.Success)
	assert.Zero(t, countCalls(f.remote.Calls(), adapter.OpInsert, "expenses"))
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "clear existing rows")
}

func TestRestore_UnregisteredCollectionIsWarned(t *testing.T) {
	f := newRestoreFixture(t, testSession, 0)
	artifact := models.BackupArtifact{RemoteCollections: map[string][]models.Row{
		"zeta":     {{"id": "1"}},
		"alpha":    {{"id": "1"}},
		"expenses": {},
	}}

	result := f.restore.Restore(context.Background(), artifact, allOptions(false), nil)
	assert.True(t, result.Success)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], `"alpha"`)
	assert.Contains(t, result.Warnings[1], `"zeta"`)
	assert.Empty(t, f.remote.Tables())
}

func TestRestore_NoSessionFailsRemoteOnly(t *testing.T) {
	f := newRestoreFixture(t, "", 0)
	theme := "light"
	artifact := models.BackupArtifact{
		RemoteCollections: map[string][]models.Row{"expenses": {{"id": "e1"}}},
		Preferences:       map[string]*string{"spendlytics.theme": &theme},
	}

	result := f.restore.Restore(context.Background(), artifact, allOptions(false), nil)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "remote")
	assert.Equal(t, 1, result.PreferencesCount)
	assert.Empty(t, f.remote.Calls())
}

func TestRestore_Preferences(t *testing.T) {
	f := newRestoreFixture(t, testSession, 0)
	prefs := f.storages.Preferences
	require.NoError(t, prefs.Set(context.Background(), "spendlytics.locale", "en-GB"))

	theme := "dark"
	marker := "true"
	artifact := models.BackupArtifact{Preferences: map[string]*string{
		"spendlytics.theme":       &theme,
		"spendlytics.locale":      nil,
		"spendlytics.migrated.u9": &marker,
		"not.registered":          &theme,
	}}

	result := f.restore.Restore(context.Background(), artifact, models.RestoreOptions{RestorePreferences: true}, nil)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.PreferencesCount)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "not.registered")

	got, ok := prefValue(t, prefs, "spendlytics.theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", got)
	_, ok = prefValue(t, prefs, "spendlytics.locale")
	assert.False(t, ok, "null deletes the key")
	_, ok = prefValue(t, prefs, "not.registered")
	assert.False(t, ok)
}

func TestRestore_LocalStore(t *testing.T) {
	src := newBackupFixture(t, testSession, nil)
	ctx := context.Background()
	_, err := src.storages.Records.Put(ctx, "expenses", models.Record{ID: "e1", Data: json.RawMessage(`{"amount":3}`)})
	require.NoError(t, err)

	out, err := src.backup.CreateBackup(ctx, models.BackupOptions{IncludeLocalStore: true}, nil)
	require.NoError(t, err)

	f := newRestoreFixture(t, testSession, 0)
	result := f.restore.Restore(ctx, validArtifact(t, f, out.Content), models.RestoreOptions{RestoreLocalStore: true}, nil)
	require.True(t, result.Success, result.Errors)
	assert.Equal(t, 1, result.LocalRecordsCount)

	got, err := f.storages.Records.Get(ctx, "expenses", "e1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":3}`, string(got.Data))

	pending, err := f.storages.Queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending, "an unsynced record is queued again")
}

func TestRestore_ResetsPullWatermarks(t *testing.T) {
	f := newRestoreFixture(t, testSession, 0)
	ctx := context.Background()
	require.NoError(t, f.storages.Metadata.Set(ctx, models.MetaLastPullPrefix+"expenses", "2026-03-01T00:00:00Z"))

	artifact := models.BackupArtifact{RemoteCollections: map[string][]models.Row{"expenses": {{"id": "e1"}}}}
	result := f.restore.Restore(ctx, artifact, allOptions(true), nil)
	require.True(t, result.Success, result.Errors)

	_, ok, err := f.storages.Metadata.Get(ctx, models.MetaLastPullPrefix+"expenses")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestore_Progress(t *testing.T) {
	out := makeBackup(t, models.BackupOptions{IncludeRemote: true, IncludePreferences: true})
	f := newRestoreFixture(t, testSession, 0)

	var got []models.Progress
	opts := allOptions(false)
	opts.RestoreLocalStore = true
	f.restore.Restore(context.Background(), validArtifact(t, f, out.Content), opts, func(p models.Progress) { got = append(got, p) })

	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Percent, got[i-1].Percent)
	}
	assert.Equal(t, 100, got[len(got)-1].Percent)
}
