package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

func TestMetadataRepository(t *testing.T) {
	s := openTestStorages(t)
	ctx := context.Background()

	_, ok, err := s.Metadata.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Metadata.Set(ctx, "k", "v1"))
	require.NoError(t, s.Metadata.Set(ctx, "k", "v2"))
	v, ok, err := s.Metadata.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	when := time.Date(2026, 3, 1, 12, 30, 0, 500, time.FixedZone("X", 3600))
	require.NoError(t, s.Metadata.SetTime(ctx, models.MetaLastSync, when))
	got, err := s.Metadata.GetTime(ctx, models.MetaLastSync)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, when.Equal(*got))

	require.NoError(t, s.Metadata.Set(ctx, models.MetaLastBackup, "garbage"))
	got, err = s.Metadata.GetTime(ctx, models.MetaLastBackup)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Metadata.GetTime(ctx, "never")
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := s.Metadata.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.Metadata.Delete(ctx, "k"))
	_, ok, err = s.Metadata.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Metadata.Reset(ctx))
	all, err = s.Metadata.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
