package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/mock"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func memoryPreferences(t *testing.T) store.PreferenceStore {
	t.Helper()
	return openTestStorages(t).Preferences
}

func TestSessionSource_ResolutionOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("configured id wins", func(t *testing.T) {
		prefs := memoryPreferences(t)
		require.NoError(t, prefs.Set(ctx, models.PrefSessionUserID, "from-prefs"))

		id, err := NewSessionSource(" configured ", signedToken(t, "from-token"), prefs, logger.Nop()).SessionID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "configured", id)
	})

	t.Run("stored id before token", func(t *testing.T) {
		prefs := memoryPreferences(t)
		require.NoError(t, prefs.Set(ctx, models.PrefSessionUserID, "from-prefs"))

		id, err := NewSessionSource("", signedToken(t, "from-token"), prefs, logger.Nop()).SessionID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "from-prefs", id)
	})

	t.Run("configured token subject is remembered", func(t *testing.T) {
		prefs := memoryPreferences(t)

		id, err := NewSessionSource("", signedToken(t, "from-token"), prefs, logger.Nop()).SessionID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "from-token", id)

		stored, ok, err := prefs.Get(ctx, models.PrefSessionUserID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "from-token", stored)
	})

	t.Run("stored token", func(t *testing.T) {
		prefs := memoryPreferences(t)
		require.NoError(t, prefs.Set(ctx, models.PrefAccessToken, signedToken(t, "stored-token")))

		id, err := NewSessionSource("", "", prefs, logger.Nop()).SessionID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "stored-token", id)
	})

	t.Run("bearer scheme is stripped", func(t *testing.T) {
		id, err := NewSessionSource("", "Bearer "+signedToken(t, "header-token"), nil, logger.Nop()).SessionID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "header-token", id)
	})
}

func TestSessionSource_NoSession(t *testing.T) {
	ctx := context.Background()

	_, err := NewSessionSource("", "", memoryPreferences(t), logger.Nop()).SessionID(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = NewSessionSource("", "", nil, logger.Nop()).SessionID(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = NewSessionSource("", "not-a-jwt", nil, logger.Nop()).SessionID(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = NewSessionSource("", signedToken(t, ""), nil, logger.Nop()).SessionID(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = NewSessionSource("", "Basic dXNlcjpwdw==", nil, logger.Nop()).SessionID(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionSource_RememberFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	prefs := mock.NewMockPreferenceStore(ctrl)

	prefs.EXPECT().Get(gomock.Any(), models.PrefSessionUserID).Return("", false, nil)
	prefs.EXPECT().Set(gomock.Any(), models.PrefSessionUserID, "sub-1").Return(errors.New("disk full"))

	id, err := NewSessionSource("", signedToken(t, "sub-1"), prefs, logger.Nop()).SessionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sub-1", id)
}

func TestSessionSource_UnreadablePreferencesFallBackToToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	prefs := mock.NewMockPreferenceStore(ctrl)
	readErr := errors.New("database is locked")

	prefs.EXPECT().Get(gomock.Any(), models.PrefSessionUserID).Return("", false, readErr)
	prefs.EXPECT().Get(gomock.Any(), models.PrefAccessToken).Return("", false, readErr)

	_, err := NewSessionSource("", "", prefs, logger.Nop()).SessionID(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	prefs.EXPECT().Get(gomock.Any(), models.PrefSessionUserID).Return("", false, readErr)
	prefs.EXPECT().Set(gomock.Any(), models.PrefSessionUserID, "sub-2").Return(nil)

	id, err := NewSessionSource("", signedToken(t, "sub-2"), prefs, logger.Nop()).SessionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sub-2", id)
}
