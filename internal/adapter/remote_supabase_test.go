package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

func TestSupabaseRemote_SelectSortsClientSide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/categories", r.URL.Path)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"c2","name":"rent"},{"id":"c1","name":"food"}]`))
	}))
	defer srv.Close()

	remote, err := NewSupabaseRemote(config.ClientAdapter{
		URL:            srv.URL,
		APIKey:         "service-key",
		RequestTimeout: 2 * time.Second,
	}, logger.Nop())
	require.NoError(t, err)

	rows, err := remote.Select(context.Background(), models.RemoteQuery{
		Table:       "categories",
		FilterField: "user_id",
		FilterValue: "u1",
		OrderBy:     "name",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c1", rows[0].ID(""))
	assert.Equal(t, "c2", rows[1].ID(""))
}

func TestSupabaseRemote_SelectValidatesQuery(t *testing.T) {
	remote, err := NewSupabaseRemote(config.ClientAdapter{URL: "http://localhost:1", APIKey: "k"}, logger.Nop())
	require.NoError(t, err)

	_, err = remote.Select(context.Background(), models.RemoteQuery{Table: "a b"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSupabaseRemote_RunHonoursContext(t *testing.T) {
	s := &supabaseRemote{timeout: time.Second, logger: logger.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.run(ctx, func() error {
		t.Error("call must not start on a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	release := make(chan struct{})
	defer close(release)
	s.timeout = 20 * time.Millisecond
	err = s.run(context.Background(), func() error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSupabaseRemote_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/", r.URL.Path)
		if r.Header.Get("apikey") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	good, err := NewSupabaseRemote(config.ClientAdapter{URL: srv.URL, APIKey: "good"}, logger.Nop())
	require.NoError(t, err)
	assert.NoError(t, good.Ping(context.Background()))

	bad, err := NewSupabaseRemote(config.ClientAdapter{URL: srv.URL, APIKey: "bad"}, logger.Nop())
	require.NoError(t, err)
	assert.ErrorIs(t, bad.Ping(context.Background()), ErrNonRetryable)
}

func TestSortRows(t *testing.T) {
	rows := []models.Row{
		{"id": "a"},
		{"id": "b", "name": "z"},
		{"id": "c", "name": "m"},
	}
	sortRows(rows, "name")
	assert.Equal(t, []string{"c", "b", "a"}, []string{rows[0].ID(""), rows[1].ID(""), rows[2].ID("")})
}
