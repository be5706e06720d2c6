package adapter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"serialization failure", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, true},
		{"deadlock", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, true},
		{"connection failure", &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, true},
		{"cannot connect now", &pgconn.PgError{Code: pgerrcode.CannotConnectNow}, true},
		{"too many connections", &pgconn.PgError{Code: pgerrcode.TooManyConnections}, true},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"not null violation", &pgconn.PgError{Code: pgerrcode.NotNullViolation}, false},
		{"undefined table", &pgconn.PgError{Code: pgerrcode.UndefinedTable}, false},
		{"invalid text", &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"unknown", errors.New("sql: converting argument"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapPostgresError("upsert expenses", tt.err)

			assert.ErrorIs(t, err, ErrRemote)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, !tt.retryable, errors.Is(err, ErrNonRetryable))
		})
	}
}

func TestMapSupabaseError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"unique violation", errors.New("(23505) duplicate key value violates unique constraint"), false},
		{"rls", errors.New("(42501) new row violates row-level security policy"), false},
		{"postgrest code", errors.New("(PGRST204) Could not find the 'foo' column"), false},
		{"serialization", errors.New("(40001) could not serialize access"), true},
		{"transport", errors.New(`Get "https://x.supabase.co/rest/v1/expenses": dial tcp: no such host`), true},
		{"deadline", context.DeadlineExceeded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapSupabaseError("select expenses", tt.err)
			assert.ErrorIs(t, err, ErrRemote)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		wantNil   bool
		retryable bool
	}{
		{status: http.StatusOK, wantNil: true},
		{status: http.StatusCreated, wantNil: true},
		{status: http.StatusNoContent, wantNil: true},
		{status: http.StatusBadRequest, body: `{"code":"22P02"}`},
		{status: http.StatusUnauthorized, body: "JWT expired"},
		{status: http.StatusConflict, body: "duplicate key"},
		{status: http.StatusRequestTimeout, retryable: true},
		{status: http.StatusTooManyRequests, retryable: true},
		{status: http.StatusInternalServerError, retryable: true},
		{status: http.StatusServiceUnavailable, retryable: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := resty.New().R().Get(srv.URL)
			require.NoError(t, err)

			err = mapHTTPError("select expenses", resp)
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrRemote)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			if tt.body != "" {
				assert.Contains(t, err.Error(), tt.body)
			}
		})
	}
}

func TestMapTransportError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := mapTransportError("ping", cause)

	assert.ErrorIs(t, err, ErrRemote)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
}
