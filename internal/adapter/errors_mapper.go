package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapHTTPError classifies a PostgREST response. Timeouts, throttling and
// server-side failures are retryable; any other non-2xx status is not.
func mapHTTPError(op string, resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	cause := fmt.Errorf("http %d: %s", resp.StatusCode(), body)

	switch resp.StatusCode() {
	case http.StatusRequestTimeout,
		http.StatusTooEarly,
		http.StatusTooManyRequests:
		return retryable(op, cause)
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		return retryable(op, cause)
	}

	return nonRetryable(op, cause)
}

// mapTransportError wraps a failure that happened before any response was
// received. The request never reached the store, so it is always retryable.
func mapTransportError(op string, err error) error {
	return retryable(op, err)
}

// mapPostgresError classifies an error returned through database/sql by the
// pgx driver. Server errors are classified by SQLSTATE; anything that never
// reached the server (dial, timeout, broken connection) is retryable.
func mapPostgresError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if isRetryablePgCode(pgErr.Code) {
			return retryable(op, err)
		}
		return nonRetryable(op, err)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.As(err, &netErr),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err):
		return retryable(op, err)
	}

	return nonRetryable(op, err)
}

var postgrestCodeRe = regexp.MustCompile(`^\(([0-9A-Z]*)\)`)

// mapSupabaseError classifies an error from the supabase PostgREST client,
// which reports server failures as "(<code>) <message>".
func mapSupabaseError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return retryable(op, err)
	}

	m := postgrestCodeRe.FindStringSubmatch(err.Error())
	if m == nil {
		return mapTransportError(op, err)
	}
	if isRetryablePgCode(m[1]) {
		return retryable(op, err)
	}
	return nonRetryable(op, err)
}

// isRetryablePgCode maps a SQLSTATE to a retry decision.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html.
//
// Retryable classes:
//   - Class 08 - connection exceptions
//   - Class 40 - transaction rollback, serialization failure, deadlock
//   - Class 53 - insufficient resources
//   - Class 57 - operator intervention (cannot connect now, admin shutdown)
//
// Everything else (data exceptions, integrity violations, syntax and access
// errors, PostgREST PGRST codes) is not.
func isRetryablePgCode(code string) bool {
	switch {
	case pgerrcode.IsConnectionException(code),
		pgerrcode.IsTransactionRollback(code),
		pgerrcode.IsInsufficientResources(code),
		pgerrcode.IsOperatorIntervention(code):
		return true
	}
	return false
}
