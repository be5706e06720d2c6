package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

func newMockPostgres(t *testing.T) (*postgresRemote, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return newPostgresRemote(db, time.Second, logger.Nop()), mock
}

func TestPostgresRemote_Select(t *testing.T) {
	p, mock := newMockPostgres(t)
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM expenses WHERE user_id = \$1 AND updated_at > \$2 ORDER BY date`).
		WithArgs("u1", since).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "user_id", "note"}).
			AddRow("e1", []byte("10.50"), "u1", nil).
			AddRow("e2", []byte("3.00"), "u1", "coffee"))

	rows, err := p.Select(context.Background(), models.RemoteQuery{
		Table:       "expenses",
		FilterField: "user_id",
		FilterValue: "u1",
		OrderBy:     "date",
		SinceField:  "updated_at",
		Since:       since,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.Row{"id": "e1", "amount": "10.50", "user_id": "u1", "note": nil}, rows[0])
	assert.Equal(t, "coffee", rows[1]["note"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_SelectWithoutFilter(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`^SELECT \* FROM categories$`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rows, err := p.Select(context.Background(), models.RemoteQuery{Table: "categories"})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_SelectRejectsInjection(t *testing.T) {
	p, mock := newMockPostgres(t)

	_, err := p.Select(context.Background(), models.RemoteQuery{Table: "expenses; DROP TABLE expenses"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.ErrorIs(t, err, ErrNonRetryable)

	_, err = p.Select(context.Background(), models.RemoteQuery{Table: "expenses", OrderBy: "date desc"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_UpsertInTransaction(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO expenses \(amount,id,user_id\) VALUES \(\$1,\$2,\$3\) ON CONFLICT \(id\) DO UPDATE SET amount = EXCLUDED\.amount, user_id = EXCLUDED\.user_id`).
		WithArgs("10.00", "e1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO expenses \(id\) VALUES \(\$1\) ON CONFLICT \(id\) DO NOTHING`).
		WithArgs("e2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := p.Upsert(context.Background(), "expenses", "id", []models.Row{
		{"id": "e1", "amount": "10.00", "user_id": "u1"},
		{"id": "e2"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_UpsertEncodesNestedValues(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO receipts \(id,items\)`).
		WithArgs("r1", `[{"name":"milk"}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := p.Upsert(context.Background(), "receipts", "", []models.Row{
		{"id": "r1", "items": []any{map[string]any{"name": "milk"}}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_UpsertRollsBackOnFailure(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO expenses`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO expenses`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.CheckViolation, Message: "amount must be positive"})
	mock.ExpectRollback()

	err := p.Upsert(context.Background(), "expenses", "id", []models.Row{
		{"id": "e1", "amount": "1"},
		{"id": "e2", "amount": "-1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonRetryable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_UpsertRequiresID(t *testing.T) {
	p, mock := newMockPostgres(t)

	err := p.Upsert(context.Background(), "expenses", "id", []models.Row{{"amount": "1"}})
	assert.ErrorIs(t, err, ErrMissingID)
	assert.ErrorIs(t, err, ErrNonRetryable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_InsertRetryableOnDeadlock(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^INSERT INTO budgets \(id,limit_amount\) VALUES \(\$1,\$2\)$`).
		WithArgs("b1", 100.0).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.DeadlockDetected})
	mock.ExpectRollback()

	err := p.Insert(context.Background(), "budgets", []models.Row{{"id": "b1", "limit_amount": 100.0}})
	assert.True(t, IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_EmptyBatchIsNoop(t *testing.T) {
	p, mock := newMockPostgres(t)

	assert.NoError(t, p.Insert(context.Background(), "budgets", nil))
	assert.NoError(t, p.Upsert(context.Background(), "budgets", "id", []models.Row{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_Delete(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`^DELETE FROM expenses WHERE id = \$1$`).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE FROM expenses WHERE user_id = \$1$`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 12))

	require.NoError(t, p.DeleteByID(context.Background(), "expenses", "", "e1"))
	require.NoError(t, p.DeleteWhere(context.Background(), "expenses", "user_id", "u1"))
	assert.ErrorIs(t, p.DeleteWhere(context.Background(), "expenses", "", "u1"), ErrInvalidQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_Ping(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	assert.NoError(t, p.Ping(context.Background()))
	err := p.Ping(context.Background())
	assert.ErrorIs(t, err, ErrRemote)
	assert.NoError(t, mock.ExpectationsWereMet())
}
