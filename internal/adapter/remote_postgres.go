package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/migrations"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

var postgres = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type postgresRemote struct {
	db      *sql.DB
	timeout time.Duration
	logger  *logger.Logger
}

// NewPostgresRemote connects to the remote PostgreSQL database at cfg.DSN.
func NewPostgresRemote(ctx context.Context, cfg config.ClientAdapter, log *logger.Logger) (RemoteStore, error) {
	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		log.Err(err).Str("func", "NewPostgresRemote").Msg("error occured during database connection")
		return nil, nonRetryable("connect", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := withTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	if err = conn.PingContext(pingCtx); err != nil {
		log.Err(err).Str("func", "NewPostgresRemote").Msg("error connecting database (ping)")
		_ = conn.Close()
		return nil, mapPostgresError("connect", err)
	}
	log.Info().Str("func", "NewPostgresRemote").Msg("connected to remote database successfully")

	return newPostgresRemote(conn, cfg.RequestTimeout, log), nil
}

func newPostgresRemote(db *sql.DB, timeout time.Duration, log *logger.Logger) *postgresRemote {
	return &postgresRemote{db: db, timeout: timeout, logger: log}
}

func (p *postgresRemote) Select(ctx context.Context, q models.RemoteQuery) ([]models.Row, error) {
	query, args, err := selectRowsQuery(q)
	if err != nil {
		return nil, nonRetryable("select "+q.Table, err)
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, p.fail("Select", q.Table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, p.fail("Select", q.Table, err)
	}

	return result, nil
}

func (p *postgresRemote) Upsert(ctx context.Context, table, idField string, rows []models.Row) error {
	if idField == "" {
		idField = models.DefaultIDField
	}

	return p.writeRows(ctx, "Upsert", table, rows, func(row models.Row) (string, []any, error) {
		return upsertRowQuery(table, idField, row)
	})
}

func (p *postgresRemote) Insert(ctx context.Context, table string, rows []models.Row) error {
	return p.writeRows(ctx, "Insert", table, rows, func(row models.Row) (string, []any, error) {
		return insertRowQuery(table, row)
	})
}

// writeRows applies one statement per row inside a single transaction, so a
// batch lands entirely or not at all.
func (p *postgresRemote) writeRows(ctx context.Context, op, table string, rows []models.Row, build func(models.Row) (string, []any, error)) error {
	if len(rows) == 0 {
		return nil
	}

	statements := make([]struct {
		query string
		args  []any
	}, len(rows))
	for i, row := range rows {
		query, args, err := build(row)
		if err != nil {
			return nonRetryable(strings.ToLower(op)+" "+table, err)
		}
		statements[i].query, statements[i].args = query, args
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return p.fail(op, table, err)
	}

	for _, st := range statements {
		if _, err = tx.ExecContext(ctx, st.query, st.args...); err != nil {
			_ = tx.Rollback()
			return p.fail(op, table, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return p.fail(op, table, err)
	}

	return nil
}

func (p *postgresRemote) DeleteByID(ctx context.Context, table, idField, id string) error {
	if idField == "" {
		idField = models.DefaultIDField
	}
	return p.deleteWhere(ctx, "DeleteByID", table, idField, id)
}

func (p *postgresRemote) DeleteWhere(ctx context.Context, table, field, value string) error {
	return p.deleteWhere(ctx, "DeleteWhere", table, field, value)
}

func (p *postgresRemote) deleteWhere(ctx context.Context, op, table, field, value string) error {
	if !models.IsIdentifier(table) || !models.IsIdentifier(field) {
		return nonRetryable("delete "+table, fmt.Errorf("%w: %q.%q", ErrInvalidQuery, table, field))
	}

	query, args, err := postgres.Delete(table).Where(sq.Eq{field: value}).ToSql()
	if err != nil {
		return nonRetryable("delete "+table, err)
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	if _, err = p.db.ExecContext(ctx, query, args...); err != nil {
		return p.fail(op, table, err)
	}

	return nil
}

func (p *postgresRemote) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.db.PingContext(ctx); err != nil {
		return mapPostgresError("ping", err)
	}
	return nil
}

// Migrate applies the embedded remote schema.
func (p *postgresRemote) Migrate(ctx context.Context) error {
	if err := migrations.Migrate(ctx, p.db, migrations.Remote); err != nil {
		p.logger.Err(err).Str("func", "postgresRemote.Migrate").Msg("failed to migrate remote schema")
		return nonRetryable("migrate", err)
	}
	return nil
}

func (p *postgresRemote) Close() error {
	return p.db.Close()
}

func (p *postgresRemote) fail(op, table string, err error) error {
	mapped := mapPostgresError(strings.ToLower(op)+" "+table, err)
	p.logger.Err(err).
		Str("func", "postgresRemote."+op).
		Str("table", table).
		Bool("retryable", IsRetryable(mapped)).
		Msg("remote operation failed")
	return mapped
}

func selectRowsQuery(q models.RemoteQuery) (string, []any, error) {
	if !models.IsIdentifier(q.Table) {
		return "", nil, fmt.Errorf("%w: table %q", ErrInvalidQuery, q.Table)
	}

	query := postgres.Select("*").From(q.Table)

	if q.FilterField != "" {
		if !models.IsIdentifier(q.FilterField) {
			return "", nil, fmt.Errorf("%w: filter field %q", ErrInvalidQuery, q.FilterField)
		}
		query = query.Where(sq.Eq{q.FilterField: q.FilterValue})
	}

	if q.SinceField != "" && !q.Since.IsZero() {
		if !models.IsIdentifier(q.SinceField) {
			return "", nil, fmt.Errorf("%w: delta field %q", ErrInvalidQuery, q.SinceField)
		}
		query = query.Where(sq.Gt{q.SinceField: q.Since.UTC()})
	}

	if q.OrderBy != "" {
		if !models.IsIdentifier(q.OrderBy) {
			return "", nil, fmt.Errorf("%w: order by %q", ErrInvalidQuery, q.OrderBy)
		}
		query = query.OrderBy(q.OrderBy)
	}

	return query.ToSql()
}

func insertRowQuery(table string, row models.Row) (string, []any, error) {
	columns, values, err := rowColumns(table, row)
	if err != nil {
		return "", nil, err
	}

	return postgres.Insert(table).Columns(columns...).Values(values...).ToSql()
}

func upsertRowQuery(table, idField string, row models.Row) (string, []any, error) {
	if row.ID(idField) == "" {
		return "", nil, fmt.Errorf("%w: %s", ErrMissingID, table)
	}
	if !models.IsIdentifier(idField) {
		return "", nil, fmt.Errorf("%w: id field %q", ErrInvalidQuery, idField)
	}

	columns, values, err := rowColumns(table, row)
	if err != nil {
		return "", nil, err
	}

	updates := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == idField {
			continue
		}
		updates = append(updates, c+" = EXCLUDED."+c)
	}

	suffix := "ON CONFLICT (" + idField + ") DO NOTHING"
	if len(updates) > 0 {
		suffix = "ON CONFLICT (" + idField + ") DO UPDATE SET " + strings.Join(updates, ", ")
	}

	return postgres.Insert(table).Columns(columns...).Values(values...).Suffix(suffix).ToSql()
}

// rowColumns returns the row's columns in sorted order with their values.
// Nested objects and arrays are sent as JSON text.
func rowColumns(table string, row models.Row) ([]string, []any, error) {
	if !models.IsIdentifier(table) {
		return nil, nil, fmt.Errorf("%w: table %q", ErrInvalidQuery, table)
	}
	if len(row) == 0 {
		return nil, nil, fmt.Errorf("%w: empty row for %s", ErrInvalidQuery, table)
	}

	columns := models.SortedKeys(row)
	values := make([]any, len(columns))
	for i, c := range columns {
		if !models.IsIdentifier(c) {
			return nil, nil, fmt.Errorf("%w: column %q", ErrInvalidQuery, c)
		}

		switch v := row[c].(type) {
		case map[string]any, []any:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, nil, err
			}
			values[i] = string(encoded)
		default:
			values[i] = v
		}
	}

	return columns, values, nil
}

func scanRows(rows *sql.Rows) ([]models.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([]models.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err = rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(models.Row, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
