package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type supabaseRemote struct {
	client  *supabase.Client
	health  *utils.HTTPClient
	timeout time.Duration
	logger  *logger.Logger
}

// NewSupabaseRemote constructs a [RemoteStore] on top of a supabase project.
// When cfg.AccessToken is set, requests run as that user so row level
// security applies; otherwise they run with the API key's role.
func NewSupabaseRemote(cfg config.ClientAdapter, log *logger.Logger) (RemoteStore, error) {
	baseURL, err := normalizeBaseURL(cfg.URL)
	if err != nil {
		return nil, nonRetryable("connect", fmt.Errorf("invalid supabase url: %w", err))
	}

	opts := &supabase.ClientOptions{}
	if cfg.AccessToken != "" {
		opts.Headers = map[string]string{"Authorization": "Bearer " + cfg.AccessToken}
	}

	client, err := supabase.NewClient(baseURL, cfg.APIKey, opts)
	if err != nil {
		log.Err(err).Str("func", "NewSupabaseRemote").Msg("error creating supabase client")
		return nil, nonRetryable("connect", err)
	}

	health := utils.NewHTTPClient(baseURL, cfg.RequestTimeout)
	health.SetHeader("apikey", cfg.APIKey)

	return &supabaseRemote{
		client:  client,
		health:  health,
		timeout: cfg.RequestTimeout,
		logger:  log,
	}, nil
}

func (s *supabaseRemote) Select(ctx context.Context, q models.RemoteQuery) ([]models.Row, error) {
	if _, err := selectParams(q); err != nil {
		return nil, nonRetryable("select "+q.Table, err)
	}

	var rows []models.Row
	err := s.run(ctx, func() error {
		filter := s.client.From(q.Table).Select("*", "", false)
		if q.FilterField != "" {
			filter = filter.Eq(q.FilterField, q.FilterValue)
		}
		if q.SinceField != "" && !q.Since.IsZero() {
			filter = filter.Gt(q.SinceField, q.Since.UTC().Format(time.RFC3339Nano))
		}
		_, err := filter.ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, s.fail("Select", q.Table, err)
	}

	if rows == nil {
		rows = make([]models.Row, 0)
	}
	if q.OrderBy != "" {
		sortRows(rows, q.OrderBy)
	}

	return rows, nil
}

func (s *supabaseRemote) Upsert(ctx context.Context, table, idField string, rows []models.Row) error {
	if idField == "" {
		idField = models.DefaultIDField
	}
	for _, row := range rows {
		if row.ID(idField) == "" {
			return nonRetryable("upsert "+table, fmt.Errorf("%w: %s", ErrMissingID, table))
		}
	}
	if len(rows) == 0 {
		return nil
	}

	err := s.run(ctx, func() error {
		_, _, err := s.client.From(table).Upsert(rows, idField, "minimal", "").Execute()
		return err
	})
	if err != nil {
		return s.fail("Upsert", table, err)
	}
	return nil
}

func (s *supabaseRemote) Insert(ctx context.Context, table string, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	err := s.run(ctx, func() error {
		_, _, err := s.client.From(table).Insert(rows, false, "", "minimal", "").Execute()
		return err
	})
	if err != nil {
		return s.fail("Insert", table, err)
	}
	return nil
}

func (s *supabaseRemote) DeleteByID(ctx context.Context, table, idField, id string) error {
	if idField == "" {
		idField = models.DefaultIDField
	}
	return s.delete(ctx, "DeleteByID", table, idField, id)
}

func (s *supabaseRemote) DeleteWhere(ctx context.Context, table, field, value string) error {
	return s.delete(ctx, "DeleteWhere", table, field, value)
}

func (s *supabaseRemote) delete(ctx context.Context, op, table, field, value string) error {
	if !models.IsIdentifier(table) || !models.IsIdentifier(field) {
		return nonRetryable("delete "+table, fmt.Errorf("%w: %q.%q", ErrInvalidQuery, table, field))
	}

	err := s.run(ctx, func() error {
		_, _, err := s.client.From(table).Delete("minimal", "").Eq(field, value).Execute()
		return err
	})
	if err != nil {
		return s.fail(op, table, err)
	}
	return nil
}

// Ping probes the PostgREST root of the project.
func (s *supabaseRemote) Ping(ctx context.Context) error {
	resp, err := s.health.R().SetContext(ctx).Get("/rest/v1/")
	if err != nil {
		return mapTransportError("ping", err)
	}
	return mapHTTPError("ping", resp)
}

func (s *supabaseRemote) Close() error {
	return nil
}

// run executes a supabase-go call, which takes no context, bounded by ctx
// and the request timeout. An abandoned call finishes in the background.
func (s *supabaseRemote) run(ctx context.Context, call func() error) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- call()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *supabaseRemote) fail(op, table string, err error) error {
	mapped := mapSupabaseError(strings.ToLower(op)+" "+table, err)
	s.logger.Err(err).
		Str("func", "supabaseRemote."+op).
		Str("table", table).
		Bool("retryable", IsRetryable(mapped)).
		Msg("remote operation failed")
	return mapped
}

// sortRows orders rows by field ascending, with the row's text form as the
// comparison key. Rows missing the field sort last.
func sortRows(rows []models.Row, field string) {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, iok := rows[i][field]
		vj, jok := rows[j][field]
		if !iok || vi == nil {
			return false
		}
		if !jok || vj == nil {
			return true
		}
		return fmt.Sprint(vi) < fmt.Sprint(vj)
	})
}
