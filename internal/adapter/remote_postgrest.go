package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type postgrestRemote struct {
	client *utils.HTTPClient
	logger *logger.Logger
}

// NewPostgRESTRemote constructs a [RemoteStore] talking to a PostgREST
// endpoint (a self-hosted PostgREST, or the /rest/v1 root of a supabase
// project). The API key, when set, is sent as "apikey"; the access token,
// falling back to the API key, as the bearer token.
func NewPostgRESTRemote(cfg config.ClientAdapter, log *logger.Logger) (RemoteStore, error) {
	baseURL, err := normalizeBaseURL(cfg.URL)
	if err != nil {
		return nil, nonRetryable("connect", fmt.Errorf("invalid postgrest url: %w", err))
	}

	client := utils.NewHTTPClient(baseURL, cfg.RequestTimeout)
	if cfg.APIKey != "" {
		client.SetHeader("apikey", cfg.APIKey)
	}
	token := cfg.AccessToken
	if token == "" {
		token = cfg.APIKey
	}
	client.WithBearer(token).SetHeader("Accept", "application/json")

	return &postgrestRemote{client: client, logger: log}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func (h *postgrestRemote) Select(ctx context.Context, q models.RemoteQuery) ([]models.Row, error) {
	params, err := selectParams(q)
	if err != nil {
		return nil, nonRetryable("select "+q.Table, err)
	}

	var rows []models.Row
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/" + q.Table)
	if err != nil {
		return nil, h.fail("Select", q.Table, mapTransportError("select "+q.Table, err))
	}
	if err = mapHTTPError("select "+q.Table, resp); err != nil {
		return nil, h.fail("Select", q.Table, err)
	}

	if err = json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, h.fail("Select", q.Table, nonRetryable("select "+q.Table, fmt.Errorf("decode rows: %w", err)))
	}
	if rows == nil {
		rows = make([]models.Row, 0)
	}

	return rows, nil
}

func (h *postgrestRemote) Upsert(ctx context.Context, table, idField string, rows []models.Row) error {
	if idField == "" {
		idField = models.DefaultIDField
	}
	for _, row := range rows {
		if row.ID(idField) == "" {
			return nonRetryable("upsert "+table, fmt.Errorf("%w: %s", ErrMissingID, table))
		}
	}

	return h.write(ctx, "Upsert", table, rows, func(req *resty.Request) {
		req.SetQueryParam("on_conflict", idField).
			SetHeader("Prefer", "resolution=merge-duplicates,missing=default,return=minimal")
	})
}

func (h *postgrestRemote) Insert(ctx context.Context, table string, rows []models.Row) error {
	return h.write(ctx, "Insert", table, rows, func(req *resty.Request) {
		req.SetHeader("Prefer", "missing=default,return=minimal")
	})
}

func (h *postgrestRemote) write(ctx context.Context, op, table string, rows []models.Row, prepare func(*resty.Request)) error {
	if len(rows) == 0 {
		return nil
	}
	if !models.IsIdentifier(table) {
		return nonRetryable(strings.ToLower(op)+" "+table, fmt.Errorf("%w: table %q", ErrInvalidQuery, table))
	}

	req := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rows)
	prepare(req)

	resp, err := req.Post("/" + table)
	if err != nil {
		return h.fail(op, table, mapTransportError(strings.ToLower(op)+" "+table, err))
	}
	if err = mapHTTPError(strings.ToLower(op)+" "+table, resp); err != nil {
		return h.fail(op, table, err)
	}

	return nil
}

func (h *postgrestRemote) DeleteByID(ctx context.Context, table, idField, id string) error {
	if idField == "" {
		idField = models.DefaultIDField
	}
	return h.delete(ctx, "DeleteByID", table, idField, id)
}

func (h *postgrestRemote) DeleteWhere(ctx context.Context, table, field, value string) error {
	return h.delete(ctx, "DeleteWhere", table, field, value)
}

func (h *postgrestRemote) delete(ctx context.Context, op, table, field, value string) error {
	if !models.IsIdentifier(table) || !models.IsIdentifier(field) {
		return nonRetryable("delete "+table, fmt.Errorf("%w: %q.%q", ErrInvalidQuery, table, field))
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam(field, "eq."+value).
		SetHeader("Prefer", "return=minimal").
		Delete("/" + table)
	if err != nil {
		return h.fail(op, table, mapTransportError("delete "+table, err))
	}
	if err = mapHTTPError("delete "+table, resp); err != nil {
		return h.fail(op, table, err)
	}

	return nil
}

func (h *postgrestRemote) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/")
	if err != nil {
		return mapTransportError("ping", err)
	}
	return mapHTTPError("ping", resp)
}

func (h *postgrestRemote) Close() error {
	return nil
}

func (h *postgrestRemote) fail(op, table string, err error) error {
	h.logger.Err(err).
		Str("func", "postgrestRemote."+op).
		Str("table", table).
		Bool("retryable", IsRetryable(err)).
		Msg("remote operation failed")
	return err
}

// selectParams renders q in PostgREST query syntax.
func selectParams(q models.RemoteQuery) (url.Values, error) {
	if !models.IsIdentifier(q.Table) {
		return nil, fmt.Errorf("%w: table %q", ErrInvalidQuery, q.Table)
	}

	params := url.Values{}
	params.Set("select", "*")

	if q.FilterField != "" {
		if !models.IsIdentifier(q.FilterField) {
			return nil, fmt.Errorf("%w: filter field %q", ErrInvalidQuery, q.FilterField)
		}
		params.Set(q.FilterField, "eq."+q.FilterValue)
	}

	if q.SinceField != "" && !q.Since.IsZero() {
		if !models.IsIdentifier(q.SinceField) {
			return nil, fmt.Errorf("%w: delta field %q", ErrInvalidQuery, q.SinceField)
		}
		params.Set(q.SinceField, "gt."+q.Since.UTC().Format(time.RFC3339Nano))
	}

	if q.OrderBy != "" {
		if !models.IsIdentifier(q.OrderBy) {
			return nil, fmt.Errorf("%w: order by %q", ErrInvalidQuery, q.OrderBy)
		}
		params.Set("order", q.OrderBy+".asc")
	}

	return params, nil
}
