package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/service"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

// listRecords returns the locally cached records of a collection.
//
// Query parameters:
//   - field, equals: keep records whose field equals the given string;
//   - unsynced: only records with unconfirmed local edits;
//   - order_by, desc: ordering, defaulting to the collection's order hint;
//   - limit: cap on the number of records.
func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	name := chi.URLParam(r, "name")

	spec, ok := h.collections.Lookup(name)
	if !ok || !spec.Local {
		err := fmt.Errorf("%w: %s", service.ErrUnknownCollection, name)
		log.Err(err).Str("func", "*Handler.listRecords").Msg("collection is not cached locally")
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	filter, err := recordFilterFromQuery(r.URL.Query(), spec)
	if err != nil {
		log.Err(err).Str("func", "*Handler.listRecords").Msg("bad query")
		utils.WriteError(w, statusFromError(err), err.Error())
		return
	}

	records, err := h.records.GetAll(r.Context(), name, filter)
	if err != nil {
		log.Err(err).Str("func", "*Handler.listRecords").Str("collection", name).Msg("error reading records")
		utils.WriteError(w, statusFromError(err), err.Error())
		return
	}
	if records == nil {
		records = []models.Record{}
	}

	utils.WriteJSON(w, records, http.StatusOK)
}

func recordFilterFromQuery(q url.Values, spec models.CollectionSpec) (*models.RecordFilter, error) {
	filter := &models.RecordFilter{
		Field:   q.Get("field"),
		OrderBy: spec.OrderBy,
	}
	if filter.Field != "" {
		filter.Equals = q.Get("equals")
	}
	if orderBy := q.Get("order_by"); orderBy != "" {
		filter.OrderBy = orderBy
	}

	var err error
	if filter.OnlyUnsynced, err = boolParam(q, "unsynced"); err != nil {
		return nil, err
	}
	if filter.Descending, err = boolParam(q, "desc"); err != nil {
		return nil, err
	}
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.ParseUint(v, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: limit=%q", ErrInvalidQueryParameter, v)
		}
	}
	return filter, nil
}

// boolParam parses an optional boolean query parameter. Absent means false.
func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidQueryParameter, name, v)
	}
	return b, nil
}
