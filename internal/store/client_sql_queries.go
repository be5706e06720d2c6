package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

const (
	recordsTable  = "records"
	queueTable    = "sync_queue"
	metadataTable = "metadata"
	prefsTable    = "preferences"
)

var (
	recordColumns = []string{"collection", "id", "data", "synced", "local_only", "deleted", "updated_at"}
	queueColumns  = []string{"seq", "id", "collection", "record_id", "operation", "payload",
		"enqueued_at", "retry_count", "last_error", "next_attempt_at", "state"}
)

// sqlite uses "?" placeholders, the squirrel default.
var sqlite = sq.StatementBuilder

func selectRecordQuery(collection, id string) (string, []any, error) {
	return sqlite.Select(recordColumns...).
		From(recordsTable).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
}

// selectRecordsQuery builds the read behind GetAll. Tombstones are hidden
// unless withDeleted is set.
func selectRecordsQuery(collection string, filter *models.RecordFilter, withDeleted bool) (string, []any, error) {
	query := sqlite.Select(recordColumns...).
		From(recordsTable).
		Where(sq.Eq{"collection": collection})

	if !withDeleted {
		query = query.Where(sq.Eq{"deleted": false})
	}

	if filter == nil {
		return query.OrderBy("updated_at", "id").ToSql()
	}

	if filter.Field != "" {
		if !models.IsIdentifier(filter.Field) {
			return "", nil, fmt.Errorf("%w: field %q", ErrInvalidFilter, filter.Field)
		}
		query = query.Where(sq.Expr("json_extract(data, ?) = ?", jsonPath(filter.Field), filter.Equals))
	}

	if filter.OnlyUnsynced {
		query = query.Where(sq.Eq{"synced": false})
	}

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}

	if filter.OrderBy != "" {
		if !models.IsIdentifier(filter.OrderBy) {
			return "", nil, fmt.Errorf("%w: order by %q", ErrInvalidFilter, filter.OrderBy)
		}
		query = query.OrderByClause("json_extract(data, ?) "+direction, jsonPath(filter.OrderBy)).
			OrderBy("id " + direction)
	} else {
		query = query.OrderBy("updated_at "+direction, "id "+direction)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	return query.ToSql()
}

func jsonPath(field string) string {
	return "$." + field
}

func insertRecordQuery(r models.Record) (string, []any, error) {
	return sqlite.Insert(recordsTable).
		Columns(recordColumns...).
		Values(r.Collection, r.ID, string(r.Data), r.Synced, r.LocalOnly, r.Deleted, r.UpdatedAt.UTC()).
		ToSql()
}

func updateRecordQuery(r models.Record) (string, []any, error) {
	return sqlite.Update(recordsTable).
		Set("data", string(r.Data)).
		Set("synced", r.Synced).
		Set("local_only", r.LocalOnly).
		Set("deleted", r.Deleted).
		Set("updated_at", r.UpdatedAt.UTC()).
		Where(sq.Eq{"collection": r.Collection, "id": r.ID}).
		ToSql()
}

func deleteRecordQuery(collection, id string) (string, []any, error) {
	return sqlite.Delete(recordsTable).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
}

func countUnsyncedQuery() (string, []any, error) {
	return sqlite.Select("collection", "COUNT(*)").
		From(recordsTable).
		Where(sq.Eq{"synced": false}).
		GroupBy("collection").
		OrderBy("collection").
		ToSql()
}

func insertQueueItemQuery(item models.SyncQueueItem) (string, []any, error) {
	return sqlite.Insert(queueTable).
		Columns("id", "collection", "record_id", "operation", "payload",
			"enqueued_at", "retry_count", "last_error", "next_attempt_at", "state").
		Values(item.ID, item.Collection, item.RecordID, string(item.Operation), nullableJSON(item.Payload),
			item.EnqueuedAt.UTC(), item.RetryCount, item.LastError, item.NextAttemptAt.UTC(), string(item.State)).
		ToSql()
}

func selectQueueQuery(where sq.Sqlizer) (string, []any, error) {
	query := sqlite.Select(queueColumns...).From(queueTable)
	if where != nil {
		query = query.Where(where)
	}
	return query.OrderBy("seq").ToSql()
}

func countQueueQuery(state models.QueueState) (string, []any, error) {
	return sqlite.Select("COUNT(*)").
		From(queueTable).
		Where(sq.Eq{"state": string(state)}).
		ToSql()
}

func countRecordQueueQuery(collection, recordID string) (string, []any, error) {
	return sqlite.Select("COUNT(*)").
		From(queueTable).
		Where(sq.Eq{"collection": collection, "record_id": recordID}).
		ToSql()
}

func deleteRecordQueueQuery(collection, recordID string) (string, []any, error) {
	return sqlite.Delete(queueTable).
		Where(sq.Eq{"collection": collection, "record_id": recordID}).
		ToSql()
}

func upsertMetadataQuery(key, value string, at any) (string, []any, error) {
	return sqlite.Insert(metadataTable).
		Columns("key", "value", "updated_at").
		Values(key, value, at).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
}

func upsertPreferenceQuery(key, value string, at any) (string, []any, error) {
	return sqlite.Insert(prefsTable).
		Columns("key", "value", "updated_at").
		Values(key, value, at).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
}

func nullableJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
