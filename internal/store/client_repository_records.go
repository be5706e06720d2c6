package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type recordRepository struct {
	*DB
	logger *logger.Logger
	ids    utils.IDGenerator
	now    func() time.Time
}

func NewRecordRepository(db *DB, logger *logger.Logger, ids utils.IDGenerator) RecordRepository {
	return &recordRepository{
		DB:     db,
		logger: logger,
		ids:    ids,
		now:    utcNow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *recordRepository) Put(ctx context.Context, collection string, record models.Record) (models.Record, error) {
	if collection == "" {
		return models.Record{}, fmt.Errorf("%w: empty collection", ErrInvalidRecord)
	}
	if !isJSONObject(record.Data) {
		return models.Record{}, fmt.Errorf("%w: data must be a JSON object", ErrInvalidRecord)
	}
	if record.ID == "" {
		record.ID = r.ids.Generate()
	}

	record.Collection = collection
	record.Synced = false
	record.Deleted = false
	record.UpdatedAt = r.now()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, found, err := getRecord(ctx, tx, collection, record.ID)
		if err != nil {
			return err
		}

		op := models.OperationUpdate
		var query string
		var args []any
		if found {
			record.LocalOnly = existing.LocalOnly
			query, args, err = updateRecordQuery(record)
		} else {
			op = models.OperationCreate
			record.LocalOnly = true
			query, args, err = insertRecordQuery(record)
		}
		if err != nil {
			return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
		}

		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: failed to write record: %w", ErrStorage, err)
		}

		_, err = enqueue(ctx, tx, r.newQueueItem(collection, record.ID, op, record.Data))
		return err
	})
	if err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.Put").
			Str("collection", collection).
			Str("id", record.ID).
			Msg("failed to put record")
		return models.Record{}, err
	}

	return record, nil
}

func (r *recordRepository) Get(ctx context.Context, collection, id string) (models.Record, error) {
	record, found, err := getRecord(ctx, r.DB, collection, id)
	if err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.Get").
			Str("collection", collection).
			Str("id", id).
			Msg("failed to get record")
		return models.Record{}, err
	}

	if !found || record.Deleted {
		return models.Record{}, ErrRecordNotFound
	}

	return record, nil
}

func (r *recordRepository) GetAll(ctx context.Context, collection string, filter *models.RecordFilter) ([]models.Record, error) {
	query, args, err := selectRecordsQuery(collection, filter, false)
	if err != nil {
		if errors.Is(err, ErrInvalidFilter) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	records, err := queryRecords(ctx, r.DB, query, args...)
	if err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.GetAll").
			Str("collection", collection).
			Msg("failed to query records")
		return nil, err
	}

	return records, nil
}

// Remove deletes a record. A synced record leaves a tombstone and a queued
// delete. A record that never reached the remote is dropped together with
// its queue items; a delete is still queued when one of those items was
// already attempted, since the remote may hold the row.
func (r *recordRepository) Remove(ctx context.Context, collection, id string) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, found, err := getRecord(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		if !found || existing.Deleted {
			return ErrRecordNotFound
		}

		needsDelete := true
		var query string
		var args []any
		if existing.LocalOnly {
			if needsDelete, err = dropRecordQueue(ctx, tx, collection, id); err != nil {
				return err
			}
			query, args, err = deleteRecordQuery(collection, id)
		} else {
			existing.Deleted = true
			existing.Synced = false
			existing.UpdatedAt = r.now()
			query, args, err = updateRecordQuery(existing)
		}
		if err != nil {
			return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
		}

		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: failed to remove record: %w", ErrStorage, err)
		}

		if !needsDelete {
			return nil
		}
		_, err = enqueue(ctx, tx, r.newQueueItem(collection, id, models.OperationDelete, nil))
		return err
	})
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		r.logger.Err(err).
			Str("func", "recordRepository.Remove").
			Str("collection", collection).
			Str("id", id).
			Msg("failed to remove record")
	}

	return err
}

func (r *recordRepository) CountUnsynced(ctx context.Context) (models.UnsyncedCount, error) {
	result := models.UnsyncedCount{PerCollection: make(map[string]int)}

	query, args, err := countUnsyncedQuery()
	if err != nil {
		return result, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Err(err).Str("func", "recordRepository.CountUnsynced").Msg("failed to count unsynced records")
		return result, fmt.Errorf("%w: failed to count unsynced records: %w", ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var collection string
		var count int
		if err = rows.Scan(&collection, &count); err != nil {
			return result, fmt.Errorf("%w: failed to scan unsynced count: %w", ErrStorage, err)
		}
		result.PerCollection[collection] = count
		result.Total += count
	}

	if err = rows.Err(); err != nil {
		return result, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return result, nil
}

// ApplyRemote merges remote records into collection. A record is inserted
// when absent and overwritten only when the local copy is synced and not a
// tombstone; pending local edits always win. With prune set the incoming
// records are the full remote set, and synced local records missing from
// it are removed.
func (r *recordRepository) ApplyRemote(ctx context.Context, collection string, records []models.Record, prune bool) (models.MergeStats, error) {
	var stats models.MergeStats

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stats = models.MergeStats{}
		incoming := make(map[string]struct{}, len(records))

		for _, remote := range records {
			if remote.ID == "" {
				stats.Skipped++
				continue
			}
			incoming[remote.ID] = struct{}{}

			local, found, err := getRecord(ctx, tx, collection, remote.ID)
			if err != nil {
				return err
			}

			remote.Collection = collection
			remote.Synced = true
			remote.LocalOnly = false
			remote.Deleted = false
			if remote.UpdatedAt.IsZero() {
				remote.UpdatedAt = r.now()
			}

			var query string
			var args []any
			switch {
			case !found:
				query, args, err = insertRecordQuery(remote)
				stats.Inserted++
			case local.Synced && !local.Deleted:
				if jsonEqual(local.Data, remote.Data) {
					continue
				}
				query, args, err = updateRecordQuery(remote)
				stats.Updated++
			default:
				stats.Skipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
			}

			if _, err = tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("%w: failed to apply remote record: %w", ErrStorage, err)
			}
		}

		if !prune {
			return nil
		}

		query, args, err := selectRecordsQuery(collection, &models.RecordFilter{}, true)
		if err != nil {
			return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
		}
		local, err := queryRecords(ctx, tx, query, args...)
		if err != nil {
			return err
		}

		for _, rec := range local {
			if _, ok := incoming[rec.ID]; ok || !rec.Synced || rec.Deleted {
				continue
			}
			if err = execDeleteRecord(ctx, tx, collection, rec.ID); err != nil {
				return err
			}
			stats.Pruned++
		}

		return nil
	})
	if err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.ApplyRemote").
			Str("collection", collection).
			Msg("failed to apply remote records")
		return models.MergeStats{}, err
	}

	return stats, nil
}

func (r *recordRepository) Purge(ctx context.Context, collection, id string) error {
	if err := execDeleteRecord(ctx, r.DB, collection, id); err != nil {
		r.logger.Err(err).
			Str("func", "recordRepository.Purge").
			Str("collection", collection).
			Str("id", id).
			Msg("failed to purge record")
		return err
	}
	return nil
}

func (r *recordRepository) Snapshot(ctx context.Context, collections []string) (models.LocalSnapshot, error) {
	snapshot := models.EmptyLocalSnapshot(collections)

	for _, collection := range collections {
		query, args, err := selectRecordsQuery(collection, nil, true)
		if err != nil {
			return models.LocalSnapshot{}, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
		}

		records, err := queryRecords(ctx, r.DB, query, args...)
		if err != nil {
			r.logger.Err(err).
				Str("func", "recordRepository.Snapshot").
				Str("collection", collection).
				Msg("failed to read collection")
			return models.LocalSnapshot{}, err
		}
		snapshot.Records[collection] = records
	}

	query, args, err := selectQueueQuery(nil)
	if err != nil {
		return models.LocalSnapshot{}, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}
	queue, err := queryQueueItems(ctx, r.DB, query, args...)
	if err != nil {
		r.logger.Err(err).Str("func", "recordRepository.Snapshot").Msg("failed to read sync queue")
		return models.LocalSnapshot{}, err
	}
	snapshot.Queue = queue

	metadata, err := allMetadata(ctx, r.DB)
	if err != nil {
		r.logger.Err(err).Str("func", "recordRepository.Snapshot").Msg("failed to read metadata")
		return models.LocalSnapshot{}, err
	}
	snapshot.Metadata = metadata

	return snapshot, nil
}

// Import replays a snapshot into the store: synced records fill the cache
// through the remote merge rule, unsynced records are put again (and so
// re-enqueued) and tombstones are removed. Collections are processed in
// name order.
func (r *recordRepository) Import(ctx context.Context, snapshot models.LocalSnapshot) (int, error) {
	imported := 0

	for _, collection := range models.SortedKeys(snapshot.Records) {
		var synced []models.Record

		for _, record := range snapshot.Records[collection] {
			switch {
			case record.Deleted:
				err := r.Remove(ctx, collection, record.ID)
				if errors.Is(err, ErrRecordNotFound) {
					continue
				}
				if err != nil {
					return imported, err
				}
				imported++
			case record.Synced:
				synced = append(synced, record)
			default:
				if _, err := r.Put(ctx, collection, record); err != nil {
					return imported, err
				}
				imported++
			}
		}

		if len(synced) == 0 {
			continue
		}
		stats, err := r.ApplyRemote(ctx, collection, synced, false)
		if err != nil {
			return imported, err
		}
		imported += stats.Inserted + stats.Updated
	}

	return imported, nil
}

// dropRecordQueue deletes the queue items of one record and reports whether
// any of them had been attempted.
func dropRecordQueue(ctx context.Context, q queryer, collection, id string) (bool, error) {
	query, args, err := selectQueueQuery(sq.Eq{"collection": collection, "record_id": id})
	if err != nil {
		return false, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}
	items, err := queryQueueItems(ctx, q, query, args...)
	if err != nil {
		return false, err
	}

	attempted := false
	for _, item := range items {
		if item.RetryCount > 0 || item.State == models.QueueStateFailed {
			attempted = true
		}
	}

	if query, args, err = deleteRecordQueueQuery(collection, id); err != nil {
		return false, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}
	if _, err = q.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("%w: failed to drop queue items: %w", ErrStorage, err)
	}

	return attempted, nil
}

func (r *recordRepository) newQueueItem(collection, recordID string, op models.Operation, payload json.RawMessage) models.SyncQueueItem {
	now := r.now()
	return models.SyncQueueItem{
		ID:            r.ids.Generate(),
		Collection:    collection,
		RecordID:      recordID,
		Operation:     op,
		Payload:       payload,
		EnqueuedAt:    now,
		NextAttemptAt: now,
		State:         models.QueueStatePending,
	}
}

func getRecord(ctx context.Context, q queryer, collection, id string) (models.Record, bool, error) {
	query, args, err := selectRecordQuery(collection, id)
	if err != nil {
		return models.Record{}, false, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	record, err := scanRecord(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, false, nil
	}
	if err != nil {
		return models.Record{}, false, fmt.Errorf("%w: failed to scan record: %w", ErrStorage, err)
	}

	return record, true, nil
}

func queryRecords(ctx context.Context, q queryer, query string, args ...any) ([]models.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query records: %w", ErrStorage, err)
	}
	defer rows.Close()

	records := make([]models.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan record row: %w", ErrStorage, err)
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.Record, error) {
	var record models.Record
	var data string

	err := row.Scan(
		&record.Collection,
		&record.ID,
		&data,
		&record.Synced,
		&record.LocalOnly,
		&record.Deleted,
		&record.UpdatedAt,
	)
	if err != nil {
		return models.Record{}, err
	}

	record.Data = json.RawMessage(data)
	return record, nil
}

func execDeleteRecord(ctx context.Context, q queryer, collection, id string) error {
	query, args, err := deleteRecordQuery(collection, id)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}
	if _, err = q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: failed to delete record: %w", ErrStorage, err)
	}
	return nil
}

func isJSONObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

func jsonEqual(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	ca, _ := json.Marshal(va)
	cb, _ := json.Marshal(vb)
	return bytes.Equal(ca, cb)
}
