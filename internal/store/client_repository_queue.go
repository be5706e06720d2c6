package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type syncQueueRepository struct {
	*DB
	logger *logger.Logger
	ids    utils.IDGenerator
}

func NewSyncQueueRepository(db *DB, logger *logger.Logger, ids utils.IDGenerator) SyncQueueRepository {
	return &syncQueueRepository{
		DB:     db,
		logger: logger,
		ids:    ids,
	}
}

func (s *syncQueueRepository) Enqueue(ctx context.Context, item models.SyncQueueItem) (models.SyncQueueItem, error) {
	if !item.Operation.Valid() {
		return models.SyncQueueItem{}, fmt.Errorf("%w: unknown operation %q", ErrInvalidRecord, item.Operation)
	}
	if item.ID == "" {
		item.ID = s.ids.Generate()
	}
	if item.State == "" {
		item.State = models.QueueStatePending
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = utcNow()
	}
	if item.NextAttemptAt.IsZero() {
		item.NextAttemptAt = item.EnqueuedAt
	}

	stored, err := enqueue(ctx, s.DB, item)
	if err != nil {
		s.logger.Err(err).
			Str("func", "syncQueueRepository.Enqueue").
			Str("collection", item.Collection).
			Str("record_id", item.RecordID).
			Msg("failed to enqueue item")
		return models.SyncQueueItem{}, err
	}

	return stored, nil
}

func (s *syncQueueRepository) PeekAll(ctx context.Context) ([]models.SyncQueueItem, error) {
	return s.peek(ctx, "syncQueueRepository.PeekAll", nil)
}

func (s *syncQueueRepository) PeekReady(ctx context.Context, now time.Time) ([]models.SyncQueueItem, error) {
	return s.peek(ctx, "syncQueueRepository.PeekReady", sq.And{
		sq.Eq{"state": string(models.QueueStatePending)},
		sq.LtOrEq{"next_attempt_at": now.UTC()},
	})
}

func (s *syncQueueRepository) peek(ctx context.Context, fn string, where sq.Sqlizer) ([]models.SyncQueueItem, error) {
	query, args, err := selectQueueQuery(where)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	items, err := queryQueueItems(ctx, s.DB, query, args...)
	if err != nil {
		s.logger.Err(err).Str("func", fn).Msg("failed to read sync queue")
		return nil, err
	}

	return items, nil
}

func (s *syncQueueRepository) Remove(ctx context.Context, id string) error {
	query, args, err := sqlite.Delete(queueTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Err(err).Str("func", "syncQueueRepository.Remove").Str("id", id).Msg("failed to remove item")
		return fmt.Errorf("%w: failed to remove queue item: %w", ErrStorage, err)
	}

	return expectAffected(res, ErrQueueItemNotFound)
}

func (s *syncQueueRepository) IncrementRetry(ctx context.Context, id, cause string, nextAttempt time.Time, failed bool) error {
	state := models.QueueStatePending
	if failed {
		state = models.QueueStateFailed
	}

	query, args, err := sqlite.Update(queueTable).
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("last_error", cause).
		Set("next_attempt_at", nextAttempt.UTC()).
		Set("state", string(state)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Err(err).Str("func", "syncQueueRepository.IncrementRetry").Str("id", id).Msg("failed to record retry")
		return fmt.Errorf("%w: failed to record retry: %w", ErrStorage, err)
	}

	return expectAffected(res, ErrQueueItemNotFound)
}

func (s *syncQueueRepository) PendingCount(ctx context.Context) (int, error) {
	return s.count(ctx, models.QueueStatePending)
}

func (s *syncQueueRepository) FailedCount(ctx context.Context) (int, error) {
	return s.count(ctx, models.QueueStateFailed)
}

func (s *syncQueueRepository) count(ctx context.Context, state models.QueueState) (int, error) {
	query, args, err := countQueueQuery(state)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	var n int
	if err = s.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		s.logger.Err(err).Str("func", "syncQueueRepository.count").Str("state", string(state)).Msg("failed to count items")
		return 0, fmt.Errorf("%w: failed to count queue items: %w", ErrStorage, err)
	}

	return n, nil
}

// ResetFailed moves every failed item back to pending with a fresh retry
// budget, due at now.
func (s *syncQueueRepository) ResetFailed(ctx context.Context, now time.Time) (int, error) {
	query, args, err := sqlite.Update(queueTable).
		Set("state", string(models.QueueStatePending)).
		Set("retry_count", 0).
		Set("next_attempt_at", now.UTC()).
		Where(sq.Eq{"state": string(models.QueueStateFailed)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Err(err).Str("func", "syncQueueRepository.ResetFailed").Msg("failed to reset failed items")
		return 0, fmt.Errorf("%w: failed to reset failed items: %w", ErrStorage, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return int(n), nil
}

// Confirm records that the remote store applied item. The item is removed
// and, once no other item for the same record is left, the record is marked
// synced (create, update) or its tombstone purged (delete).
func (s *syncQueueRepository) Confirm(ctx context.Context, item models.SyncQueueItem) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := sqlite.Delete(queueTable).Where(sq.Eq{"id": item.ID}).ToSql()
		if err != nil {
			return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%w: failed to remove queue item: %w", ErrStorage, err)
		}
		if err = expectAffected(res, ErrQueueItemNotFound); err != nil {
			return err
		}

		query, args, err = countRecordQueueQuery(item.Collection, item.RecordID)
		if err != nil {
			return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
		}
		var remaining int
		if err = tx.QueryRowContext(ctx, query, args...).Scan(&remaining); err != nil {
			return fmt.Errorf("%w: failed to count record queue items: %w", ErrStorage, err)
		}
		if remaining > 0 {
			return nil
		}

		if item.Operation == models.OperationDelete {
			query, args, err = sqlite.Delete(recordsTable).
				Where(sq.Eq{"collection": item.Collection, "id": item.RecordID, "deleted": true}).
				ToSql()
		} else {
			query, args, err = sqlite.Update(recordsTable).
				Set("synced", true).
				Set("local_only", false).
				Where(sq.Eq{"collection": item.Collection, "id": item.RecordID, "deleted": false}).
				ToSql()
		}
		if err != nil {
			return fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
		}

		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: failed to settle record: %w", ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Err(err).
			Str("func", "syncQueueRepository.Confirm").
			Str("id", item.ID).
			Str("collection", item.Collection).
			Str("record_id", item.RecordID).
			Msg("failed to confirm item")
	}

	return err
}

func enqueue(ctx context.Context, q queryer, item models.SyncQueueItem) (models.SyncQueueItem, error) {
	query, args, err := insertQueueItemQuery(item)
	if err != nil {
		return models.SyncQueueItem{}, fmt.Errorf("%w: %w: %w", ErrStorage, ErrBuildingSQLQuery, err)
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return models.SyncQueueItem{}, fmt.Errorf("%w: failed to enqueue: %w", ErrStorage, err)
	}

	if seq, err := res.LastInsertId(); err == nil {
		item.Seq = seq
	}

	return item, nil
}

func queryQueueItems(ctx context.Context, q queryer, query string, args ...any) ([]models.SyncQueueItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query sync queue: %w", ErrStorage, err)
	}
	defer rows.Close()

	items := make([]models.SyncQueueItem, 0)
	for rows.Next() {
		var item models.SyncQueueItem
		var operation, state string
		var payload, lastError sql.NullString

		err = rows.Scan(
			&item.Seq,
			&item.ID,
			&item.Collection,
			&item.RecordID,
			&operation,
			&payload,
			&item.EnqueuedAt,
			&item.RetryCount,
			&lastError,
			&item.NextAttemptAt,
			&state,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan queue row: %w", ErrStorage, err)
		}

		item.Operation = models.Operation(operation)
		item.State = models.QueueState(state)
		if payload.Valid {
			item.Payload = json.RawMessage(payload.String)
		}
		if lastError.Valid {
			msg := lastError.String
			item.LastError = &msg
		}

		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return items, nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
