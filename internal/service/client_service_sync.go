package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/laoluafolami/spendlytics-sub001/internal/adapter"
	"github.com/laoluafolami/spendlytics-sub001/internal/config"
	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type syncOrchestrator struct {
	records  store.RecordRepository
	queue    store.SyncQueueRepository
	metadata store.MetadataRepository
	remote   adapter.RemoteStore
	session  SessionSource

	collections   models.CollectionRegistry
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
	fullPullEvery time.Duration
	now           func() time.Time
	logger        *logger.Logger

	// mu guards status and the subscriber list.
	mu        sync.Mutex
	status    models.SyncStatus
	subs      []subscriber
	nextSubID int

	// runMu guards the run guard below. A trigger takes a ticket; the pass
	// that starts after the ticket was taken completes it.
	runMu     sync.Mutex
	running   bool
	requested uint64
	completed uint64
	lastErr   error
	passDone  chan struct{}

	wg     sync.WaitGroup
	closed bool
}

type subscriber struct {
	id int
	fn func(models.SyncStatus)
}

// NewSyncOrchestrator builds the orchestrator. It starts offline; the
// connectivity monitor (or the caller) flips it online with SetOnline.
func NewSyncOrchestrator(
	storages *store.ClientStorages,
	remote adapter.RemoteStore,
	session SessionSource,
	collections models.CollectionRegistry,
	cfg config.ClientWorkers,
	log *logger.Logger,
) SyncOrchestrator {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	maxDelay := cfg.RetryMaxDelay
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	fullPullEvery := cfg.FullPullInterval
	if fullPullEvery <= 0 {
		fullPullEvery = time.Hour
	}

	return &syncOrchestrator{
		records:     storages.Records,
		queue:       storages.Queue,
		metadata:    storages.Metadata,
		remote:      remote,
		session:     session,
		collections:   collections,
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
		maxDelay:      maxDelay,
		fullPullEvery: fullPullEvery,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        log,
		passDone:      make(chan struct{}),
	}
}

func (s *syncOrchestrator) Status() models.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyStatus(s.status)
}

func (s *syncOrchestrator) Subscribe(fn func(models.SyncStatus)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	current := copyStatus(s.status)
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// update mutates the status under the lock and notifies subscribers
// outside of it.
func (s *syncOrchestrator) update(mutate func(*models.SyncStatus)) {
	s.mu.Lock()
	mutate(&s.status)
	current := copyStatus(s.status)
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(current)
	}
}

func (s *syncOrchestrator) isOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.IsOnline
}

func (s *syncOrchestrator) ForceSyncNow(ctx context.Context) error {
	if !s.isOnline() {
		s.update(func(st *models.SyncStatus) { st.Error = ErrOffline.Error() })
		return ErrOffline
	}
	return s.trigger(ctx)
}

// trigger runs a pass or, when one is in flight, waits for the follow-up
// pass that will cover this request. Concurrent triggers coalesce into at
// most one follow-up pass.
func (s *syncOrchestrator) trigger(ctx context.Context) error {
	s.runMu.Lock()
	s.requested++
	ticket := s.requested

	if s.running {
		for s.completed < ticket {
			done := s.passDone
			s.runMu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			s.runMu.Lock()
		}
		err := s.lastErr
		s.runMu.Unlock()
		return err
	}

	s.running = true
	s.runMu.Unlock()

	for {
		s.runMu.Lock()
		target := s.requested
		s.runMu.Unlock()

		err := s.pass(ctx)

		s.runMu.Lock()
		s.completed = target
		s.lastErr = err
		close(s.passDone)
		s.passDone = make(chan struct{})
		if s.requested == s.completed {
			s.running = false
			s.runMu.Unlock()
			return err
		}
		s.runMu.Unlock()
	}
}

func (s *syncOrchestrator) RequestSync() {
	s.runMu.Lock()
	if s.closed {
		s.runMu.Unlock()
		return
	}
	s.wg.Add(1)
	s.runMu.Unlock()

	go func() {
		defer s.wg.Done()
		ctx := context.Background()

		if !s.isOnline() {
			if err := s.Refresh(ctx); err != nil {
				s.logger.Err(err).Str("func", "syncOrchestrator.RequestSync").Msg("failed to refresh sync status")
			}
			return
		}
		if err := s.trigger(ctx); err != nil {
			s.logger.Err(err).Str("func", "syncOrchestrator.RequestSync").Msg("background sync pass failed")
		}
	}()
}

func (s *syncOrchestrator) SetOnline(ctx context.Context, online bool) error {
	s.mu.Lock()
	was := s.status.IsOnline
	s.mu.Unlock()

	if was == online {
		return nil
	}

	s.update(func(st *models.SyncStatus) {
		st.IsOnline = online
		if online && st.Error == ErrOffline.Error() {
			st.Error = ""
		}
	})
	s.logger.Info().Str("func", "syncOrchestrator.SetOnline").Bool("online", online).Msg("connectivity changed")

	if !online {
		return nil
	}
	return s.trigger(ctx)
}

func (s *syncOrchestrator) RetryFailed(ctx context.Context) (int, error) {
	n, err := s.queue.ResetFailed(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("reset failed queue items: %w", err)
	}
	s.logger.Info().Str("func", "syncOrchestrator.RetryFailed").Int("count", n).Msg("failed queue items reset")

	if !s.isOnline() {
		return n, s.Refresh(ctx)
	}
	return n, s.trigger(ctx)
}

func (s *syncOrchestrator) Refresh(ctx context.Context) error {
	pending, failed, err := s.counts(ctx)
	if err != nil {
		return err
	}

	lastSync, err := s.metadata.GetTime(ctx, models.MetaLastSync)
	if err != nil {
		return fmt.Errorf("read last sync time: %w", err)
	}

	s.update(func(st *models.SyncStatus) {
		st.PendingCount = pending
		st.FailedCount = failed
		if lastSync != nil {
			st.LastSyncTime = lastSync
		}
	})
	return nil
}

func (s *syncOrchestrator) Close() {
	s.runMu.Lock()
	s.closed = true
	s.runMu.Unlock()
	s.wg.Wait()
}

// pass is one reconciliation: drain the outbox, pull the watched
// collections, stamp the sync time.
func (s *syncOrchestrator) pass(ctx context.Context) error {
	s.update(func(st *models.SyncStatus) {
		st.IsSyncing = true
		st.Error = ""
	})

	session, sessionErr := s.session.SessionID(ctx)
	if sessionErr != nil {
		s.logger.Warn().Err(sessionErr).Str("func", "syncOrchestrator.pass").Msg("no session, pull is skipped")
	}

	err := s.drain(ctx, session)
	if err == nil && sessionErr == nil {
		err = s.pull(ctx, session)
	}

	var lastSync *time.Time
	if err == nil {
		now := s.now()
		if serr := s.metadata.SetTime(ctx, models.MetaLastSync, now); serr != nil {
			err = serr
		} else {
			lastSync = &now
		}
	}

	pending, failed, cerr := s.counts(ctx)
	if err == nil {
		err = cerr
	}

	if err != nil {
		s.logger.Err(err).Str("func", "syncOrchestrator.pass").Msg("sync pass failed")
	}

	s.update(func(st *models.SyncStatus) {
		st.IsSyncing = false
		if cerr == nil {
			st.PendingCount = pending
			st.FailedCount = failed
		}
		if lastSync != nil {
			st.LastSyncTime = lastSync
		}
		if err != nil {
			st.Error = err.Error()
		}
	})

	return err
}

// drain applies the outbox in enqueue order. A record whose item failed,
// is waiting for a retry, or is dead-lettered blocks its later items for
// the rest of the pass; other records continue. Only local storage
// failures abort the drain.
func (s *syncOrchestrator) drain(ctx context.Context, session string) error {
	items, err := s.queue.PeekAll(ctx)
	if err != nil {
		return fmt.Errorf("read sync queue: %w", err)
	}

	now := s.now()
	blocked := make(map[string]struct{})

	for _, item := range items {
		if err = ctx.Err(); err != nil {
			return err
		}

		key := item.Collection + "/" + item.RecordID
		if _, ok := blocked[key]; ok {
			continue
		}
		if item.State == models.QueueStateFailed || item.NextAttemptAt.After(now) {
			blocked[key] = struct{}{}
			continue
		}

		if applyErr := s.apply(ctx, item, session); applyErr != nil {
			blocked[key] = struct{}{}
			if err = s.recordFailure(ctx, item, applyErr); err != nil {
				return err
			}
			continue
		}

		if err = s.queue.Confirm(ctx, item); err != nil {
			if errors.Is(err, store.ErrQueueItemNotFound) {
				if err = s.settleRemoved(ctx, item); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("confirm queue item %s: %w", item.ID, err)
		}
	}

	return nil
}

// settleRemoved handles an item whose queue entry disappeared while it was
// being pushed: the record was removed locally as a never-synced record. The
// push landed, so the remote row is deleted again through the queue.
func (s *syncOrchestrator) settleRemoved(ctx context.Context, item models.SyncQueueItem) error {
	if item.Operation == models.OperationDelete {
		return nil
	}
	if _, err := s.records.Get(ctx, item.Collection, item.RecordID); !errors.Is(err, store.ErrRecordNotFound) {
		return err
	}

	s.logger.Info().
		Str("func", "syncOrchestrator.settleRemoved").
		Str("collection", item.Collection).
		Str("record_id", item.RecordID).
		Msg("record was removed while being pushed, queueing delete")

	_, err := s.queue.Enqueue(ctx, models.SyncQueueItem{
		Collection: item.Collection,
		RecordID:   item.RecordID,
		Operation:  models.OperationDelete,
		EnqueuedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("queue delete of removed record %s: %w", item.RecordID, err)
	}
	return nil
}

// apply sends one queue item to the remote store. Creates and updates are
// both upserts by identity, so a replayed item never duplicates a row.
// Errors that are not retryable remote failures dead-letter the item.
func (s *syncOrchestrator) apply(ctx context.Context, item models.SyncQueueItem, session string) error {
	spec, ok := s.collections.Lookup(item.Collection)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, item.Collection)
	}
	idField := spec.Identity()

	switch item.Operation {
	case models.OperationCreate, models.OperationUpdate:
		row := make(models.Row)
		if len(item.Payload) > 0 {
			if err := json.Unmarshal(item.Payload, &row); err != nil {
				return fmt.Errorf("decode payload: %w", err)
			}
		}
		row[idField] = item.RecordID
		bindSession(row, spec.RelevanceField, session)
		// The remote stamps the delta field itself; a client clock must not
		// decide what later delta pulls see.
		if spec.DeltaField != "" {
			delete(row, spec.DeltaField)
		}

		return s.remote.Upsert(ctx, spec.Table, idField, []models.Row{row})

	case models.OperationDelete:
		return s.remote.DeleteByID(ctx, spec.Table, idField, item.RecordID)
	}

	return fmt.Errorf("unknown operation %q", item.Operation)
}

func (s *syncOrchestrator) recordFailure(ctx context.Context, item models.SyncQueueItem, cause error) error {
	attempt := item.RetryCount + 1
	failed := !adapter.IsRetryable(cause) || attempt >= s.maxRetries
	next := s.now().Add(s.backoff(attempt))

	s.logger.Warn().Err(cause).
		Str("func", "syncOrchestrator.recordFailure").
		Str("collection", item.Collection).
		Str("record_id", item.RecordID).
		Str("operation", string(item.Operation)).
		Int("attempt", attempt).
		Bool("failed", failed).
		Msg("queue item was not applied")

	if err := s.queue.IncrementRetry(ctx, item.ID, cause.Error(), next, failed); err != nil {
		return fmt.Errorf("record retry of queue item %s: %w", item.ID, err)
	}
	return nil
}

// backoff returns the delay before the given attempt: base, 2*base,
// 4*base, ... capped at maxDelay.
func (s *syncOrchestrator) backoff(attempt int) time.Duration {
	b := retry.WithCappedDuration(s.maxDelay, retry.NewExponential(s.baseDelay))

	delay := s.baseDelay
	for i := 0; i < attempt; i++ {
		next, stop := b.Next()
		if stop {
			break
		}
		delay = next
	}
	return delay
}

// pull fetches every locally mirrored collection and merges it. A
// collection with a delta field is fetched incrementally once a watermark
// exists and its last full pull is younger than fullPullEvery; otherwise
// the pull is full and prunes synced records the remote no longer has.
// Remote failures are logged and reported; local failures abort.
func (s *syncOrchestrator) pull(ctx context.Context, session string) error {
	var remoteErrs []error

	for _, c := range s.collections.LocalCollections() {
		if err := ctx.Err(); err != nil {
			return err
		}

		q := models.RemoteQuery{Table: c.Table, OrderBy: c.OrderBy}
		if c.RelevanceField != "" {
			q.FilterField, q.FilterValue = c.RelevanceField, session
		}

		var watermark *time.Time
		full := true
		if c.DeltaField != "" {
			var err error
			watermark, err = s.metadata.GetTime(ctx, models.MetaLastPullPrefix+c.Name)
			if err != nil {
				return fmt.Errorf("read pull watermark of %s: %w", c.Name, err)
			}
			if full, err = s.fullPullDue(ctx, c.Name, watermark); err != nil {
				return err
			}
			if !full {
				q.SinceField, q.Since = c.DeltaField, *watermark
			}
		}
		startedAt := s.now()

		rows, err := s.remote.Select(ctx, q)
		if err != nil {
			s.logger.Err(err).Str("func", "syncOrchestrator.pull").Str("collection", c.Name).Msg("failed to pull collection")
			remoteErrs = append(remoteErrs, fmt.Errorf("pull %s: %w", c.Name, err))
			continue
		}

		records := make([]models.Record, 0, len(rows))
		for _, row := range rows {
			if row.ID(c.Identity()) == "" {
				continue
			}
			record, err := models.RecordFromRow(c.Name, c.Identity(), row)
			if err != nil {
				s.logger.Warn().Err(err).Str("func", "syncOrchestrator.pull").Str("collection", c.Name).Msg("skipping remote row")
				continue
			}
			records = append(records, record)
		}

		stats, err := s.records.ApplyRemote(ctx, c.Name, records, full)
		if err != nil {
			return fmt.Errorf("apply remote %s: %w", c.Name, err)
		}
		s.logger.Debug().
			Str("func", "syncOrchestrator.pull").
			Str("collection", c.Name).
			Bool("full", full).
			Int("inserted", stats.Inserted).
			Int("updated", stats.Updated).
			Int("skipped", stats.Skipped).
			Int("pruned", stats.Pruned).
			Msg("collection pulled")

		if c.DeltaField == "" {
			continue
		}
		if full {
			if err = s.metadata.SetTime(ctx, models.MetaLastFullPullPrefix+c.Name, startedAt); err != nil {
				return fmt.Errorf("store full pull time of %s: %w", c.Name, err)
			}
		}
		if mark := maxTime(rows, c.DeltaField, watermark); mark != nil && (watermark == nil || mark.After(*watermark)) {
			if err = s.metadata.SetTime(ctx, models.MetaLastPullPrefix+c.Name, *mark); err != nil {
				return fmt.Errorf("store pull watermark of %s: %w", c.Name, err)
			}
		}
	}

	return errors.Join(remoteErrs...)
}

// fullPullDue reports whether a delta-pulled collection needs a full pull:
// it has no watermark yet, or its last full pull is fullPullEvery old.
// Only a full pull sees rows deleted on the remote.
func (s *syncOrchestrator) fullPullDue(ctx context.Context, collection string, watermark *time.Time) (bool, error) {
	if watermark == nil {
		return true, nil
	}
	last, err := s.metadata.GetTime(ctx, models.MetaLastFullPullPrefix+collection)
	if err != nil {
		return false, fmt.Errorf("read full pull time of %s: %w", collection, err)
	}
	return last == nil || s.now().Sub(*last) >= s.fullPullEvery, nil
}

func (s *syncOrchestrator) counts(ctx context.Context) (pending, failed int, err error) {
	if pending, err = s.queue.PendingCount(ctx); err != nil {
		return 0, 0, fmt.Errorf("count pending items: %w", err)
	}
	if failed, err = s.queue.FailedCount(ctx); err != nil {
		return 0, 0, fmt.Errorf("count failed items: %w", err)
	}
	return pending, failed, nil
}

// bindSession sets the relevance field to the session id when the row does
// not carry one.
func bindSession(row models.Row, field, session string) {
	if field == "" || session == "" {
		return
	}
	if v, ok := row[field]; ok && v != nil && v != "" {
		return
	}
	row[field] = session
}

// maxTime returns the latest value of field across rows, starting from
// floor. Values may be times or RFC 3339 strings.
func maxTime(rows []models.Row, field string, floor *time.Time) *time.Time {
	var latest *time.Time
	if floor != nil {
		f := *floor
		latest = &f
	}

	for _, row := range rows {
		var t time.Time
		switch v := row[field].(type) {
		case time.Time:
			t = v
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				continue
			}
			t = parsed
		default:
			continue
		}
		if latest == nil || t.After(*latest) {
			t = t.UTC()
			latest = &t
		}
	}
	return latest
}

func copyStatus(st models.SyncStatus) models.SyncStatus {
	if st.LastSyncTime != nil {
		t := *st.LastSyncTime
		st.LastSyncTime = &t
	}
	return st
}
