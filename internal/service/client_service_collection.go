package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

// Entity is a domain type stored as a record of a collection.
type Entity[T any] interface {
	*T
	GetID() string
	SetID(id string)
	Touch(now time.Time)
}

// CollectionState is the view of one collection handed to presentation
// code.
type CollectionState[T any] struct {
	Items           []T
	IsLoading       bool
	IsOnline        bool
	Err             error
	HasLocalChanges bool
}

// Collection binds a typed view of one local collection to the sync
// orchestrator. Mutations return once the local write is done; the remote
// write happens in a background pass.
type Collection[T any, P Entity[T]] struct {
	name    string
	records store.RecordRepository
	sync    SyncOrchestrator
	ids     utils.IDGenerator
	now     func() time.Time
	logger  *logger.Logger

	mu          sync.Mutex
	state       CollectionState[T]
	wasSyncing  bool
	unsubscribe func()
}

// NewCollection creates the typed view of collection name and subscribes
// it to orchestrator status: connectivity is mirrored and the items are
// reloaded after each pass.
func NewCollection[T any, P Entity[T]](name string, records store.RecordRepository, orchestrator SyncOrchestrator, log *logger.Logger) *Collection[T, P] {
	c := &Collection[T, P]{
		name:    name,
		records: records,
		sync:    orchestrator,
		ids:     utils.NewUUIDGenerator(),
		now:     func() time.Time { return time.Now().UTC() },
		logger:  log,
	}
	c.unsubscribe = orchestrator.Subscribe(c.onStatus)
	return c
}

func (c *Collection[T, P]) onStatus(st models.SyncStatus) {
	c.mu.Lock()
	c.state.IsOnline = st.IsOnline
	finished := c.wasSyncing && !st.IsSyncing
	c.wasSyncing = st.IsSyncing
	c.mu.Unlock()

	if finished {
		if err := c.Refresh(context.Background()); err != nil {
			c.logger.Err(err).Str("func", "Collection.onStatus").Str("collection", c.name).Msg("failed to reload collection after sync")
		}
	}
}

// State returns a copy of the current state.
func (c *Collection[T, P]) State() CollectionState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	st.Items = append([]T(nil), c.state.Items...)
	return st
}

// Refresh reloads the items from the local store. Records that cannot be
// decoded are skipped and reported through Err.
func (c *Collection[T, P]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.state.IsLoading = true
	c.mu.Unlock()

	records, err := c.records.GetAll(ctx, c.name, nil)
	if err != nil {
		c.mu.Lock()
		c.state.IsLoading = false
		c.state.Err = err
		c.mu.Unlock()
		return fmt.Errorf("load %s: %w", c.name, err)
	}

	items := make([]T, 0, len(records))
	hasLocal := false
	var decodeErrs []error
	for _, record := range records {
		if !record.Synced {
			hasLocal = true
		}
		var item T
		if err = json.Unmarshal(record.Data, &item); err != nil {
			decodeErrs = append(decodeErrs, fmt.Errorf("decode %s/%s: %w", c.name, record.ID, err))
			continue
		}
		if P(&item).GetID() == "" {
			P(&item).SetID(record.ID)
		}
		items = append(items, item)
	}

	c.mu.Lock()
	c.state.Items = items
	c.state.IsLoading = false
	c.state.HasLocalChanges = hasLocal
	c.state.Err = errors.Join(decodeErrs...)
	c.mu.Unlock()

	return nil
}

// Add stores a new item and returns it with its identity and timestamps
// set.
func (c *Collection[T, P]) Add(ctx context.Context, item T) (T, error) {
	if P(&item).GetID() == "" {
		P(&item).SetID(c.ids.Generate())
	}
	if err := c.put(ctx, &item); err != nil {
		return item, err
	}
	return item, nil
}

// Update replaces the stored item with the same identity.
func (c *Collection[T, P]) Update(ctx context.Context, item T) (T, error) {
	id := P(&item).GetID()
	if id == "" {
		return item, fmt.Errorf("%w: update without id", store.ErrInvalidRecord)
	}
	if _, err := c.records.Get(ctx, c.name, id); err != nil {
		return item, err
	}
	if err := c.put(ctx, &item); err != nil {
		return item, err
	}
	return item, nil
}

// Delete removes the item; the remote delete is queued.
func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	if err := c.records.Remove(ctx, c.name, id); err != nil {
		return err
	}
	return c.afterWrite(ctx)
}

// Close detaches the collection from the orchestrator.
func (c *Collection[T, P]) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Collection[T, P]) put(ctx context.Context, item *T) error {
	P(item).Touch(c.now())

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}

	if _, err = c.records.Put(ctx, c.name, models.Record{ID: P(item).GetID(), Data: data}); err != nil {
		return err
	}
	return c.afterWrite(ctx)
}

func (c *Collection[T, P]) afterWrite(ctx context.Context) error {
	c.sync.RequestSync()
	return c.Refresh(ctx)
}
