package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

// Op names a [RemoteStore] operation, used by [MemoryRemote] failure
// injection and call recording.
type Op string

const (
	OpSelect      Op = "select"
	OpUpsert      Op = "upsert"
	OpInsert      Op = "insert"
	OpDeleteByID  Op = "delete_by_id"
	OpDeleteWhere Op = "delete_where"
	OpPing        Op = "ping"
)

// Call is one recorded invocation of a [MemoryRemote].
type Call struct {
	Op    Op
	Table string
	Rows  int
}

// FailureFunc decides whether an operation fails. A nil return lets the
// operation proceed; a non-nil error is returned as is, so it should be
// built with [Retryable] or [NonRetryable].
type FailureFunc func(op Op, table string, rows []models.Row) error

// MemoryRemote is an in-process [RemoteStore]. It backs the "memory" driver
// (offline demos, local-only use) and the service tests.
type MemoryRemote struct {
	mu      sync.Mutex
	tables  map[string]*memoryTable
	offline bool
	failure FailureFunc
	calls   []Call
}

type memoryTable struct {
	idField string
	rows    map[string]models.Row
	order   []string
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{tables: make(map[string]*memoryTable)}
}

// Retryable wraps err as a retryable remote failure.
func Retryable(err error) error {
	return retryable("injected", err)
}

// NonRetryable wraps err as a permanent remote failure.
func NonRetryable(err error) error {
	return nonRetryable("injected", err)
}

// SetOffline makes every operation fail with a retryable
// [ErrUnavailable] until switched back.
func (m *MemoryRemote) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// FailWith installs fn as the failure injector; nil removes it.
func (m *MemoryRemote) FailWith(fn FailureFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = fn
}

// Seed stores rows without recording calls or consulting the injector.
func (m *MemoryRemote) Seed(table, idField string, rows ...models.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(table, idField)
	for _, row := range rows {
		t.put(row.Clone())
	}
}

// Rows returns a copy of the table content in insertion order.
func (m *MemoryRemote) Rows(table string) []models.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[table]
	if !ok {
		return []models.Row{}
	}
	out := make([]models.Row, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id].Clone())
	}
	return out
}

// Calls returns the recorded calls.
func (m *MemoryRemote) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *MemoryRemote) Select(ctx context.Context, q models.RemoteQuery) ([]models.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx, OpSelect, q.Table, nil); err != nil {
		return nil, err
	}

	out := make([]models.Row, 0)
	t, ok := m.tables[q.Table]
	if !ok {
		return out, nil
	}

	for _, id := range t.order {
		row := t.rows[id]
		if q.FilterField != "" && fmt.Sprint(row[q.FilterField]) != q.FilterValue {
			continue
		}
		if q.SinceField != "" && !q.Since.IsZero() && !after(row[q.SinceField], q.Since) {
			continue
		}
		out = append(out, row.Clone())
	}

	if q.OrderBy != "" {
		sortRows(out, q.OrderBy)
	}

	return out, nil
}

func (m *MemoryRemote) Upsert(ctx context.Context, table, idField string, rows []models.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx, OpUpsert, table, rows); err != nil {
		return err
	}
	if idField == "" {
		idField = models.DefaultIDField
	}
	for _, row := range rows {
		if row.ID(idField) == "" {
			return nonRetryable("upsert "+table, fmt.Errorf("%w: %s", ErrMissingID, table))
		}
	}

	t := m.table(table, idField)
	for _, row := range rows {
		id := row.ID(idField)
		merged := row.Clone()
		if existing, ok := t.rows[id]; ok {
			merged = existing.Clone()
			for k, v := range row {
				merged[k] = v
			}
		}
		t.put(merged)
	}
	return nil
}

func (m *MemoryRemote) Insert(ctx context.Context, table string, rows []models.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx, OpInsert, table, rows); err != nil {
		return err
	}

	t := m.table(table, "")
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		id := row.ID(t.idField)
		if id == "" {
			return nonRetryable("insert "+table, fmt.Errorf("%w: %s", ErrMissingID, table))
		}
		if _, dup := t.rows[id]; dup {
			return nonRetryable("insert "+table, fmt.Errorf("%w: %s/%s", ErrDuplicateID, table, id))
		}
		if _, dup := seen[id]; dup {
			return nonRetryable("insert "+table, fmt.Errorf("%w: %s/%s", ErrDuplicateID, table, id))
		}
		seen[id] = struct{}{}
	}

	for _, row := range rows {
		t.put(row.Clone())
	}
	return nil
}

func (m *MemoryRemote) DeleteByID(ctx context.Context, table, idField, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx, OpDeleteByID, table, nil); err != nil {
		return err
	}

	if t, ok := m.tables[table]; ok {
		t.remove(func(row models.Row) bool { return row.ID(idField) == id })
	}
	return nil
}

func (m *MemoryRemote) DeleteWhere(ctx context.Context, table, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx, OpDeleteWhere, table, nil); err != nil {
		return err
	}
	if field == "" {
		return nonRetryable("delete "+table, fmt.Errorf("%w: empty field", ErrInvalidQuery))
	}

	if t, ok := m.tables[table]; ok {
		t.remove(func(row models.Row) bool { return fmt.Sprint(row[field]) == value })
	}
	return nil
}

func (m *MemoryRemote) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check(ctx, OpPing, "", nil)
}

func (m *MemoryRemote) Close() error {
	return nil
}

// check records the call and applies offline mode and the injector.
// Callers hold m.mu.
func (m *MemoryRemote) check(ctx context.Context, op Op, table string, rows []models.Row) error {
	m.calls = append(m.calls, Call{Op: op, Table: table, Rows: len(rows)})

	if err := ctx.Err(); err != nil {
		return retryable(string(op)+" "+table, err)
	}
	if m.offline {
		return retryable(string(op)+" "+table, ErrUnavailable)
	}
	if m.failure != nil {
		return m.failure(op, table, rows)
	}
	return nil
}

func (m *MemoryRemote) table(name, idField string) *memoryTable {
	t, ok := m.tables[name]
	if !ok {
		if idField == "" {
			idField = models.DefaultIDField
		}
		t = &memoryTable{idField: idField, rows: make(map[string]models.Row)}
		m.tables[name] = t
	}
	return t
}

func (t *memoryTable) put(row models.Row) {
	id := row.ID(t.idField)
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

func (t *memoryTable) remove(match func(models.Row) bool) {
	kept := t.order[:0]
	for _, id := range t.order {
		if match(t.rows[id]) {
			delete(t.rows, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

// after reports whether v, a time or an RFC 3339 string, is strictly after
// since.
func after(v any, since time.Time) bool {
	switch t := v.(type) {
	case time.Time:
		return t.After(since)
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return err == nil && parsed.After(since)
	}
	return false
}

// Tables returns the names of the tables holding data, sorted.
func (m *MemoryRemote) Tables() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tables))
	for n := range m.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
