package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/artpar/recordbase/core/convention"
	"github.com/artpar/recordbase/core/query"
)

// MemoryStore implements Store in memory. Queries are executed with
// query.Matches. It is intended for tests and embedded use.
type MemoryStore struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	models map[string]convention.Derived
	tables map[string]string
	rows   map[string]map[int64]map[string]any // model -> id -> row
	nextID map[string]int64
	active *memTx
}

type memTxKey struct{}

// memTx is the undo log of one transaction: the before-image of every row
// it wrote (nil when the row did not exist) and the id counters it moved.
type memTx struct {
	rows   map[string]map[int64]map[string]any
	nextID map[string]int64
}

// touch records the before-image of model #id once. Callers hold s.mu.
func (t *memTx) touch(s *MemoryStore, model string, id int64) {
	byID, ok := t.rows[model]
	if !ok {
		byID = make(map[int64]map[string]any)
		t.rows[model] = byID
	}
	if _, seen := byID[id]; !seen {
		var before map[string]any
		if row, ok := s.rows[model][id]; ok {
			before = copyRow(row)
		}
		byID[id] = before
	}
}

// counter records the id counter of model once. Callers hold s.mu.
func (t *memTx) counter(s *MemoryStore, model string) {
	if _, seen := t.nextID[model]; !seen {
		t.nextID[model] = s.nextID[model]
	}
}

// rollback restores the rows the transaction wrote. Rows written outside
// it are left alone. Callers hold s.mu.
func (t *memTx) rollback(s *MemoryStore) {
	for model, byID := range t.rows {
		table := s.rows[model]
		for id, before := range byID {
			if before == nil {
				delete(table, id)
			} else {
				table[id] = before
			}
		}
	}
	for model, next := range t.nextID {
		s.nextID[model] = next
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		models: make(map[string]convention.Derived),
		tables: make(map[string]string),
		rows:   make(map[string]map[int64]map[string]any),
		nextID: make(map[string]int64),
	}
}

// Register adds a model. Registering twice keeps existing rows.
func (s *MemoryStore) Register(ctx context.Context, mod convention.Derived) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.models[mod.Name] = mod
	s.tables[mod.Table] = mod.Name
	if _, ok := s.rows[mod.Name]; !ok {
		s.rows[mod.Name] = make(map[int64]map[string]any)
	}
	return nil
}

// InTx serializes fn against other transactions. When fn fails, the rows
// written through its context are restored; writes made outside the
// transaction stay.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txOf(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{
		rows:   make(map[string]map[int64]map[string]any),
		nextID: make(map[string]int64),
	}
	s.mu.Lock()
	s.active = tx
	s.mu.Unlock()

	err := fn(context.WithValue(ctx, memTxKey{}, tx))

	s.mu.Lock()
	if err != nil {
		tx.rollback(s)
	}
	s.active = nil
	s.mu.Unlock()
	return err
}

// txOf returns the open transaction ctx belongs to, if any.
func (s *MemoryStore) txOf(ctx context.Context) *memTx {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTx(ctx)
}

// activeTx is txOf for callers already holding s.mu.
func (s *MemoryStore) activeTx(ctx context.Context) *memTx {
	if tx, _ := ctx.Value(memTxKey{}).(*memTx); tx != nil && tx == s.active {
		return tx
	}
	return nil
}

// logWrite records the before-image of model #id when ctx is inside the
// open transaction. Callers hold s.mu.
func (s *MemoryStore) logWrite(ctx context.Context, model string, id int64) {
	if tx := s.activeTx(ctx); tx != nil {
		tx.touch(s, model, id)
	}
}

// Find returns a copy of the row with the given identity, or nil.
func (s *MemoryStore) Find(ctx context.Context, model string, id int64) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.rows[model]
	if !ok {
		return nil, fmt.Errorf("model %q not registered", model)
	}
	row, ok := table[id]
	if !ok {
		return nil, nil
	}
	return copyRow(row), nil
}

// Select returns copies of the matching rows in identity order.
func (s *MemoryStore) Select(ctx context.Context, q query.Query) ([]map[string]any, error) {
	if q.Kind != query.KindSelect {
		return nil, fmt.Errorf("select: query kind is %s", q.Kind)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	mod, table, err := s.table(q.Table)
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for _, row := range table {
		if q.Matches(row) {
			out = append(out, copyRow(row))
		}
	}
	sortByID(out, mod.Identity)
	return out, nil
}

// Delete removes the matching rows.
func (s *MemoryStore) Delete(ctx context.Context, q query.Query) (int64, error) {
	if q.Kind != query.KindDelete {
		return 0, fmt.Errorf("delete: query kind is %s", q.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mod, table, err := s.table(q.Table)
	if err != nil {
		return 0, err
	}

	var n int64
	for id, row := range table {
		if q.Matches(row) {
			s.logWrite(ctx, mod.Name, id)
			delete(table, id)
			n++
		}
	}
	return n, nil
}

// Insert stores a copy of data.
func (s *MemoryStore) Insert(ctx context.Context, model string, data map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mod, ok := s.models[model]
	if !ok {
		return 0, fmt.Errorf("model %q not registered", model)
	}
	table := s.rows[model]

	id, ok := ID(data[mod.Identity])
	if !ok {
		if tx := s.activeTx(ctx); tx != nil {
			tx.counter(s, model)
		}
		s.nextID[model]++
		id = s.nextID[model]
		for table[id] != nil {
			s.nextID[model]++
			id = s.nextID[model]
		}
	} else if table[id] != nil {
		return 0, fmt.Errorf("insert: %s #%d already exists", model, id)
	}

	s.logWrite(ctx, model, id)
	row := copyRow(data)
	row[mod.Identity] = id
	table[id] = row
	return id, nil
}

// Update merges data into the row with the given identity.
func (s *MemoryStore) Update(ctx context.Context, model string, id int64, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mod, ok := s.models[model]
	if !ok {
		return fmt.Errorf("model %q not registered", model)
	}
	row, ok := s.rows[model][id]
	if !ok {
		return fmt.Errorf("%s #%d: %w", model, id, ErrNotFound)
	}

	s.logWrite(ctx, model, id)
	for k, v := range data {
		if k == mod.Identity {
			continue
		}
		row[k] = v
	}
	return nil
}

// HealthCheck always succeeds.
func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) table(name string) (convention.Derived, map[int64]map[string]any, error) {
	model, ok := s.tables[name]
	if !ok {
		return convention.Derived{}, nil, fmt.Errorf("table %q not registered", name)
	}
	return s.models[model], s.rows[model], nil
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
