package record

import (
	"sort"
	"sync"

	"github.com/artpar/recordbase/core/storage"
)

// Record is an instance of a model: a data map plus lazily loaded relations.
// A Record is owned by one goroutine at a time; its relation cache is
// guarded for the concurrent renderer.
type Record struct {
	model     *Model
	data      map[string]any
	persisted bool

	mu        sync.Mutex
	relations map[string]Related
}

func newRecord(m *Model, data map[string]any, persisted bool) *Record {
	return &Record{
		model:     m,
		data:      data,
		persisted: persisted,
		relations: make(map[string]Related),
	}
}

// Model returns the record's model.
func (r *Record) Model() *Model {
	return r.model
}

// ID returns the identity value, or nil before the first save.
func (r *Record) ID() any {
	return r.data[r.model.Identity]
}

// IntID returns the identity as int64.
func (r *Record) IntID() (int64, bool) {
	return storage.ID(r.ID())
}

// Persisted reports whether the record was loaded from or written to storage.
func (r *Record) Persisted() bool {
	return r.persisted
}

// Get returns a field value.
func (r *Record) Get(field string) any {
	return r.data[field]
}

// Set sets a field value without any checks. Hooks use it on staged records.
func (r *Record) Set(field string, value any) {
	r.data[field] = value
}

// Data returns a copy of the record data.
func (r *Record) Data() map[string]any {
	return copyData(r.data)
}

// clone copies data and the relation cache into an unlinked record.
func (r *Record) clone() *Record {
	c := newRecord(r.model, copyData(r.data), r.persisted)
	r.mu.Lock()
	for k, v := range r.relations {
		c.relations[k] = v
	}
	r.mu.Unlock()
	return c
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func sortedKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
