package record

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/artpar/recordbase/adapters/clock"
	"github.com/artpar/recordbase/core/events"
	"github.com/artpar/recordbase/core/schema"
	"github.com/artpar/recordbase/core/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testModelDef mirrors the canonical test model: a self-referencing model
// with a lookup-restricted field and a unique username.
func testModelDef() schema.Definition {
	str := schema.Types{schema.TypeString}
	return schema.Definition{
		Name: "TestModel",
		Rules: schema.Rules{
			"username":         {Type: str},
			"uuid":             {Type: str, Min: schema.Bound(40), Max: schema.Bound(40)},
			"restricted_field": {Type: str},
			"active":           {Type: schema.Types{schema.TypeBoolean}},
			"parent_id":        {Type: schema.Types{schema.TypeInteger, schema.TypeNull}},
			"created_at":       {Type: str},
			"updated_at":       {Type: str},
		},
		Restricted: schema.Restrictions{
			Lookup: []string{"restricted_field"},
			Output: []string{"secret_parent"},
		},
		UniqueKeys: [][]string{{"username"}},
		Relations: map[string]schema.RelationDef{
			"child_test":    {Kind: schema.RelationParent, Model: "TestModel", ForeignKey: "parent_id"},
			"secret_parent": {Kind: schema.RelationParent, Model: "TestModel", ForeignKey: "parent_id"},
			"children":      {Kind: schema.RelationList, Model: "TestModel", ForeignKey: "parent_id"},
			"first_child":   {Kind: schema.RelationChild, Model: "TestModel", ForeignKey: "parent_id"},
		},
	}
}

func testOutput(r *Record) map[string]any {
	return map[string]any{
		"id":             r.ID(),
		"username":       r.Get("username"),
		"uuid":           r.Get("uuid"),
		"constant_value": "QWERTY",
	}
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (m *recordingMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *recordingMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *recordingMetrics) ValidationFailed(model, pass string) { m.inc("validation:" + model + ":" + pass) }
func (m *recordingMetrics) RecordSaved(model, op string)        { m.inc("saved:" + model + ":" + op) }
func (m *recordingMetrics) UniquenessViolated(model string)     { m.inc("unique:" + model) }
func (m *recordingMetrics) AccessDenied(model, mode string)     { m.inc("denied:" + model + ":" + mode) }

type env struct {
	ctx     context.Context
	manager *Manager
	store   storage.Store
	metrics *recordingMetrics
	clock   *clock.Fake
	bus     *events.Bus
	logs    *bytes.Buffer
}

type envOption func(*schema.Definition, *Hooks, *envConfig)

type envConfig struct {
	store storage.Store
}

func withHooks(h Hooks) envOption {
	return func(_ *schema.Definition, hooks *Hooks, _ *envConfig) { *hooks = h }
}

func withDef(fn func(*schema.Definition)) envOption {
	return func(def *schema.Definition, _ *Hooks, _ *envConfig) { fn(def) }
}

func withStore(s storage.Store) envOption {
	return func(_ *schema.Definition, _ *Hooks, cfg *envConfig) { cfg.store = s }
}

// newEnv registers the test model on an in-memory store.
func newEnv(t *testing.T, opts ...envOption) (*env, *Model) {
	t.Helper()

	def := testModelDef()
	hooks := Hooks{Output: testOutput}
	cfg := envConfig{store: storage.NewMemoryStore()}
	for _, opt := range opts {
		opt(&def, &hooks, &cfg)
	}

	logs := &bytes.Buffer{}
	e := &env{
		ctx:     context.Background(),
		store:   cfg.store,
		metrics: newRecordingMetrics(),
		clock:   clock.NewFake(testNow),
		logs:    logs,
	}
	logger := zerolog.New(logs)
	e.bus = events.NewBus(logger)
	e.manager = NewManager(Deps{
		Store:   e.store,
		Clock:   e.clock,
		Metrics: e.metrics,
		Events:  e.bus,
		Logger:  logger,
	})

	model, err := e.manager.Register(e.ctx, def, hooks)
	require.NoError(t, err)
	require.NoError(t, e.manager.Check())
	return e, model
}

func uuidOf(c byte) string {
	return string(bytes.Repeat([]byte{c}, 40))
}

// noTxStore hides the transaction support of the wrapped store.
type noTxStore struct {
	storage.Store
}
