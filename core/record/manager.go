// Package record implements persisted records on top of a declarative model
// schema: lookups, create and update through a validated pre-save sequence,
// uniqueness checks, the access gate and relation-aware extended output.
package record

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/recordbase/core/events"
	"github.com/artpar/recordbase/core/registry"
	"github.com/artpar/recordbase/core/schema"
	"github.com/artpar/recordbase/core/storage"
	"github.com/artpar/recordbase/core/validation"
	"github.com/artpar/recordbase/ports"
)

// Deps contains dependencies for Manager.
// Store is required; everything else has a working default.
type Deps struct {
	Store     storage.Store
	Validator *validation.Validator
	Clock     ports.Clock
	Metrics   ports.Metrics
	Events    ports.EventPublisher
	Logger    zerolog.Logger
}

// Manager owns the registered models and the collaborators they share.
type Manager struct {
	store     storage.Store
	validator *validation.Validator
	clock     ports.Clock
	metrics   ports.Metrics
	events    ports.EventPublisher
	logger    zerolog.Logger

	registry *registry.Registry

	mu     sync.RWMutex
	models map[string]*Model

	noTxOnce sync.Once
}

// NewManager creates a manager.
func NewManager(deps Deps) *Manager {
	m := &Manager{
		store:     deps.Store,
		validator: deps.Validator,
		clock:     deps.Clock,
		metrics:   deps.Metrics,
		events:    deps.Events,
		logger:    deps.Logger,
		registry:  registry.New(),
		models:    make(map[string]*Model),
	}
	if m.validator == nil {
		m.validator = validation.New()
	}
	if m.clock == nil {
		m.clock = systemClock{}
	}
	if m.metrics == nil {
		m.metrics = nopMetrics{}
	}
	return m
}

// Register derives a model from def, prepares its storage and makes it
// available by name. Relation targets are checked by Check.
func (m *Manager) Register(ctx context.Context, def schema.Definition, hooks Hooks) (*Model, error) {
	derived, err := m.registry.Register(def)
	if err != nil {
		return nil, err
	}

	if err := m.store.Register(ctx, derived); err != nil {
		m.registry.Unregister(derived.Name)
		return nil, fmt.Errorf("register %s: %w", derived.Name, err)
	}

	model := &Model{
		Derived: derived,
		hooks:   hooks,
		manager: m,
	}

	m.mu.Lock()
	m.models[derived.Name] = model
	m.mu.Unlock()

	m.logger.Debug().
		Str("model", derived.Name).
		Str("table", derived.Table).
		Int("fields", len(derived.Rules)).
		Int("relations", len(derived.Relations)).
		Msg("model registered")

	return model, nil
}

// Check verifies that every declared relation points at a registered model.
func (m *Manager) Check() error {
	return m.registry.Check()
}

// Model returns a registered model by name.
func (m *Manager) Model(name string) (*Model, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	model, ok := m.models[name]
	return model, ok
}

// Models returns all registered models sorted by name.
func (m *Manager) Models() []*Model {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Model, 0, len(m.models))
	for _, model := range m.models {
		out = append(out, model)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Store returns the store records are persisted in.
func (m *Manager) Store() storage.Store {
	return m.store
}

// inTx runs fn in a store transaction when the store supports them.
// Otherwise fn runs directly and the missing isolation is logged once.
func (m *Manager) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := m.store.(storage.Transactor); ok {
		return tx.InTx(ctx, fn)
	}
	m.noTxOnce.Do(func() {
		m.logger.Warn().
			Str("store", fmt.Sprintf("%T", m.store)).
			Msg("store has no transactions; uniqueness checks can race with concurrent writes")
	})
	return fn(ctx)
}

func (m *Manager) publish(ctx context.Context, model, action string, id any, data map[string]any) {
	if m.events == nil {
		return
	}
	m.events.Publish(ctx, events.NewEvent(model, action, id, data, m.clock.Now()))
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type nopMetrics struct{}

func (nopMetrics) ValidationFailed(string, string) {}
func (nopMetrics) RecordSaved(string, string)      {}
func (nopMetrics) UniquenessViolated(string)       {}
func (nopMetrics) AccessDenied(string, string)     {}
