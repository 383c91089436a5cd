// Package registry manages model registration and conflict detection.
// It ensures models don't claim conflicting names or tables and that
// relations point at registered models.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/recordbase/core/convention"
	"github.com/artpar/recordbase/core/schema"
)

// Registry holds the derived form of every registered model.
type Registry struct {
	mu sync.RWMutex

	// models by name
	models map[string]convention.Derived

	// tables to models
	tables map[string]string
}

// New creates a new registry.
func New() *Registry {
	return &Registry{
		models: make(map[string]convention.Derived),
		tables: make(map[string]string),
	}
}

// Register derives and registers a model definition.
// Returns an error if the name or table is already taken.
func (r *Registry) Register(def schema.Definition) (convention.Derived, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[def.Name]; exists {
		return convention.Derived{}, fmt.Errorf("model %q already registered", def.Name)
	}

	derived := convention.Derive(def)

	if existing, exists := r.tables[derived.Table]; exists {
		return convention.Derived{}, fmt.Errorf("table %q already claimed by model %q", derived.Table, existing)
	}

	r.models[derived.Name] = derived
	r.tables[derived.Table] = derived.Name

	return derived, nil
}

// Unregister removes a model from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	derived, exists := r.models[name]
	if !exists {
		return fmt.Errorf("model %q not registered", name)
	}

	delete(r.tables, derived.Table)
	delete(r.models, name)

	return nil
}

// Get returns a registered model by name.
func (r *Registry) Get(name string) (convention.Derived, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.models[name]
	return mod, ok
}

// ByTable returns the model stored in table.
func (r *Registry) ByTable(table string) (convention.Derived, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.tables[table]
	if !ok {
		return convention.Derived{}, false
	}
	return r.models[name], true
}

// List returns all registered models sorted by name.
func (r *Registry) List() []convention.Derived {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]convention.Derived, 0, len(r.models))
	for _, mod := range r.models {
		models = append(models, mod)
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].Name < models[j].Name
	})

	return models
}

// Check verifies every relation of every registered model: the target model
// must be registered, and for child and list relations the foreign key must
// be a field of the target. Call it after all models are registered.
func (r *Registry) Check() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []Problem

	for _, mod := range r.sortedModels() {
		for _, name := range relationNames(mod) {
			rel := mod.Relations[name]
			target, ok := r.models[rel.Model]
			if !ok {
				problems = append(problems, Problem{
					Model:    mod.Name,
					Relation: name,
					Message:  fmt.Sprintf("target model %q not registered", rel.Model),
				})
				continue
			}
			if rel.Kind != schema.RelationParent && !target.Rules.Has(rel.ForeignKey) {
				problems = append(problems, Problem{
					Model:    mod.Name,
					Relation: name,
					Message:  fmt.Sprintf("foreign key %q not in rules of %q", rel.ForeignKey, rel.Model),
				})
			}
		}
	}

	if len(problems) > 0 {
		return &ConflictError{Problems: problems}
	}
	return nil
}

func (r *Registry) sortedModels() []convention.Derived {
	models := make([]convention.Derived, 0, len(r.models))
	for _, mod := range r.models {
		models = append(models, mod)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Name < models[j].Name
	})
	return models
}

func relationNames(mod convention.Derived) []string {
	names := make([]string, 0, len(mod.Relations))
	for name := range mod.Relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Problem is one broken relation declaration.
type Problem struct {
	Model    string
	Relation string
	Message  string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s.%s: %s", p.Model, p.Relation, p.Message)
}

// ConflictError represents one or more broken relation declarations.
type ConflictError struct {
	Problems []Problem
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	var msgs []string
	for _, p := range e.Problems {
		msgs = append(msgs, p.String())
	}
	return fmt.Sprintf("relation conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasConflicts returns true if there are any conflicts.
func (e *ConflictError) HasConflicts() bool {
	return len(e.Problems) > 0
}
