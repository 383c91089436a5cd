package record

import (
	"context"
	"fmt"

	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/schema"
	"github.com/artpar/recordbase/core/validation"
)

// ParentNotFound is the problem reported for a foreign key whose parent
// record does not exist.
const ParentNotFound = "Parent object not found"

// Validate runs the validation engine on the record data:
//
//  1. integers 1 and 0 become booleans for fields that allow booleans;
//  2. the structural pass checks the data against the rules and fails
//     with every structural problem;
//  3. the custom pass (Hooks.Validate) and the relation-integrity pass
//     run next, and their problems are reported together.
//
// Validation errors are *schema.ValidationError.
func (r *Record) Validate(ctx context.Context) error {
	m := r.model

	r.data = validation.CoerceBooleans(m.Rules, r.data)

	if err := m.manager.validator.Validate(m.Rules, r.data); err != nil {
		m.manager.metrics.ValidationFailed(m.Name, "structural")
		return err
	}

	problems := schema.NewValidationError("")

	if m.hooks.Validate != nil {
		extra, err := m.hooks.Validate(ctx, r)
		if err != nil {
			return err
		}
		for _, field := range sortedProblemKeys(extra) {
			problems.Add(field, extra[field])
		}
	}

	if err := r.checkParents(ctx, problems); err != nil {
		return err
	}

	if !problems.Empty() {
		m.manager.metrics.ValidationFailed(m.Name, "custom")
		return problems
	}
	return nil
}

// checkParents resolves the parent of every parent relation whose foreign key
// is set and records a problem keyed by the foreign key when it is missing.
func (r *Record) checkParents(ctx context.Context, problems *schema.ValidationError) error {
	m := r.model

	for _, name := range m.ParentRelations() {
		rel := m.Relations[name]
		ref := r.data[rel.ForeignKey]
		if isUnsetRef(ref) {
			continue
		}

		target, ok := m.manager.Model(rel.Model)
		if !ok {
			return fmt.Errorf("relation %s.%s: model %q not registered", m.Name, name, rel.Model)
		}

		parent, err := target.Find(ctx, ref)
		if err != nil {
			return err
		}
		if parent == nil {
			problems.Add(rel.ForeignKey, ParentNotFound)
		}
	}
	return nil
}

// isUnsetRef reports whether a foreign key value means "no parent".
func isUnsetRef(v any) bool {
	return v == nil || query.Equal(v, 0)
}

func sortedProblemKeys(m map[string]string) []string {
	data := make(map[string]any, len(m))
	for k := range m {
		data[k] = nil
	}
	return sortedKeys(data)
}
