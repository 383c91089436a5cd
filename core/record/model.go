package record

import (
	"context"

	"github.com/artpar/recordbase/core/convention"
)

// Access modes passed to the access gate. The unset mode is read access.
const (
	ModeRead   = ""
	ModeWrite  = "write"
	ModeDelete = "delete"
)

// Hooks customize a model. Every hook is optional.
type Hooks struct {
	// Validate is the custom validation pass. It returns extra problems
	// keyed by field; an error aborts validation.
	Validate func(ctx context.Context, r *Record) (map[string]string, error)

	// Output is the base public projection. The default holds the identity only.
	Output func(r *Record) map[string]any

	// FormatOutput is the projection used by extended output for a mode.
	// The default is Output.
	FormatOutput func(r *Record, mode string) map[string]any

	// Accessible decides whether actor may access r in mode.
	// The default grants read access only.
	Accessible func(ctx context.Context, r *Record, actor any, mode string) (bool, error)

	// BeforeValidation runs on the staged record before validation.
	BeforeValidation func(ctx context.Context, r *Record) error

	// AfterValidation runs on the staged record after validation and the
	// uniqueness check, right before the write.
	AfterValidation func(ctx context.Context, r *Record) error
}

// Chain returns hooks running h first and then next for the before and after
// validation hooks. For every other hook, next wins when set.
func (h Hooks) Chain(next Hooks) Hooks {
	out := h
	if next.Validate != nil {
		out.Validate = next.Validate
	}
	if next.Output != nil {
		out.Output = next.Output
	}
	if next.FormatOutput != nil {
		out.FormatOutput = next.FormatOutput
	}
	if next.Accessible != nil {
		out.Accessible = next.Accessible
	}
	out.BeforeValidation = chainStep(h.BeforeValidation, next.BeforeValidation)
	out.AfterValidation = chainStep(h.AfterValidation, next.AfterValidation)
	return out
}

func chainStep(a, b func(context.Context, *Record) error) func(context.Context, *Record) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, r *Record) error {
		if err := a(ctx, r); err != nil {
			return err
		}
		return b(ctx, r)
	}
}

// Model is a registered record model.
type Model struct {
	convention.Derived

	hooks   Hooks
	manager *Manager
}

// Hooks returns the model's hooks.
func (m *Model) Hooks() Hooks {
	return m.hooks
}

// New instantiates an unpersisted record holding a copy of data.
// data is not filtered or validated until the record is saved.
func (m *Model) New(data map[string]any) *Record {
	return newRecord(m, copyData(data), false)
}

// checkField applies the restriction policy to one field for op. ok is false
// for unknown fields the model tolerates; the caller skips them.
func (m *Model) checkField(op convention.Operation, field string) (ok bool, err error) {
	switch m.Policy.Check(op, field) {
	case convention.Unknown:
		if m.IgnoreExtraFields {
			return false, nil
		}
		return false, fieldError(ErrUnknownField, m.Name, field, op)
	case convention.Restricted:
		return false, fieldError(ErrRestrictedField, m.Name, field, op)
	default:
		return true, nil
	}
}

// filter returns the subset of data allowed for op.
// The unknown check runs before the restricted check for every key.
func (m *Model) filter(op convention.Operation, data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for _, field := range sortedKeys(data) {
		ok, err := m.checkField(op, field)
		if err != nil {
			return nil, err
		}
		if ok {
			out[field] = data[field]
		}
	}
	return out, nil
}
