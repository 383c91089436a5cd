package record

import (
	"errors"
	"fmt"

	"github.com/artpar/recordbase/core/convention"
)

// Sentinel errors. Field and gate failures wrap one of them; test with errors.Is.
var (
	ErrUnknownField       = errors.New("unknown field")
	ErrRestrictedField    = errors.New("restricted field")
	ErrUnknownRelation    = errors.New("unknown relation")
	ErrRestrictedRelation = errors.New("restricted relation")
	ErrNotFound           = errors.New("not found")
	ErrNotAccessible      = errors.New("not accessible")
	ErrNotPersisted       = errors.New("record is not persisted")
)

// FieldError reports a field or relation that may not be used for an operation.
type FieldError struct {
	Kind  error
	Model string
	Field string
	Op    convention.Operation
}

func (e *FieldError) Error() string {
	switch e.Kind {
	case ErrUnknownField:
		return fmt.Sprintf("Field %q is not described for model %s", e.Field, e.Model)
	case ErrRestrictedField:
		return fmt.Sprintf("Field %q is restricted for %s on model %s", e.Field, e.Op, e.Model)
	case ErrUnknownRelation:
		return fmt.Sprintf("Relation %q is not described for model %s", e.Field, e.Model)
	case ErrRestrictedRelation:
		return fmt.Sprintf("Relation %q is restricted for output on model %s", e.Field, e.Model)
	default:
		return fmt.Sprintf("Field %q of model %s: %v", e.Field, e.Model, e.Kind)
	}
}

func (e *FieldError) Unwrap() error { return e.Kind }

// GateError reports a record that could not be loaded or is denied to the actor.
type GateError struct {
	Kind  error
	Model string
	ID    any
	Mode  string
}

func (e *GateError) Error() string {
	if e.Kind == ErrNotAccessible {
		return fmt.Sprintf("%s #%v is not accessible for %s by the user", e.Model, e.ID, modeVerb(e.Mode))
	}
	return fmt.Sprintf("%s #%v not found", e.Model, e.ID)
}

func (e *GateError) Unwrap() error { return e.Kind }

// modeVerb names an access mode in messages. The unset mode is read access.
func modeVerb(mode string) string {
	switch mode {
	case ModeRead:
		return "reading"
	case ModeWrite:
		return "writing"
	case ModeDelete:
		return "deleting"
	default:
		return mode
	}
}

func fieldError(kind error, model, field string, op convention.Operation) error {
	return &FieldError{Kind: kind, Model: model, Field: field, Op: op}
}
