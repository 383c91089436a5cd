package schema

import (
	"sort"
	"strings"
)

// DefaultValidationMessage is the top-level message of a ValidationError.
const DefaultValidationMessage = "Validation failed"

// ValidationError aggregates field-keyed problems found while validating data.
// Info maps a field or relation name to a human-readable problem description.
type ValidationError struct {
	Message string
	Info    map[string]string
}

// NewValidationError creates an empty ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	if message == "" {
		message = DefaultValidationMessage
	}
	return &ValidationError{
		Message: message,
		Info:    make(map[string]string),
	}
}

// Add records a problem for field. A second problem for the same field is
// appended to the first one.
func (e *ValidationError) Add(field, problem string) {
	if e.Info == nil {
		e.Info = make(map[string]string)
	}
	if prev, ok := e.Info[field]; ok && prev != problem {
		e.Info[field] = prev + "; " + problem
		return
	}
	e.Info[field] = problem
}

// Merge copies every problem of other into e.
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for _, field := range other.Fields() {
		e.Add(field, other.Info[field])
	}
}

// Empty reports whether no problem was recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Info) == 0
}

// Fields returns the names of the fields with problems, sorted.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Info))
	for f := range e.Info {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// OrNil returns e when it holds problems, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Error returns the message followed by every field problem.
func (e *ValidationError) Error() string {
	if len(e.Info) == 0 {
		return e.Message
	}
	msgs := make([]string, 0, len(e.Info))
	for _, f := range e.Fields() {
		msgs = append(msgs, f+": "+e.Info[f])
	}
	return e.Message + ": " + strings.Join(msgs, "; ")
}
