package jsonapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/artpar/recordbase/core/convention"
	"github.com/artpar/recordbase/core/record"
	"github.com/artpar/recordbase/core/schema"
)

// ErrorBuilder provides a fluent API for building Error objects.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new ErrorBuilder with the given status, code, and title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{
		err: Error{
			Status: strconv.Itoa(status),
			Code:   code,
			Title:  title,
		},
	}
}

// Detail sets the error detail message.
func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

// Detailf sets the error detail message with formatting.
func (b *ErrorBuilder) Detailf(format string, args ...any) *ErrorBuilder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Pointer sets the JSON pointer to the source of the error.
// Example: "/data/attributes/email"
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Pointer = pointer
	return b
}

// Parameter sets the query parameter that caused the error.
func (b *ErrorBuilder) Parameter(param string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Parameter = param
	return b
}

// Meta adds metadata to the error.
func (b *ErrorBuilder) Meta(key string, value any) *ErrorBuilder {
	if b.err.Meta == nil {
		b.err.Meta = make(Meta)
	}
	b.err.Meta[key] = value
	return b
}

// Build returns the constructed Error.
func (b *ErrorBuilder) Build() Error {
	return b.err
}

// StatusCode returns the HTTP status code as an int.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// ErrBadRequest creates a 400 Bad Request error.
func ErrBadRequest(detail string) Error {
	return NewError(http.StatusBadRequest, "bad_request", "Bad Request").Detail(detail).Build()
}

// ErrForbidden creates a 403 Forbidden error.
func ErrForbidden(detail string) Error {
	if detail == "" {
		detail = "Access denied"
	}
	return NewError(http.StatusForbidden, "forbidden", "Forbidden").Detail(detail).Build()
}

// ErrNotFound creates a 404 Not Found error.
func ErrNotFound(detail string) Error {
	return NewError(http.StatusNotFound, "not_found", "Not Found").Detail(detail).Build()
}

// ErrConflict creates a 409 Conflict error.
func ErrConflict(detail string) Error {
	return NewError(http.StatusConflict, "conflict", "Conflict").Detail(detail).Build()
}

// ErrValidation creates a 422 Unprocessable Entity error for one field.
func ErrValidation(field, message string) Error {
	return NewError(http.StatusUnprocessableEntity, "validation_error", "Validation Failed").
		Detail(message).
		Pointer("/data/attributes/" + field).
		Build()
}

// ErrInternal creates a 500 Internal Server Error.
func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "An internal error occurred"
	}
	return NewError(http.StatusInternalServerError, "internal_error", "Internal Server Error").Detail(detail).Build()
}

// FromError maps an engine error to JSON:API errors:
//
//   - validation errors become one 422 per field, pointing at the attribute;
//   - unknown or restricted fields and relations become a 400;
//   - missing records become a 404 and denied records a 403;
//   - anything else is a 500 without internal detail.
func FromError(err error) []Error {
	if err == nil {
		return nil
	}

	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		if ve.Empty() {
			return []Error{NewError(http.StatusUnprocessableEntity, "validation_error", "Validation Failed").
				Detail(ve.Message).Build()}
		}
		out := make([]Error, 0, len(ve.Info))
		for _, field := range ve.Fields() {
			out = append(out, ErrValidation(field, ve.Info[field]))
		}
		return out
	}

	var fe *record.FieldError
	if errors.As(err, &fe) {
		b := NewError(http.StatusBadRequest, fieldCode(fe.Kind), "Bad Request").
			Detail(fe.Error()).
			Meta("field", fe.Field)
		switch fe.Op {
		case convention.OpLookup:
			b.Parameter(fe.Field)
		case convention.OpOutput:
			b.Parameter("with")
		default:
			b.Pointer("/data/attributes/" + fe.Field)
		}
		return []Error{b.Build()}
	}

	switch {
	case errors.Is(err, record.ErrNotFound):
		return []Error{ErrNotFound(err.Error())}
	case errors.Is(err, record.ErrNotAccessible):
		return []Error{ErrForbidden(err.Error())}
	case errors.Is(err, record.ErrNotPersisted):
		return []Error{ErrConflict(err.Error())}
	default:
		return []Error{ErrInternal("")}
	}
}

func fieldCode(kind error) string {
	switch kind {
	case record.ErrUnknownField:
		return "unknown_field"
	case record.ErrRestrictedField:
		return "restricted_field"
	case record.ErrUnknownRelation:
		return "unknown_relation"
	case record.ErrRestrictedRelation:
		return "restricted_relation"
	default:
		return "bad_request"
	}
}
