package formatter

import (
	"encoding/json"
	"io"

	"github.com/artpar/recordbase/core/convention"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatList writes {"model", "count", "data"}.
func (f *JSONFormatter) FormatList(w io.Writer, mod convention.Derived, rows []map[string]any, opts FormatOptions) error {
	data := projectAll(mod, rows, opts.Columns)
	return f.encode(w, map[string]any{
		"model": mod.Name,
		"count": len(data),
		"data":  data,
	}, opts.Compact)
}

// FormatRecord writes {"model", "data"}.
func (f *JSONFormatter) FormatRecord(w io.Writer, mod convention.Derived, row map[string]any, opts FormatOptions) error {
	var data any
	if row != nil {
		data = project(row, Columns(mod, []map[string]any{row}, opts.Columns))
	}
	return f.encode(w, map[string]any{
		"model": mod.Name,
		"data":  data,
	}, opts.Compact)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

func init() {
	Register(NewJSONFormatter())
}
