package formatter

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/artpar/recordbase/core/convention"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// FormatList formats the outputs as a YAML document.
func (f *YAMLFormatter) FormatList(w io.Writer, mod convention.Derived, rows []map[string]any, opts FormatOptions) error {
	data := projectAll(mod, rows, opts.Columns)
	return f.encode(w, map[string]any{
		"model": mod.Name,
		"count": len(data),
		"data":  data,
	})
}

// FormatRecord formats a single output as a YAML document.
func (f *YAMLFormatter) FormatRecord(w io.Writer, mod convention.Derived, row map[string]any, opts FormatOptions) error {
	var data any
	if row != nil {
		data = project(row, Columns(mod, []map[string]any{row}, opts.Columns))
	}
	return f.encode(w, map[string]any{
		"model": mod.Name,
		"data":  data,
	})
}

func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	Register(NewYAMLFormatter())
}
