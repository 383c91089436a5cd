// Package formatter renders record outputs for the command line.
// Formatters turn extended outputs into table, json or yaml text.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/recordbase/core/convention"
)

// Formatter converts record outputs to a specific text format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// FormatList formats the outputs of several records of one model.
	FormatList(w io.Writer, mod convention.Derived, rows []map[string]any, opts FormatOptions) error

	// FormatRecord formats a single output. A nil row means not found.
	FormatRecord(w io.Writer, mod convention.Derived, row map[string]any, opts FormatOptions) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns specifies which keys to include (nil = every public key).
	Columns []string

	// NoHeader disables the header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (json only).
	Compact bool

	// MaxWidth truncates long table cells (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}
	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter, or nil when it is not registered.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.formatters[r.defaultFmt]
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}
	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// Columns returns the keys to render for rows: the requested ones when
// given, otherwise the identity, then the model's non-secret fields that
// appear in any row, then relation keys, each group sorted.
func Columns(mod convention.Derived, rows []map[string]any, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}

	present := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			present[k] = true
		}
	}

	var cols []string
	if present[mod.Identity] {
		cols = append(cols, mod.Identity)
	}
	var fields, rels []string
	for k := range present {
		switch {
		case k == mod.Identity || mod.Source.IsSecret(k):
		case strings.HasPrefix(k, ":"):
			rels = append(rels, k)
		default:
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	sort.Strings(rels)
	cols = append(cols, fields...)
	return append(cols, rels...)
}

// project keeps the given columns of row. Missing keys are omitted.
func project(row map[string]any, cols []string) map[string]any {
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func projectAll(mod convention.Derived, rows []map[string]any, requested []string) []map[string]any {
	cols := Columns(mod, rows, requested)
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = project(row, cols)
	}
	return out
}
