// Package storage executes the queries built by the record engine.
// It creates tables from derived models and persists rows as field maps.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/artpar/recordbase/core/convention"
	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/schema"
)

// ErrNotFound is returned when an update targets a missing row.
var ErrNotFound = errors.New("record not found")

// Store persists records of registered models.
type Store interface {
	// Register prepares storage for a model (creates its table).
	Register(ctx context.Context, mod convention.Derived) error

	// Find returns the row with the given identity, or nil when absent.
	Find(ctx context.Context, model string, id int64) (map[string]any, error)

	// Select executes a select query and returns the matching rows in identity order.
	Select(ctx context.Context, q query.Query) ([]map[string]any, error)

	// Delete executes a delete query and returns the number of removed rows.
	Delete(ctx context.Context, q query.Query) (int64, error)

	// Insert writes a new row and returns its identity. A non-nil identity
	// in data is used as is; otherwise one is assigned.
	Insert(ctx context.Context, model string, data map[string]any) (int64, error)

	// Update writes data over the row with the given identity.
	Update(ctx context.Context, model string, id int64, data map[string]any) error

	// Close releases the store.
	Close() error
}

// Transactor is implemented by stores that can run a unit of work atomically.
// Every store call made with the context passed to fn joins the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ID converts an identity value read from data or a row to int64.
func ID(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// BuildCreateTableSQL generates CREATE TABLE SQL from a derived model.
func BuildCreateTableSQL(mod convention.Derived) string {
	var columns []string
	var constraints []string

	for _, name := range columnNames(mod) {
		columns = append(columns, buildColumnDef(name, mod.Rules[name], name == mod.Identity))
		constraints = append(constraints, buildCheckConstraints(name, mod.Rules[name])...)
	}

	for _, key := range mod.UniqueKeys {
		constraints = append(constraints, fmt.Sprintf("UNIQUE(%s)", strings.Join(key, ", ")))
	}

	sql := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s",
		mod.Table,
		strings.Join(columns, ",\n  "),
	)

	if len(constraints) > 0 {
		sql += ",\n  " + strings.Join(constraints, ",\n  ")
	}

	sql += "\n)"

	return sql
}

// BuildIndexSQL generates CREATE INDEX statements for the foreign keys of
// parent relations.
func BuildIndexSQL(mod convention.Derived) []string {
	var indexes []string
	seen := make(map[string]bool)

	for _, name := range mod.ParentRelations() {
		fk := mod.Relations[name].ForeignKey
		if seen[fk] || !mod.Rules.Has(fk) {
			continue
		}
		seen[fk] = true
		indexes = append(indexes, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)",
			mod.Table, fk, mod.Table, fk,
		))
	}

	return indexes
}

// columnNames returns the identity column followed by the other fields, sorted.
func columnNames(mod convention.Derived) []string {
	names := []string{mod.Identity}
	for _, name := range mod.Rules.Names() {
		if name != mod.Identity {
			names = append(names, name)
		}
	}
	return names
}

// buildColumnDef builds a column definition from a field rule.
func buildColumnDef(name string, rule schema.Rule, identity bool) string {
	if identity {
		return name + " INTEGER PRIMARY KEY"
	}

	parts := []string{name}
	if t := rule.SQLType(); t != "" {
		parts = append(parts, t)
	}
	if rule.Required && !rule.Type.Has(schema.TypeNull) {
		parts = append(parts, "NOT NULL")
	}

	return strings.Join(parts, " ")
}

// buildCheckConstraints generates CHECK constraints from field constraints.
// Pattern constraints are left to application-level validation.
func buildCheckConstraints(name string, rule schema.Rule) []string {
	var checks []string

	for _, c := range rule.Constraints {
		switch c.Type {
		case schema.ConstraintMinLength:
			if v, ok := getNumericValue(c.Value); ok {
				checks = append(checks, fmt.Sprintf("CHECK(LENGTH(%s) >= %v)", name, v))
			}
		case schema.ConstraintMaxLength:
			if v, ok := getNumericValue(c.Value); ok {
				checks = append(checks, fmt.Sprintf("CHECK(LENGTH(%s) <= %v)", name, v))
			}
		case schema.ConstraintNotEmpty:
			checks = append(checks, fmt.Sprintf("CHECK(LENGTH(TRIM(%s)) > 0)", name))
		case schema.ConstraintOneOf:
			values := stringValues(c.Value)
			if len(values) == 0 {
				continue
			}
			quoted := make([]string, len(values))
			for i, v := range values {
				quoted[i] = fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''"))
			}
			checks = append(checks, fmt.Sprintf("CHECK(%s IN (%s))", name, strings.Join(quoted, ", ")))
		}
	}

	return checks
}

// getNumericValue extracts a numeric value from an interface.
func getNumericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

func stringValues(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

func sortByID(rows []map[string]any, identity string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := ID(rows[i][identity])
		b, _ := ID(rows[j][identity])
		return a < b
	})
}
