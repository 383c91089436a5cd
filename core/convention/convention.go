// Package convention derives runtime metadata from minimal model definitions.
// It applies naming conventions, special-field detection and the per-operation
// restriction policy. Everything here is computed once per definition.
package convention

import (
	"sort"
	"strings"
	"unicode"

	"github.com/artpar/recordbase/core/schema"
)

// Lifecycle-managed field names. Declaring a rule for one of them activates
// its behavior.
const (
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldDeletedAt = "deleted_at"
)

// Derived contains all derived information from a model definition.
// This is the fully-expanded, immutable form used by the runtime.
type Derived struct {
	// Source is the original definition (with defaults applied).
	Source schema.Definition

	// Name is the model name.
	Name string

	// Table is the storage table name.
	Table string

	// Rules is the field-rule schema, identity included.
	Rules schema.Rules

	// Identity is the identity field name.
	Identity string

	// SpecialFields lists the lifecycle-managed fields present in Rules.
	SpecialFields []string

	// Policy decides which fields and relations each operation may use.
	Policy Policy

	// UniqueKeys lists field tuples that must be jointly unique.
	UniqueKeys [][]string

	// Relations declares the model's relations by name.
	Relations map[string]schema.RelationDef

	// IgnoreExtraFields makes unknown fields be skipped instead of rejected.
	IgnoreExtraFields bool
}

// Derive expands a model definition into its derived form.
func Derive(def schema.Definition) Derived {
	def = def.WithDefaults()

	d := Derived{
		Source:            def,
		Name:              def.Name,
		Table:             def.Table,
		Rules:             def.Rules.Clone(),
		Identity:          schema.IdentityField,
		UniqueKeys:        cloneKeys(def.UniqueKeys),
		Relations:         make(map[string]schema.RelationDef, len(def.Relations)),
		IgnoreExtraFields: def.IgnoreExtraFields,
	}
	if d.Table == "" {
		d.Table = SnakeCase(def.Name)
	}
	for name, rel := range def.Relations {
		d.Relations[name] = rel
	}

	d.SpecialFields = SpecialFields(d.Rules)
	d.Policy = derivePolicy(def, d.Identity, d.SpecialFields)

	return d
}

// SpecialFields returns the lifecycle-managed fields described by rules,
// in the fixed order created_at, updated_at, deleted_at.
func SpecialFields(rules schema.Rules) []string {
	var fields []string
	for _, f := range []string{FieldCreatedAt, FieldUpdatedAt, FieldDeletedAt} {
		if rules.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// HasSpecial reports whether the lifecycle field name is active for the model.
func (d Derived) HasSpecial(name string) bool {
	for _, f := range d.SpecialFields {
		if f == name {
			return true
		}
	}
	return false
}

// Relation returns the named relation declaration.
func (d Derived) Relation(name string) (schema.RelationDef, bool) {
	rel, ok := d.Relations[name]
	return rel, ok
}

// ParentRelations returns the names of parent relations, sorted.
func (d Derived) ParentRelations() []string {
	var names []string
	for name, rel := range d.Relations {
		if rel.Kind == schema.RelationParent {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SnakeCase converts a model name such as "TestModel" to "test_model".
// Names already in snake case are returned unchanged.
func SnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func cloneKeys(keys [][]string) [][]string {
	if len(keys) == 0 {
		return nil
	}
	out := make([][]string, len(keys))
	for i, k := range keys {
		out[i] = append([]string(nil), k...)
	}
	return out
}
