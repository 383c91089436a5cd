package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type is a value type tag understood by the validator.
type Type string

const (
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
	TypeNull    Type = "null"
)

// ChildWildcard is the children key whose rule applies to every array element.
const ChildWildcard = "*"

// Types is the set of type tags a value may have.
// In YAML it is written as a single tag or a list of tags.
type Types []Type

// UnmarshalYAML accepts both "type: integer" and "type: [boolean, integer]".
func (t *Types) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*t = Types{Type(s)}
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		types := make(Types, len(list))
		for i, s := range list {
			types[i] = Type(s)
		}
		*t = types
	default:
		return fmt.Errorf("line %d: type must be a tag or a list of tags", node.Line)
	}
	return nil
}

// Has reports whether tag is one of the allowed types.
func (t Types) Has(tag Type) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// String joins the tags with "|".
func (t Types) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}

// Rule describes the accepted shape of one field.
type Rule struct {
	// Type lists the allowed type tags. Empty means any type.
	Type Types `yaml:"type"`

	// Required indicates the field must be present (and non-null) in validated data.
	Required bool `yaml:"required,omitempty"`

	// Min and Max bound numeric values, string lengths and array sizes.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// Pattern is a regular expression string values must match.
	Pattern string `yaml:"pattern,omitempty"`

	// Values lists the allowed values.
	Values []any `yaml:"values,omitempty"`

	// Children holds nested rules: "*" for array elements, keys for objects.
	Children map[string]Rule `yaml:"children,omitempty"`

	// Constraints are additional named checks.
	Constraints []Constraint `yaml:"constraints,omitempty"`

	// Description is human-readable documentation.
	Description string `yaml:"description,omitempty"`
}

// Bound returns a pointer to v, for use as Rule.Min or Rule.Max.
func Bound(v float64) *float64 {
	return &v
}

// ArrayOf wraps rule so that it applies to each element of an array value.
// The wrapper keeps the Required flag of the original rule.
func ArrayOf(rule Rule) Rule {
	elem := rule
	elem.Required = false
	return Rule{
		Type:     Types{TypeArray},
		Required: rule.Required,
		Children: map[string]Rule{ChildWildcard: elem},
	}
}

// SQLType returns the SQLite column type for values of this rule.
func (r Rule) SQLType() string {
	for _, t := range r.Type {
		switch t {
		case TypeInteger, TypeBoolean:
			return "INTEGER"
		case TypeNumber:
			return "REAL"
		case TypeArray, TypeObject:
			return "TEXT" // Stored as JSON
		case TypeString:
			return "TEXT"
		}
	}
	return ""
}

// Rules maps field names to their rules. A Rules value is the schema of a model.
type Rules map[string]Rule

// Has reports whether name is described by the schema.
func (r Rules) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Names returns the field names in sorted order.
func (r Rules) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subset returns a new Rules holding only the named fields that exist in r.
func (r Rules) Subset(names ...string) Rules {
	out := make(Rules, len(names))
	for _, name := range names {
		if rule, ok := r[name]; ok {
			out[name] = rule
		}
	}
	return out
}

// Clone returns a shallow copy of r.
func (r Rules) Clone() Rules {
	out := make(Rules, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
