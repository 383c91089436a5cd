package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile parses a model definition from a YAML file.
func ParseFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read file %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse parses a model definition from YAML bytes.
// The identity rule is implied when the definition does not declare one.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse yaml: %w", err)
	}

	def = def.WithDefaults()

	if err := Validate(def); err != nil {
		return Definition{}, fmt.Errorf("validate model %q: %w", def.Name, err)
	}

	return def, nil
}

// ParseDir parses all model definitions from a directory, including subdirectories.
func ParseDir(dir string) ([]Definition, error) {
	var defs []Definition

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			defs = append(defs, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		def, err := ParseFile(path)
		if err != nil {
			return nil, err
		}

		defs = append(defs, def)
	}

	return defs, nil
}

// Validate validates a model definition. All problems are reported together.
func Validate(def Definition) error {
	var errs []string

	if def.Name == "" {
		errs = append(errs, "model name is required")
	} else if !isValidIdentifier(def.Name) {
		errs = append(errs, fmt.Sprintf("model name %q is not a valid identifier", def.Name))
	}

	if def.Table != "" && !isValidIdentifier(def.Table) {
		errs = append(errs, fmt.Sprintf("table name %q is not a valid identifier", def.Table))
	}

	if len(def.Rules) == 0 {
		errs = append(errs, "rules must describe at least one field")
	}

	for _, name := range def.Rules.Names() {
		if !isValidIdentifier(name) {
			errs = append(errs, fmt.Sprintf("field name %q is not a valid identifier", name))
		}
		errs = append(errs, validateRule(name, def.Rules[name])...)
	}

	errs = append(errs, validateRestrictions(def)...)
	errs = append(errs, validateUniqueKeys(def)...)
	errs = append(errs, validateSecret(def)...)
	errs = append(errs, validateRelations(def)...)

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validateRule validates a single rule and its children.
func validateRule(path string, rule Rule) []string {
	var errs []string

	for _, t := range rule.Type {
		if !isValidType(t) {
			errs = append(errs, fmt.Sprintf("field %q: unknown type %q", path, t))
		}
	}

	if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
		errs = append(errs, fmt.Sprintf("field %q: min %v is greater than max %v", path, *rule.Min, *rule.Max))
	}

	if rule.Pattern != "" {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("field %q: invalid pattern: %v", path, err))
		}
	}

	for _, c := range rule.Constraints {
		if !c.Type.IsKnown() {
			errs = append(errs, fmt.Sprintf("field %q: unknown constraint %q", path, c.Type))
		}
	}

	if len(rule.Children) > 0 && !rule.Type.Has(TypeArray) && !rule.Type.Has(TypeObject) {
		errs = append(errs, fmt.Sprintf("field %q: children require type array or object", path))
	}

	keys := make([]string, 0, len(rule.Children))
	for k := range rule.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		errs = append(errs, validateRule(path+"."+k, rule.Children[k])...)
	}

	return errs
}

// validateRestrictions checks every restricted name refers to something that exists.
func validateRestrictions(def Definition) []string {
	var errs []string

	sets := []struct {
		op    string
		names []string
	}{
		{"lookup", def.Restricted.Lookup},
		{"create", def.Restricted.Create},
		{"update", def.Restricted.Update},
	}
	for _, set := range sets {
		for _, name := range set.names {
			if !def.HasField(name) {
				errs = append(errs, fmt.Sprintf("restricted.%s: field %q not in rules", set.op, name))
			}
		}
	}

	for _, name := range def.Restricted.Output {
		if _, ok := def.Relations[name]; !ok {
			errs = append(errs, fmt.Sprintf("restricted.output: relation %q not declared", name))
		}
	}

	return errs
}

// validateUniqueKeys checks unique key tuples: non-empty, known fields, no repeats.
func validateUniqueKeys(def Definition) []string {
	var errs []string

	for i, key := range def.UniqueKeys {
		if len(key) == 0 {
			errs = append(errs, fmt.Sprintf("unique_keys[%d]: empty set of key fields", i))
			continue
		}
		seen := make(map[string]bool, len(key))
		for _, f := range key {
			if seen[f] {
				errs = append(errs, fmt.Sprintf("unique_keys[%d]: field %q is used more than once", i, f))
			}
			seen[f] = true
			if !def.HasField(f) {
				errs = append(errs, fmt.Sprintf("unique_keys[%d]: field %q not in rules", i, f))
			}
		}
	}

	return errs
}

// validateSecret checks secret fields exist and may hold strings.
func validateSecret(def Definition) []string {
	var errs []string
	for _, name := range def.Secret {
		rule, ok := def.Rules[name]
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("secret: field %q not in rules", name))
		case len(rule.Type) > 0 && !rule.Type.Has(TypeString):
			errs = append(errs, fmt.Sprintf("secret: field %q must allow strings", name))
		}
	}
	return errs
}

// validateRelations checks relation declarations. Target models are checked
// at registration time, when all models are known.
func validateRelations(def Definition) []string {
	var errs []string

	names := make([]string, 0, len(def.Relations))
	for name := range def.Relations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rel := def.Relations[name]
		if !isValidIdentifier(name) {
			errs = append(errs, fmt.Sprintf("relation name %q is not a valid identifier", name))
		}
		switch rel.Kind {
		case RelationParent, RelationChild, RelationList:
		default:
			errs = append(errs, fmt.Sprintf("relation %q: unknown kind %q", name, rel.Kind))
		}
		if rel.Model == "" {
			errs = append(errs, fmt.Sprintf("relation %q: model is required", name))
		}
		if rel.ForeignKey == "" {
			errs = append(errs, fmt.Sprintf("relation %q: foreign_key is required", name))
		} else if rel.Kind == RelationParent && !def.HasField(rel.ForeignKey) {
			errs = append(errs, fmt.Sprintf("relation %q: foreign key %q not in rules", name, rel.ForeignKey))
		}
	}

	return errs
}

// isValidIdentifier checks if a string is a valid identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// isValidType checks if a type tag is valid.
func isValidType(t Type) bool {
	switch t {
	case TypeInteger, TypeNumber, TypeString, TypeBoolean,
		TypeArray, TypeObject, TypeNull:
		return true
	default:
		return false
	}
}
