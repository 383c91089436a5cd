// Package validation provides structural validation of data against field rules.
// It is the schema validator the record engine delegates to: given a rule set
// and a data map it reports every structural problem keyed by field path.
package validation

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/artpar/recordbase/core/schema"
)

// DefaultPatternCacheSize is the number of compiled patterns kept by New.
const DefaultPatternCacheSize = 256

// Validator validates data maps against rule sets.
// It is safe for concurrent use.
type Validator struct {
	patterns *lru.Cache[string, *regexp.Regexp]
}

// New creates a validator with the default pattern cache size.
func New() *Validator {
	v, err := NewWithCacheSize(DefaultPatternCacheSize)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return v
}

// NewWithCacheSize creates a validator keeping up to size compiled patterns.
func NewWithCacheSize(size int) (*Validator, error) {
	cache, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, fmt.Errorf("pattern cache: %w", err)
	}
	return &Validator{patterns: cache}, nil
}

// Validate checks data against rules and returns a *schema.ValidationError
// holding every structural problem, or nil. Keys of data without a rule are
// not inspected; filtering unknown fields is the caller's job.
func (v *Validator) Validate(rules schema.Rules, data map[string]any) error {
	errs := schema.NewValidationError("")

	for _, name := range rules.Names() {
		value, present := data[name]
		v.validateValue(errs, name, rules[name], value, present)
	}

	return errs.OrNil()
}

// ValidateField validates a single value against its rule.
// This is useful for partial validation.
func (v *Validator) ValidateField(name string, rule schema.Rule, value any) error {
	errs := schema.NewValidationError("")
	v.validateValue(errs, name, rule, value, true)
	return errs.OrNil()
}

func (v *Validator) validateValue(errs *schema.ValidationError, path string, rule schema.Rule, value any, present bool) {
	if !present || value == nil {
		if rule.Required {
			errs.Add(path, "field is required")
		}
		return
	}

	kind, ok := matchType(rule.Type, value)
	if !ok {
		errs.Add(path, typeMessage(rule.Type))
		return
	}

	v.validateBounds(errs, path, rule, kind, value)

	if rule.Pattern != "" && kind == schema.TypeString {
		if !v.match(rule.Pattern, value.(string)) {
			errs.Add(path, "does not match required pattern")
		}
	}

	if len(rule.Values) > 0 && !containsValue(rule.Values, value) {
		errs.Add(path, "must be one of: "+joinValues(rule.Values))
	}

	for _, c := range rule.Constraints {
		if msg := v.checkConstraint(value, c); msg != "" {
			errs.Add(path, msg)
		}
	}

	if len(rule.Children) == 0 {
		return
	}

	switch kind {
	case schema.TypeArray:
		elem, ok := rule.Children[schema.ChildWildcard]
		if !ok {
			return
		}
		rv := reflect.ValueOf(value)
		for i := 0; i < rv.Len(); i++ {
			v.validateValue(errs, fmt.Sprintf("%s.%d", path, i), elem, rv.Index(i).Interface(), true)
		}
	case schema.TypeObject:
		obj := toObject(value)
		keys := make([]string, 0, len(rule.Children))
		for k := range rule.Children {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child, present := obj[k]
			v.validateValue(errs, path+"."+k, rule.Children[k], child, present)
		}
	}
}

// validateBounds applies Min/Max according to the detected kind of value.
func (v *Validator) validateBounds(errs *schema.ValidationError, path string, rule schema.Rule, kind schema.Type, value any) {
	if rule.Min == nil && rule.Max == nil {
		return
	}

	switch kind {
	case schema.TypeInteger, schema.TypeNumber:
		n, _ := toFloat64(value)
		if rule.Min != nil && n < *rule.Min {
			errs.Add(path, fmt.Sprintf("must be at least %v", *rule.Min))
		}
		if rule.Max != nil && n > *rule.Max {
			errs.Add(path, fmt.Sprintf("must be at most %v", *rule.Max))
		}
	case schema.TypeString:
		n := float64(utf8.RuneCountInString(value.(string)))
		if rule.Min != nil && n < *rule.Min {
			errs.Add(path, fmt.Sprintf("must be at least %v characters", *rule.Min))
		}
		if rule.Max != nil && n > *rule.Max {
			errs.Add(path, fmt.Sprintf("must be at most %v characters", *rule.Max))
		}
	case schema.TypeArray:
		n := float64(reflect.ValueOf(value).Len())
		if rule.Min != nil && n < *rule.Min {
			errs.Add(path, fmt.Sprintf("must contain at least %v items", *rule.Min))
		}
		if rule.Max != nil && n > *rule.Max {
			errs.Add(path, fmt.Sprintf("must contain at most %v items", *rule.Max))
		}
	}
}

// match reports whether s matches pattern, compiling through the cache.
// An invalid pattern never matches.
func (v *Validator) match(pattern, s string) bool {
	re, ok := v.patterns.Get(pattern)
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return false
		}
		v.patterns.Add(pattern, re)
	}
	return re.MatchString(s)
}

// matchType returns the first allowed type tag value satisfies.
// An empty tag list accepts any value.
func matchType(types schema.Types, value any) (schema.Type, bool) {
	if len(types) == 0 {
		return detectKind(value), true
	}
	for _, t := range types {
		if isType(t, value) {
			return t, true
		}
	}
	return "", false
}

func isType(t schema.Type, value any) bool {
	switch t {
	case schema.TypeInteger:
		return isInteger(value)
	case schema.TypeNumber:
		_, ok := toFloat64(value)
		return ok
	case schema.TypeString:
		_, ok := value.(string)
		return ok
	case schema.TypeBoolean:
		_, ok := value.(bool)
		return ok
	case schema.TypeArray:
		return isArray(value)
	case schema.TypeObject:
		return isObject(value)
	case schema.TypeNull:
		return value == nil
	default:
		return false
	}
}

func detectKind(value any) schema.Type {
	for _, t := range []schema.Type{schema.TypeBoolean, schema.TypeInteger, schema.TypeNumber,
		schema.TypeString, schema.TypeArray, schema.TypeObject} {
		if isType(t, value) {
			return t
		}
	}
	return ""
}

func typeMessage(types schema.Types) string {
	if len(types) == 1 {
		switch types[0] {
		case schema.TypeInteger:
			return "must be an integer"
		case schema.TypeNumber:
			return "must be a number"
		case schema.TypeString:
			return "must be a string"
		case schema.TypeBoolean:
			return "must be a boolean"
		case schema.TypeArray:
			return "must be an array"
		case schema.TypeObject:
			return "must be an object"
		case schema.TypeNull:
			return "must be null"
		}
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return "must be one of types: " + strings.Join(parts, ", ")
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		f := float64(n)
		return !math.IsInf(f, 0) && f == math.Trunc(f)
	case float64:
		return !math.IsInf(n, 0) && n == math.Trunc(n)
	default:
		return false
	}
}

func isArray(v any) bool {
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func isObject(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

func toObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	rv := reflect.ValueOf(v)
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

// toFloat64 converts various numeric types to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsValue(values []any, v any) bool {
	for _, allowed := range values {
		if equalValues(allowed, v) {
			return true
		}
	}
	return false
}

// equalValues compares numbers by value and everything else by formatted form.
func equalValues(a, b any) bool {
	fa, aNum := toFloat64(a)
	fb, bNum := toFloat64(b)
	if aNum && bNum {
		return fa == fb
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func joinValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, ", ")
}
