package validation

import "github.com/artpar/recordbase/core/schema"

// CoerceBooleans returns a copy of data in which the literal integers 1 and 0
// become true and false for every field whose rule allows boolean.
// data itself is never modified.
func CoerceBooleans(rules schema.Rules, data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for name, value := range data {
		out[name] = value
		rule, ok := rules[name]
		if !ok || !rule.Type.Has(schema.TypeBoolean) {
			continue
		}
		if b, ok := numericBool(value); ok {
			out[name] = b
		}
	}
	return out
}

// numericBool maps the numbers 1 and 0 to true and false.
func numericBool(v any) (bool, bool) {
	if _, isBool := v.(bool); isBool {
		return false, false
	}
	n, ok := toFloat64(v)
	if !ok {
		return false, false
	}
	switch n {
	case 1:
		return true, true
	case 0:
		return false, true
	default:
		return false, false
	}
}

// LookupRules returns the rules a lookup filter is validated with. For every
// filter key whose value is an array, the field's rule is rewritten to an
// array of the original rule so each element is checked individually.
// Keys without a rule are skipped.
func LookupRules(rules schema.Rules, filter map[string]any) schema.Rules {
	out := make(schema.Rules, len(filter))
	for name, value := range filter {
		rule, ok := rules[name]
		if !ok {
			continue
		}
		if isArray(value) {
			rule = schema.ArrayOf(rule)
		}
		out[name] = rule
	}
	return out
}
