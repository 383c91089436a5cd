package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/artpar/recordbase/core/schema"
)

// checkConstraint validates a value against a single constraint and returns
// the problem message, or "" when the value passes. Constraints that do not
// apply to the value's type, or that are misconfigured, are skipped.
func (v *Validator) checkConstraint(value any, c schema.Constraint) string {
	switch c.Type {
	case schema.ConstraintMinLength:
		n, ok := toInt(c.Value)
		str, isStr := value.(string)
		if !ok || !isStr || utf8.RuneCountInString(str) >= n {
			return ""
		}
		return messageOr(c, fmt.Sprintf("must be at least %d characters", n))

	case schema.ConstraintMaxLength:
		n, ok := toInt(c.Value)
		str, isStr := value.(string)
		if !ok || !isStr || utf8.RuneCountInString(str) <= n {
			return ""
		}
		return messageOr(c, fmt.Sprintf("must be at most %d characters", n))

	case schema.ConstraintPattern:
		pattern, ok := c.Value.(string)
		str, isStr := value.(string)
		if !ok || !isStr || v.match(pattern, str) {
			return ""
		}
		return messageOr(c, "does not match required pattern")

	case schema.ConstraintNotEmpty:
		str, ok := value.(string)
		if !ok || strings.TrimSpace(str) != "" {
			return ""
		}
		return messageOr(c, "must not be empty")

	case schema.ConstraintOneOf:
		allowed, ok := toList(c.Value)
		if !ok || containsValue(allowed, value) {
			return ""
		}
		return messageOr(c, "must be one of: "+joinValues(allowed))

	default:
		return ""
	}
}

func messageOr(c schema.Constraint, fallback string) string {
	if c.Message != "" {
		return c.Message
	}
	return fallback
}

// toInt converts various types to int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

func toList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
