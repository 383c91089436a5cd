package validation

import (
	"testing"

	"github.com/artpar/recordbase/core/schema"
)

func TestCoerceBooleans(t *testing.T) {
	rules := schema.Rules{
		"active":  {Type: schema.Types{schema.TypeBoolean}},
		"mixed":   {Type: schema.Types{schema.TypeInteger, schema.TypeBoolean}},
		"counter": {Type: schema.Types{schema.TypeInteger}},
	}
	data := map[string]any{
		"active":  1,
		"mixed":   float64(0),
		"counter": 1,
		"unknown": 0,
	}

	got := CoerceBooleans(rules, data)

	if got["active"] != true {
		t.Errorf("active = %v, want true", got["active"])
	}
	if got["mixed"] != false {
		t.Errorf("mixed = %v, want false", got["mixed"])
	}
	if got["counter"] != 1 {
		t.Errorf("counter = %v, want 1 (not boolean)", got["counter"])
	}
	if got["unknown"] != 0 {
		t.Errorf("unknown = %v, want 0", got["unknown"])
	}
	if data["active"] != 1 {
		t.Error("CoerceBooleans modified its input")
	}
}

func TestCoerceBooleans_OnlyZeroAndOne(t *testing.T) {
	rules := schema.Rules{"active": {Type: schema.Types{schema.TypeBoolean}}}

	for _, v := range []any{2, -1, 0.5, "1", true} {
		got := CoerceBooleans(rules, map[string]any{"active": v})
		if got["active"] != v {
			t.Errorf("value %v was coerced to %v", v, got["active"])
		}
	}
}

func TestLookupRules(t *testing.T) {
	rules := schema.Rules{
		"id":       {Type: schema.Types{schema.TypeInteger}, Min: schema.Bound(1)},
		"username": {Type: schema.Types{schema.TypeString}},
	}

	got := LookupRules(rules, map[string]any{
		"id":       []any{1, 2, 3},
		"username": "x",
		"missing":  1,
	})

	if len(got) != 2 {
		t.Fatalf("LookupRules returned %d rules, want 2", len(got))
	}
	if !got["id"].Type.Has(schema.TypeArray) {
		t.Errorf("id rule type = %v, want array", got["id"].Type)
	}
	if elem := got["id"].Children["*"]; !elem.Type.Has(schema.TypeInteger) {
		t.Errorf("id element rule = %+v, want integer", elem)
	}
	if !got["username"].Type.Has(schema.TypeString) {
		t.Errorf("username rule changed: %+v", got["username"])
	}

	v := New()
	if err := v.Validate(got, map[string]any{"id": []any{1, 2, 3}, "username": "x"}); err != nil {
		t.Errorf("array lookup should validate: %v", err)
	}
	info := problems(t, v.Validate(got, map[string]any{"id": []any{1, 0}, "username": "x"}))
	if info["id.1"] != "must be at least 1" {
		t.Errorf("element problem = %v", info)
	}
}
