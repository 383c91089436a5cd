package schema

import "testing"

func TestArrayOf(t *testing.T) {
	base := Rule{Type: Types{TypeInteger}, Required: true, Min: Bound(1)}
	arr := ArrayOf(base)

	if !arr.Type.Has(TypeArray) {
		t.Errorf("ArrayOf type = %v, want array", arr.Type)
	}
	if !arr.Required {
		t.Error("ArrayOf should keep Required")
	}

	elem, ok := arr.Children[ChildWildcard]
	if !ok {
		t.Fatal("ArrayOf missing '*' child")
	}
	if elem.Required {
		t.Error("element rule should not be required")
	}
	if elem.Min == nil || *elem.Min != 1 {
		t.Errorf("element Min = %v, want 1", elem.Min)
	}
	if !base.Required {
		t.Error("ArrayOf modified its argument")
	}
}

func TestRule_SQLType(t *testing.T) {
	tests := []struct {
		types Types
		want  string
	}{
		{Types{TypeInteger}, "INTEGER"},
		{Types{TypeBoolean, TypeInteger}, "INTEGER"},
		{Types{TypeNumber}, "REAL"},
		{Types{TypeString}, "TEXT"},
		{Types{TypeArray}, "TEXT"},
		{Types{TypeNull, TypeObject}, "TEXT"},
		{nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.types.String(), func(t *testing.T) {
			if got := (Rule{Type: tt.types}).SQLType(); got != tt.want {
				t.Errorf("SQLType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRules_SubsetAndClone(t *testing.T) {
	rules := Rules{
		"a": {Type: Types{TypeString}},
		"b": {Type: Types{TypeInteger}},
	}

	sub := rules.Subset("b", "missing")
	if len(sub) != 1 || !sub.Has("b") {
		t.Errorf("Subset = %v, want only b", sub)
	}

	clone := rules.Clone()
	delete(clone, "a")
	if !rules.Has("a") {
		t.Error("Clone shares storage with original")
	}

	names := rules.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}

func TestDefinition_WithDefaultsDoesNotMutate(t *testing.T) {
	rules := Rules{"name": {Type: Types{TypeString}}}
	def := Definition{Name: "x", Rules: rules}

	got := def.WithDefaults()
	if !got.Rules.Has(IdentityField) {
		t.Error("WithDefaults did not add identity")
	}
	if rules.Has(IdentityField) {
		t.Error("WithDefaults mutated the caller's rules")
	}
}
