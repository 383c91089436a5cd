package query

import (
	"reflect"
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		q        Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "select all",
			q:        Select("test_model"),
			wantSQL:  "SELECT * FROM test_model",
			wantArgs: []any{},
		},
		{
			name:     "equality",
			q:        Select("test_model").Where("id", 1),
			wantSQL:  "SELECT * FROM test_model WHERE test_model.id = ?",
			wantArgs: []any{1},
		},
		{
			name:     "membership keeps order",
			q:        Select("test_model").Where("id", []int{3, 1, 2}),
			wantSQL:  "SELECT * FROM test_model WHERE test_model.id IN (?, ?, ?)",
			wantArgs: []any{3, 1, 2},
		},
		{
			name:     "multiple predicates",
			q:        Select("test_model").Where("username", "bob").Where("id", []any{1, 2}),
			wantSQL:  "SELECT * FROM test_model WHERE test_model.username = ? AND test_model.id IN (?, ?)",
			wantArgs: []any{"bob", 1, 2},
		},
		{
			name:     "delete",
			q:        Delete("test_model").Where("id", 1),
			wantSQL:  "DELETE FROM test_model WHERE test_model.id = ?",
			wantArgs: []any{1},
		},
		{
			name:     "is null binds nothing",
			q:        Select("t").Where("a", 1).WhereNull("b"),
			wantSQL:  "SELECT * FROM t WHERE t.a = ? AND t.b IS NULL",
			wantArgs: []any{1},
		},
		{
			name:     "bytes are scalar",
			q:        Select("t").Where("b", []byte("ab")),
			wantSQL:  "SELECT * FROM t WHERE t.b = ?",
			wantArgs: []any{[]byte("ab")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.q.Build()
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestWhere_DoesNotModifyReceiver(t *testing.T) {
	base := Select("t").Where("a", 1)
	q1 := base.Where("b", 2)
	q2 := base.Where("c", 3)

	if len(base.Predicates) != 1 {
		t.Errorf("base predicates = %d, want 1", len(base.Predicates))
	}
	if q1.Predicates[1].Field != "b" || q2.Predicates[1].Field != "c" {
		t.Errorf("derived queries share predicates: %v / %v", q1.Fields(), q2.Fields())
	}
}

func TestMatches(t *testing.T) {
	row := map[string]any{"id": int64(2), "username": "bob", "active": true, "note": nil}

	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"no predicates", Select("t"), true},
		{"int vs int64", Select("t").Where("id", 2), true},
		{"float vs int64", Select("t").Where("id", 2.0), true},
		{"membership", Select("t").Where("id", []int{1, 2}), true},
		{"membership miss", Select("t").Where("id", []int{1, 3}), false},
		{"empty membership", Select("t").Where("id", []int{}), false},
		{"string", Select("t").Where("username", "bob"), true},
		{"bool as int", Select("t").Where("active", 1), true},
		{"bool mismatch", Select("t").Where("active", false), false},
		{"all predicates", Select("t").Where("id", 2).Where("username", "alice"), false},
		{"nil matches nil", Select("t").Where("note", nil), true},
		{"missing is nil", Select("t").Where("missing", "x"), false},
		{"string vs number", Select("t").Where("username", 0), false},
		{"is null", Select("t").WhereNull("note"), true},
		{"is null on missing", Select("t").WhereNull("missing"), true},
		{"is null on value", Select("t").WhereNull("username"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Matches(row); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if KindSelect.String() != "select" || KindDelete.String() != "delete" {
		t.Errorf("unexpected kind names: %s %s", KindSelect, KindDelete)
	}
}

func TestString(t *testing.T) {
	got := Select("t").Where("id", []int{1, 2}).String()
	want := "SELECT * FROM t WHERE t.id IN (?, ?) [1 2]"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
