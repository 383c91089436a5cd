// Package query builds the storage queries produced by lookups.
//
// A Query is a value: Where returns a new query and never changes the
// receiver. Only WHERE clauses with equality or membership predicates joined
// by AND are supported.
package query

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind is the statement a query renders to.
type Kind int

const (
	KindSelect Kind = iota
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindDelete:
		return "delete"
	default:
		return "invalid"
	}
}

// Op is a predicate operator.
type Op string

const (
	OpEq     Op = "="
	OpIn     Op = "IN"
	OpIsNull Op = "IS NULL"
)

// Predicate restricts one field. OpEq predicates hold exactly one value;
// OpIn predicates hold the members in bind order; OpIsNull holds none.
type Predicate struct {
	Field  string
	Op     Op
	Values []any
}

// Query is a select or delete statement on one table.
type Query struct {
	Kind       Kind
	Table      string
	Predicates []Predicate
}

// Select starts a "SELECT *" query on table.
func Select(table string) Query {
	return Query{Kind: KindSelect, Table: table}
}

// Delete starts a "DELETE" query on table.
func Delete(table string) Query {
	return Query{Kind: KindDelete, Table: table}
}

// Where adds a predicate on field. Slice and array values become a membership
// predicate with the elements bound in order; anything else is an equality.
func (q Query) Where(field string, value any) Query {
	p := Predicate{Field: field, Op: OpEq, Values: []any{value}}
	if members, ok := Members(value); ok {
		p = Predicate{Field: field, Op: OpIn, Values: members}
	}

	preds := make([]Predicate, len(q.Predicates), len(q.Predicates)+1)
	copy(preds, q.Predicates)
	q.Predicates = append(preds, p)
	return q
}

// WhereNull adds an "IS NULL" predicate on field.
func (q Query) WhereNull(field string) Query {
	preds := make([]Predicate, len(q.Predicates), len(q.Predicates)+1)
	copy(preds, q.Predicates)
	q.Predicates = append(preds, Predicate{Field: field, Op: OpIsNull})
	return q
}

// Members returns the elements of a slice or array value.
// []byte is treated as a scalar.
func Members(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if _, ok := value.([]byte); ok {
		return nil, false
	}
	if list, ok := value.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Build renders the statement and its bind parameters.
//
//	SELECT * FROM test_model WHERE test_model.id IN (?, ?, ?)
//	DELETE FROM test_model WHERE test_model.id = ?
func (q Query) Build() (string, []any) {
	var b strings.Builder
	switch q.Kind {
	case KindDelete:
		b.WriteString("DELETE FROM ")
	default:
		b.WriteString("SELECT * FROM ")
	}
	b.WriteString(q.Table)

	args := make([]any, 0, len(q.Predicates))
	for i, p := range q.Predicates {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(q.Table + "." + p.Field)
		switch p.Op {
		case OpIn:
			b.WriteString(" IN (")
			b.WriteString(placeholders(len(p.Values)))
			b.WriteString(")")
		case OpIsNull:
			b.WriteString(" IS NULL")
		default:
			b.WriteString(" = ?")
		}
		args = append(args, p.Values...)
	}

	return b.String(), args
}

// String renders the statement with its parameters for diagnostics.
func (q Query) String() string {
	sql, args := q.Build()
	if len(args) == 0 {
		return sql
	}
	return fmt.Sprintf("%s %v", sql, args)
}

// Fields returns the predicate fields in order.
func (q Query) Fields() []string {
	out := make([]string, len(q.Predicates))
	for i, p := range q.Predicates {
		out[i] = p.Field
	}
	return out
}

// Matches reports whether row satisfies every predicate.
// Stores that do not speak SQL use it to execute queries.
func (q Query) Matches(row map[string]any) bool {
	for _, p := range q.Predicates {
		v := row[p.Field]
		if p.Op == OpIsNull {
			if v != nil {
				return false
			}
			continue
		}
		found := false
		for _, want := range p.Values {
			if Equal(v, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
