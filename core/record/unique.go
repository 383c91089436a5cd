package record

import (
	"context"
	"fmt"

	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/schema"
)

// UniqueKeyProblem is the problem reported for every field of a duplicated
// unique key.
const UniqueKeyProblem = "Part of the unique key"

// UniquenessOptions configure CheckUniqueness.
type UniquenessOptions struct {
	// RaiseOnFailure returns a validation error instead of false.
	RaiseOnFailure bool

	// IgnoreNulls skips unique keys with a null member.
	IgnoreNulls bool
}

// CheckUniqueness reports whether no other stored record shares the values
// of any unique key with r. The record's own identity is excluded;
// soft-deleted records still hold their keys.
// Every violated key is reported, each with all of its fields.
func (r *Record) CheckUniqueness(ctx context.Context, opts UniquenessOptions) (bool, error) {
	m := r.model
	problems := schema.NewValidationError("")

	for _, key := range m.UniqueKeys {
		dup, err := r.duplicated(ctx, key, opts.IgnoreNulls)
		if err != nil {
			return false, err
		}
		if !dup {
			continue
		}
		m.manager.metrics.UniquenessViolated(m.Name)
		if !opts.RaiseOnFailure {
			return false, nil
		}
		for _, field := range key {
			problems.Add(field, UniqueKeyProblem)
		}
	}

	if !problems.Empty() {
		m.manager.metrics.ValidationFailed(m.Name, "uniqueness")
		return false, problems
	}
	return true, nil
}

// duplicated reports whether another record holds the same values for key.
// Null members become IS NULL predicates; array members are compared in Go.
func (r *Record) duplicated(ctx context.Context, key []string, ignoreNulls bool) (bool, error) {
	m := r.model

	q := query.Select(m.Table)
	for _, field := range key {
		v := r.data[field]
		if v == nil {
			if ignoreNulls {
				return false, nil
			}
			q = q.WhereNull(field)
			continue
		}
		if _, isList := query.Members(v); isList {
			continue
		}
		q = q.Where(field, v)
	}

	rows, err := m.manager.store.Select(ctx, q)
	if err != nil {
		return false, fmt.Errorf("check uniqueness of %s: %w", m.Name, err)
	}

	own := r.ID()
	for _, row := range rows {
		if own != nil && query.Equal(row[m.Identity], own) {
			continue
		}
		if sameKey(row, r.data, key) {
			return true, nil
		}
	}
	return false, nil
}

func sameKey(row, data map[string]any, key []string) bool {
	for _, field := range key {
		a, b := row[field], data[field]
		if _, isList := query.Members(b); isList {
			if fmt.Sprint(a) != fmt.Sprint(b) {
				return false
			}
			continue
		}
		if !query.Equal(a, b) {
			return false
		}
	}
	return true
}
