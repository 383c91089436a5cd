package record

import (
	"context"
	"fmt"

	"github.com/artpar/recordbase/core/convention"
	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/storage"
	"github.com/artpar/recordbase/core/validation"
)

// LookupQuery turns a filter into a query on the model's table. Scalars become
// equality predicates and lists membership predicates in list order. Unknown
// fields fail unless the model ignores extra fields; lookup-restricted fields
// always fail. The whole filter is validated before the query is returned,
// with list values checked element by element.
//
// base replaces the default select query, e.g. query.Delete(m.Table).
func (m *Model) LookupQuery(filter map[string]any, base ...query.Query) (query.Query, error) {
	q := query.Select(m.Table)
	if len(base) > 0 {
		q = base[0]
	}

	accepted := make(map[string]any, len(filter))
	for _, field := range sortedKeys(filter) {
		ok, err := m.checkField(convention.OpLookup, field)
		if err != nil {
			return query.Query{}, err
		}
		if !ok {
			continue
		}
		value := filter[field]
		q = q.Where(field, value)
		accepted[field] = value
	}

	rules := validation.LookupRules(m.Rules, accepted)
	if err := m.manager.validator.Validate(rules, accepted); err != nil {
		m.manager.metrics.ValidationFailed(m.Name, "lookup")
		return query.Query{}, err
	}

	return q, nil
}

// Lookup runs LookupQuery and loads the matching records.
// Soft-deleted records are skipped.
func (m *Model) Lookup(ctx context.Context, filter map[string]any) ([]*Record, error) {
	q, err := m.LookupQuery(filter)
	if err != nil {
		return nil, err
	}
	return m.selectRecords(ctx, q)
}

// DeleteWhere runs the delete form of LookupQuery and returns the number of
// removed rows. It always removes rows, even for soft-delete models.
func (m *Model) DeleteWhere(ctx context.Context, filter map[string]any) (int64, error) {
	q, err := m.LookupQuery(filter, query.Delete(m.Table))
	if err != nil {
		return 0, err
	}

	n, err := m.manager.store.Delete(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", m.Name, err)
	}

	m.manager.logger.Debug().
		Str("model", m.Name).
		Str("query", q.String()).
		Int64("deleted", n).
		Msg("records deleted")

	return n, nil
}

// Find loads a record by identity. It returns nil, nil when no live record
// has that identity.
func (m *Model) Find(ctx context.Context, id any) (*Record, error) {
	n, ok := storage.ID(id)
	if !ok {
		return nil, nil
	}

	row, err := m.manager.store.Find(ctx, m.Name, n)
	if err != nil {
		return nil, fmt.Errorf("find %s #%d: %w", m.Name, n, err)
	}
	if row == nil || m.softDeleted(row) {
		return nil, nil
	}
	return newRecord(m, row, true), nil
}

// selectRecords executes q directly, bypassing the lookup policy.
func (m *Model) selectRecords(ctx context.Context, q query.Query) ([]*Record, error) {
	rows, err := m.manager.store.Select(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", m.Name, err)
	}

	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		if m.softDeleted(row) {
			continue
		}
		out = append(out, newRecord(m, row, true))
	}
	return out, nil
}

func (m *Model) softDeleted(row map[string]any) bool {
	return m.HasSpecial(convention.FieldDeletedAt) && row[convention.FieldDeletedAt] != nil
}
