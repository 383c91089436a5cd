package record

import (
	"context"
	"fmt"

	"github.com/artpar/recordbase/core/convention"
	"github.com/artpar/recordbase/core/query"
	"github.com/artpar/recordbase/core/schema"
)

// Relation is a declared relation of a model. It is one of ParentRelation,
// ChildRelation or ListRelation.
type Relation interface {
	// Name is the relation name on the owning model.
	Name() string

	// Kind tags the variant.
	Kind() schema.RelationKind

	// Resolve loads the related records of r.
	Resolve(ctx context.Context, r *Record) (Related, error)
}

// Related is a resolved relation value: a single record (possibly nil) or a
// list of records.
type Related struct {
	One  *Record
	Many []*Record
	List bool
}

// One wraps a single related record; nil means absent.
func One(r *Record) Related { return Related{One: r} }

// Many wraps a list of related records.
func Many(rs []*Record) Related { return Related{Many: rs, List: true} }

type relationBase struct {
	name       string
	target     *Model
	foreignKey string
}

func (b relationBase) Name() string { return b.name }

// ParentRelation: the owner holds the foreign key of the target's identity.
type ParentRelation struct{ relationBase }

// Kind implements Relation.
func (ParentRelation) Kind() schema.RelationKind { return schema.RelationParent }

// Resolve loads the parent named by the owner's foreign key. An unset key or
// a missing parent resolves to nil.
func (p ParentRelation) Resolve(ctx context.Context, r *Record) (Related, error) {
	ref := r.data[p.foreignKey]
	if isUnsetRef(ref) {
		return One(nil), nil
	}
	parent, err := p.target.Find(ctx, ref)
	if err != nil {
		return Related{}, err
	}
	return One(parent), nil
}

// ChildRelation: a single target holds the foreign key of the owner.
type ChildRelation struct{ relationBase }

// Kind implements Relation.
func (ChildRelation) Kind() schema.RelationKind { return schema.RelationChild }

// Resolve loads the first target pointing at the owner, or nil.
func (c ChildRelation) Resolve(ctx context.Context, r *Record) (Related, error) {
	rs, err := referencing(ctx, c.relationBase, r)
	if err != nil || len(rs) == 0 {
		return One(nil), err
	}
	return One(rs[0]), nil
}

// ListRelation: any number of targets hold the foreign key of the owner.
type ListRelation struct{ relationBase }

// Kind implements Relation.
func (ListRelation) Kind() schema.RelationKind { return schema.RelationList }

// Resolve loads every target pointing at the owner, in identity order.
func (l ListRelation) Resolve(ctx context.Context, r *Record) (Related, error) {
	rs, err := referencing(ctx, l.relationBase, r)
	if err != nil {
		return Related{}, err
	}
	return Many(rs), nil
}

func referencing(ctx context.Context, b relationBase, r *Record) ([]*Record, error) {
	id := r.ID()
	if id == nil {
		return nil, nil
	}
	return b.target.selectRecords(ctx, query.Select(b.target.Table).Where(b.foreignKey, id))
}

// Relation returns the named relation of the model.
func (m *Model) Relation(name string) (Relation, error) {
	def, ok := m.Relations[name]
	if !ok {
		return nil, fieldError(ErrUnknownRelation, m.Name, name, convention.OpOutput)
	}

	target, ok := m.manager.Model(def.Model)
	if !ok {
		return nil, fmt.Errorf("relation %s.%s: model %q not registered", m.Name, name, def.Model)
	}

	base := relationBase{name: name, target: target, foreignKey: def.ForeignKey}
	switch def.Kind {
	case schema.RelationParent:
		return ParentRelation{base}, nil
	case schema.RelationChild:
		return ChildRelation{base}, nil
	case schema.RelationList:
		return ListRelation{base}, nil
	default:
		return nil, fmt.Errorf("relation %s.%s: unknown kind %q", m.Name, name, def.Kind)
	}
}

// Rel returns the named relation of r, resolving and caching it on first use.
func (r *Record) Rel(ctx context.Context, name string) (Related, error) {
	r.mu.Lock()
	cached, ok := r.relations[name]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	rel, err := r.model.Relation(name)
	if err != nil {
		return Related{}, err
	}
	related, err := rel.Resolve(ctx, r)
	if err != nil {
		return Related{}, fmt.Errorf("resolve %s.%s: %w", r.model.Name, name, err)
	}

	r.SetRelated(name, related)
	return related, nil
}

// SetRelated stores a relation value, replacing any cached one. Setting
// One(nil) marks the relation as resolved and absent.
func (r *Record) SetRelated(name string, related Related) {
	r.mu.Lock()
	r.relations[name] = related
	r.mu.Unlock()
}
