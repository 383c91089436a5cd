package record

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/artpar/recordbase/core/convention"
)

// RelationSeparator separates the segments of a requested relation path,
// e.g. "author:posts".
const RelationSeparator = ":"

// OutputPrefix is prepended to relation names in extended output keys.
const OutputPrefix = ":"

// RelationTree is the parsed form of a set of requested relation paths.
// A relation renders only when its full path was requested: "a:b" alone
// renders nothing, "a" and "a:b" render a with b nested.
type RelationTree struct {
	requested bool
	names     []string
	children  map[string]*RelationTree
}

// ParseRelations builds a tree from relation paths.
func ParseRelations(paths ...string) (*RelationTree, error) {
	root := &RelationTree{}
	for _, path := range paths {
		segments := strings.Split(path, RelationSeparator)
		node := root
		for _, seg := range segments {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				return nil, fmt.Errorf("relation path %q has an empty segment", path)
			}
			node = node.child(seg, true)
		}
		node.requested = true
	}
	return root, nil
}

// Requested returns the names requested at this level, in request order.
func (t *RelationTree) Requested() []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, name := range t.names {
		if t.children[name].requested {
			out = append(out, name)
		}
	}
	return out
}

// Sub returns the paths scoped under name. It is never nil.
func (t *RelationTree) Sub(name string) *RelationTree {
	if t == nil {
		return &RelationTree{}
	}
	if sub := t.child(name, false); sub != nil {
		return sub
	}
	return &RelationTree{}
}

// Paths renders the tree back to relation paths.
func (t *RelationTree) Paths() []string {
	var out []string
	t.walk("", func(path string) { out = append(out, path) })
	return out
}

func (t *RelationTree) walk(prefix string, fn func(string)) {
	if t == nil {
		return
	}
	for _, name := range t.names {
		node := t.children[name]
		path := name
		if prefix != "" {
			path = prefix + RelationSeparator + name
		}
		if node.requested {
			fn(path)
		}
		node.walk(path, fn)
	}
}

func (t *RelationTree) child(name string, create bool) *RelationTree {
	if node, ok := t.children[name]; ok {
		return node
	}
	if !create {
		return nil
	}
	if t.children == nil {
		t.children = make(map[string]*RelationTree)
	}
	node := &RelationTree{}
	t.children[name] = node
	t.names = append(t.names, name)
	return node
}

// Output returns the base public projection of the record.
func (r *Record) Output() map[string]any {
	if r.model.hooks.Output != nil {
		return copyData(r.model.hooks.Output(r))
	}
	return map[string]any{r.model.Identity: r.ID()}
}

// FormatOutput returns the projection for mode. The unset mode yields Output.
func (r *Record) FormatOutput(mode string) map[string]any {
	if r.model.hooks.FormatOutput != nil {
		return copyData(r.model.hooks.FormatOutput(r, mode))
	}
	return r.Output()
}

// ExtendedOutput renders the record with the requested relations nested under
// ":<name>" keys. See RenderTree.
func (r *Record) ExtendedOutput(ctx context.Context, relations []string, mode string) (map[string]any, error) {
	tree, err := ParseRelations(relations...)
	if err != nil {
		return nil, err
	}
	return r.RenderTree(ctx, tree, mode)
}

// RenderTree renders FormatOutput(mode) plus every relation requested at the
// top of tree. Every name is checked against the output policy before any
// relation is resolved. Related records render recursively with the paths
// scoped under their relation and the mode "relation:<Model>.<name>".
// An absent single relation renders as nil; list elements render
// concurrently and keep their resolution order.
func (r *Record) RenderTree(ctx context.Context, tree *RelationTree, mode string) (map[string]any, error) {
	m := r.model
	out := r.FormatOutput(mode)

	names := tree.Requested()
	for _, name := range names {
		switch m.Policy.Check(convention.OpOutput, name) {
		case convention.Unknown:
			return nil, fieldError(ErrUnknownRelation, m.Name, name, convention.OpOutput)
		case convention.Restricted:
			return nil, fieldError(ErrRestrictedRelation, m.Name, name, convention.OpOutput)
		}
	}

	for _, name := range names {
		related, err := r.Rel(ctx, name)
		if err != nil {
			return nil, err
		}

		sub := tree.Sub(name)
		subMode := fmt.Sprintf("relation:%s.%s", m.Name, name)

		switch {
		case related.List:
			rendered, err := renderList(ctx, related.Many, sub, subMode)
			if err != nil {
				return nil, err
			}
			out[OutputPrefix+name] = rendered
		case related.One == nil:
			out[OutputPrefix+name] = nil
		default:
			rendered, err := related.One.RenderTree(ctx, sub, subMode)
			if err != nil {
				return nil, err
			}
			out[OutputPrefix+name] = rendered
		}
	}

	return out, nil
}

func renderList(ctx context.Context, rs []*Record, tree *RelationTree, mode string) ([]map[string]any, error) {
	out := make([]map[string]any, len(rs))
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range rs {
		i, r := i, r
		g.Go(func() error {
			rendered, err := r.RenderTree(ctx, tree, mode)
			if err != nil {
				return err
			}
			out[i] = rendered
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
