package convention

import (
	"sort"

	"github.com/artpar/recordbase/core/schema"
)

// Operation is the kind of operation a field or relation is used for.
type Operation string

const (
	OpLookup Operation = "lookup"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpOutput Operation = "output"
)

// Verdict is the outcome of a policy check.
type Verdict int

const (
	// Allowed: the name is known and may be used for the operation.
	Allowed Verdict = iota

	// Unknown: the name is not described by the model at all.
	Unknown

	// Restricted: the name is known but disallowed for the operation.
	Restricted
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case Unknown:
		return "unknown"
	case Restricted:
		return "restricted"
	default:
		return "invalid"
	}
}

// Policy holds the restriction sets of a model.
// Create and update sets always include the identity and special fields.
type Policy struct {
	fields     map[string]bool
	relations  map[string]bool
	restricted map[Operation]map[string]bool
}

func derivePolicy(def schema.Definition, identity string, special []string) Policy {
	p := Policy{
		fields:     make(map[string]bool, len(def.Rules)),
		relations:  make(map[string]bool, len(def.Relations)),
		restricted: make(map[Operation]map[string]bool, 4),
	}
	for name := range def.Rules {
		p.fields[name] = true
	}
	for name := range def.Relations {
		p.relations[name] = true
	}

	forced := append([]string{identity}, special...)

	p.restricted[OpLookup] = toSet(def.Restricted.Lookup)
	p.restricted[OpCreate] = toSet(def.Restricted.Create, forced...)
	p.restricted[OpUpdate] = toSet(def.Restricted.Update, forced...)
	p.restricted[OpOutput] = toSet(def.Restricted.Output)

	return p
}

// Check decides whether name may be used for op. For OpOutput, name is a
// relation name; for all other operations it is a field name.
// The unknown check runs before the restricted check.
func (p Policy) Check(op Operation, name string) Verdict {
	known := p.fields[name]
	if op == OpOutput {
		known = p.relations[name]
	}
	if !known {
		return Unknown
	}
	if p.restricted[op][name] {
		return Restricted
	}
	return Allowed
}

// Restricted returns the sorted restriction set for op.
func (p Policy) Restricted(op Operation) []string {
	set := p.restricted[op]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Allowed returns the sorted fields (or relations, for OpOutput) permitted for op.
func (p Policy) Allowed(op Operation) []string {
	source := p.fields
	if op == OpOutput {
		source = p.relations
	}
	var names []string
	for name := range source {
		if !p.restricted[op][name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func toSet(names []string, extra ...string) map[string]bool {
	set := make(map[string]bool, len(names)+len(extra))
	for _, n := range names {
		set[n] = true
	}
	for _, n := range extra {
		set[n] = true
	}
	return set
}
