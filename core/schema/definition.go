package schema

// IdentityField is the name of the field holding a record's identity.
const IdentityField = "id"

// IdentityRule is the rule applied to the identity field when a definition
// does not declare one.
func IdentityRule() Rule {
	return Rule{Type: Types{TypeInteger}, Min: Bound(1)}
}

// Definition is the root declaration of a persisted record model.
// Everything the runtime needs is derived from it.
type Definition struct {
	// Name is the model name (e.g., "user", "test_model").
	Name string `yaml:"model"`

	// Table is the storage table. Derived from Name when empty.
	Table string `yaml:"table,omitempty"`

	// Rules is the field-rule schema.
	Rules Rules `yaml:"rules"`

	// IgnoreExtraFields makes unknown fields be skipped instead of rejected.
	IgnoreExtraFields bool `yaml:"ignore_extra_fields,omitempty"`

	// Restricted lists fields and relations disallowed per operation.
	Restricted Restrictions `yaml:"restricted,omitempty"`

	// UniqueKeys lists field tuples that must be jointly unique.
	UniqueKeys [][]string `yaml:"unique_keys,omitempty"`

	// Secret lists string fields whose values are stored hashed and never
	// rendered in output.
	Secret []string `yaml:"secret,omitempty"`

	// Relations declares the model's relations by name.
	Relations map[string]RelationDef `yaml:"relations,omitempty"`

	// Meta contains optional metadata.
	Meta DefinitionMeta `yaml:"meta,omitempty"`
}

// Restrictions are the explicit restriction sets of a model.
type Restrictions struct {
	// Lookup lists fields that may not be used as lookup filters.
	Lookup []string `yaml:"lookup,omitempty"`

	// Create lists fields that may not be set on create.
	Create []string `yaml:"create,omitempty"`

	// Update lists fields that may not be changed on update.
	Update []string `yaml:"update,omitempty"`

	// Output lists relations that may not be requested in extended output.
	Output []string `yaml:"output,omitempty"`
}

// RelationKind tags the variant of a relation.
type RelationKind string

const (
	// RelationParent: the owner holds ForeignKey pointing at the target's identity.
	RelationParent RelationKind = "parent"

	// RelationChild: a single target holds ForeignKey pointing at the owner.
	RelationChild RelationKind = "child"

	// RelationList: any number of targets hold ForeignKey pointing at the owner.
	RelationList RelationKind = "list"
)

// RelationDef declares a relation of a model.
type RelationDef struct {
	Kind       RelationKind `yaml:"kind"`
	Model      string       `yaml:"model"`
	ForeignKey string       `yaml:"foreign_key"`
}

// DefinitionMeta contains optional model metadata.
type DefinitionMeta struct {
	Version     string `yaml:"version,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// IsSecret reports whether name is a secret field.
func (d Definition) IsSecret(name string) bool {
	for _, s := range d.Secret {
		if s == name {
			return true
		}
	}
	return false
}

// HasField reports whether name is a field of the model, counting the
// implied identity field.
func (d Definition) HasField(name string) bool {
	return name == IdentityField || d.Rules.Has(name)
}

// WithDefaults returns a copy of d with the identity rule implied.
// The caller's Rules map is never modified.
func (d Definition) WithDefaults() Definition {
	if d.Rules.Has(IdentityField) {
		return d
	}
	rules := d.Rules.Clone()
	rules[IdentityField] = IdentityRule()
	d.Rules = rules
	return d
}
