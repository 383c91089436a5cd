package schema

// Constraint defines an additional named check for a field.
// Constraints are declared in the schema and enforced by the validator.
type Constraint struct {
	// Type is the constraint type (min_length, max_length, pattern, etc.)
	Type ConstraintType `yaml:"type" json:"type"`

	// Value is the constraint parameter (number, regex pattern, list, etc.)
	Value any `yaml:"value" json:"value"`

	// Message is the custom error message (optional).
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// ConstraintType identifies the type of constraint.
type ConstraintType string

const (
	// String constraints
	ConstraintMinLength ConstraintType = "min_length" // Minimum string length
	ConstraintMaxLength ConstraintType = "max_length" // Maximum string length
	ConstraintPattern   ConstraintType = "pattern"    // Regex pattern match
	ConstraintNotEmpty  ConstraintType = "not_empty"  // String must not be empty/whitespace

	// Value constraints
	ConstraintOneOf ConstraintType = "one_of" // Value must be one of list
)

// IsKnown reports whether t is a supported constraint type.
func (t ConstraintType) IsKnown() bool {
	switch t {
	case ConstraintMinLength, ConstraintMaxLength, ConstraintPattern,
		ConstraintNotEmpty, ConstraintOneOf:
		return true
	default:
		return false
	}
}
