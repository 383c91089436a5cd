/*
Package schema defines the declarative types for persisted record models.

A model definition couples a field-rule schema to the operations that create,
update, look up and expose a record: which fields each operation may touch,
which field tuples must stay unique, and which relations the model has.

# Model Definition

A model definition in YAML:

	model: article

	rules:
	  id:        { type: integer, min: 1 }
	  title:     { type: string, required: true, min: 1, max: 200 }
	  slug:      { type: string, pattern: "^[a-z0-9-]+$" }
	  published: { type: [boolean, integer] }
	  tags:      { type: array, children: { "*": { type: string } } }
	  author_id: { type: integer, min: 1 }
	  created_at: { type: integer }
	  updated_at: { type: integer }

	restricted:
	  lookup: [published]
	  update: [slug]
	  output: [drafts]

	unique_keys:
	  - [slug]
	  - [author_id, title]

	relations:
	  author: { kind: parent, model: user, foreign_key: author_id }
	  drafts: { kind: list, model: draft, foreign_key: article_id }

# Rule Types

A rule's type is a single tag or a list of allowed tags:

  - integer: whole number (JSON numbers with no fractional part qualify)
  - number:  any numeric value
  - string:  text value
  - boolean: true/false (1/0 are coerced when the rule also allows boolean)
  - array:   list value; "children: {'*': rule}" validates each element
  - object:  map value; named children validate individual keys
  - null:    explicit null is allowed

min/max bound the value for numbers, the character count for strings and
the element count for arrays.

# Special Fields

created_at, updated_at and deleted_at are lifecycle-managed. They are never
configured directly: declaring a rule for one of them activates its
behavior (timestamps on write, soft delete).

# Parsing

	def, err := schema.ParseFile("models/article.yaml")
	defs, err := schema.ParseDir("models/")

All definitions are validated on parse. Invalid definitions return an error.
*/
package schema
