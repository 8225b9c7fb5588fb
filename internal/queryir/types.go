package queryir

// Query represents an abstract query over stored entities.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition over entity fields.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal
//   - Prefix: text field starts with literal (case-sensitive)
//   - Between: integer field within an inclusive range
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()
}

// Value is a literal compared against a field. Text and Int are the only
// implementations.
type Value interface {
	valueNode()
}

// Text is a string literal.
type Text string

func (Text) valueNode() {}

// Int is an integer literal. Activity and message ids above MaxInt64 are
// stored as their two's complement, so Int(int64(id)) matches them.
type Int int64

func (Int) valueNode() {}

// Field names a filterable entity column.
type Field string

const (
	FieldSeq    Field = "seq"
	FieldID     Field = "id"
	FieldKind   Field = "kind"
	FieldName   Field = "name"
	FieldNameID Field = "name_id"
	FieldCausal Field = "causal_msg"
	FieldURI    Field = "uri"
)

// fieldTypes maps each field to the literal type it compares against.
var fieldTypes = map[Field]string{
	FieldSeq:    "int",
	FieldID:     "int",
	FieldKind:   "text",
	FieldName:   "text",
	FieldNameID: "int",
	FieldCausal: "int",
	FieldURI:    "text",
}

// IsText reports whether f holds text.
func (f Field) IsText() bool { return fieldTypes[f] == "text" }

// IsInt reports whether f holds integers.
func (f Field) IsInt() bool { return fieldTypes[f] == "int" }

// Known reports whether f is a filterable column.
func (f Field) Known() bool {
	_, ok := fieldTypes[f]
	return ok
}

// Select reads the entities of one session.
//
// Semantics:
//
//	SELECT <entity columns> FROM entities
//	WHERE session_id = <Session> AND <Filter>
//	ORDER BY seq, id
//	LIMIT <Limit>
//
// A nil Filter matches every entity. Limit <= 0 means no limit.
type Select struct {
	Session string
	Filter  Predicate
	Limit   int
}

func (Select) queryNode() {}

// Equals compares a field to a literal.
//
//	Equals{Field: FieldKind, Value: Text("Actor")}
type Equals struct {
	Field Field
	Value Value
}

func (Equals) predicateNode() {}

// Prefix matches text fields starting with Value. The comparison is
// case-sensitive; an empty Value matches every row.
type Prefix struct {
	Field Field
	Value string
}

func (Prefix) predicateNode() {}

// Between matches integer fields in [Min, Max].
type Between struct {
	Field Field
	Min   int64
	Max   int64
}

func (Between) predicateNode() {}

// And is a conjunction of predicates. Empty Predicates is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// All builds an And from the non-nil predicates, collapsing to the single
// predicate or nil where that is equivalent.
func All(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
