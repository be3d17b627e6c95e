package store

// Op is a comparison operator usable in a predicate.
type Op string

// Supported predicate operators. Predicates combine with logical AND;
// there is no OR in the query model.
const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Predicate is a single field comparison against a collection's records.
// Field is the JSON field name as it appears in the stored document
// (e.g. "dueDate", "deckId"). For OpIn, Values holds the candidate set
// and Value is ignored.
type Predicate struct {
	Field  string
	Op     Op
	Value  any
	Values []any
}

// Eq matches records whose field equals the given value.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// Ne matches records whose field does not equal the given value.
func Ne(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpNe, Value: value}
}

// Gt matches records whose field is strictly greater than the given value.
func Gt(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpGt, Value: value}
}

// Gte matches records whose field is greater than or equal to the given value.
func Gte(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpGte, Value: value}
}

// Lt matches records whose field is strictly less than the given value.
func Lt(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpLt, Value: value}
}

// Lte matches records whose field is less than or equal to the given value.
func Lte(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpLte, Value: value}
}

// In matches records whose field equals any of the given values.
func In(field string, values ...any) Predicate {
	return Predicate{Field: field, Op: OpIn, Values: values}
}

// Query describes a filtered, ordered, paginated scan over a collection.
// The zero value scans the whole collection in unspecified order.
type Query struct {
	// Where lists predicates combined with logical AND.
	Where []Predicate

	// OrderBy lists JSON field names to sort by, applied left to right.
	OrderBy []string

	// Desc reverses the sort direction for all OrderBy fields.
	Desc bool

	// Limit caps the number of returned records; zero means no cap.
	Limit int

	// Offset skips that many records after ordering.
	Offset int
}
