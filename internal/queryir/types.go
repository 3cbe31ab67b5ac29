package queryir

// Query represents an abstract query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Select returns records of one entity.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter> LIMIT <top>
//
// Columns lists the attributes to load; nil loads every attribute and an
// empty non-nil slice loads none (ids only). Top of zero means unbounded.
//
// Example:
//
//	Select{
//	  From: "contact",
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "firstname", Value: "John"},
//	    Equals{Field: "lastname", Value: "Doe"},
//	  }},
//	}
type Select struct {
	From    string    // entity logical name
	Filter  Predicate // nil = no filter
	Columns []string
	Top     int
}

func (Select) queryNode() {}

// AllColumns reports whether every attribute should be loaded.
func (s Select) AllColumns() bool {
	return s.Columns == nil
}

// Equals is true when the attribute holds exactly Value.
// Records without the attribute never match.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// NotIn is true when the attribute holds none of Values.
// Records without the attribute match.
type NotIn struct {
	Field  string
	Values []any
}

func (NotIn) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where is a convenience constructor for a conjunction of equalities,
// preserving argument order.
func Where(preds ...Predicate) And {
	return And{Predicates: preds}
}
