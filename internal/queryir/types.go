package queryir

import (
	"fmt"
	"strings"
)

// Query is a conjunctive query producing variable bindings.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate is a filter condition over fields in scope.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Field names a column of an aliased relation.
type Field struct {
	Alias  string
	Column string
}

// F is shorthand for Field{alias, column}.
func F(alias, column string) Field { return Field{Alias: alias, Column: column} }

func (f Field) String() string { return f.Alias + "." + f.Column }

// Select is one body atom.
//
// Semantics:
//
//	SELECT <bindings> FROM <from> AS <as> WHERE <filter>
//
// Example, the atom or(g, l, r, cg):
//
//	Select{
//	  From: "or_gates",
//	  As:   "g",
//	  Bindings: map[string]string{
//	    "id": "g", "a": "l", "b": "r", "cost": "cg",
//	  },
//	}
//
// As defaults to From. Within a Join every alias must be distinct.
type Select struct {
	From     string            // relation name
	As       string            // alias
	Filter   Predicate         // WHERE conditions (nil = no filter)
	Bindings map[string]string // column → variable
}

func (Select) queryNode() {}

// Alias returns As, or From when As is empty.
func (s Select) Alias() string {
	if s.As != "" {
		return s.As
	}
	return s.From
}

// Join is an inner join of two queries.
//
// Semantics:
//
//	<left> INNER JOIN <right> ON <on>
//
// The bindings of a join are the union of both sides. On may reference any
// alias of either side.
type Join struct {
	Left  Query
	Right Query
	On    Predicate
}

func (Join) queryNode() {}

// Equals compares a field with a literal.
//
//	g.cost = 5
type Equals struct {
	Field Field
	Value int64
}

func (Equals) predicateNode() {}

// FieldEquals compares two fields; it is how shared variables join atoms.
//
//	l.id = g.a
type FieldEquals struct {
	Left  Field
	Right Field
}

func (FieldEquals) predicateNode() {}

// FieldNotEquals is the disequality l ≠ r.
type FieldNotEquals struct {
	Left  Field
	Right Field
}

func (FieldNotEquals) predicateNode() {}

// Term is one summand Coef·Field of a linear expression.
type Term struct {
	Coef  int64
	Field Field
}

// Linear is a sum of terms. The empty sum is 0.
type Linear []Term

func (l Linear) String() string {
	if len(l) == 0 {
		return "0"
	}
	parts := make([]string, len(l))
	for i, t := range l {
		if t.Coef == 1 {
			parts[i] = t.Field.String()
		} else {
			parts[i] = fmt.Sprintf("%d*%s", t.Coef, t.Field)
		}
	}
	return strings.Join(parts, " + ")
}

// Greater is a strict linear inequality, used for cost guards.
//
//	g.cost + l.cost + r.cost > 2*g.cost + l.cost
type Greater struct {
	Left  Linear
	Right Linear
}

func (Greater) predicateNode() {}

// And is a conjunction. Empty Predicates means "always true".
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
