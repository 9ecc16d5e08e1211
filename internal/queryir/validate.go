package queryir

import (
	"fmt"
	"slices"
)

// ValidationResult lists the problems found in a query. A query with
// problems still has a meaning to some backends, but the rule engine only
// runs valid ones.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	Problems []string
}

// Validate checks that a query is a well-formed rule body:
//  1. Explicit bindings - every Select binds at least one column
//  2. Distinct aliases - no alias is used twice
//  3. Scoped fields - predicates reference aliases in scope
//  4. Joined - every Join has an On predicate
//  5. Single binding - no variable is bound by two columns
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		problems: []string{},
		vars:     map[string]Field{},
	}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
	aliases  []string
	vars     map[string]Field
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addProblem("nil query")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Join:
		v.validateJoin(query)
	case *Join:
		v.validateJoin(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	alias := sel.Alias()
	if slices.Contains(v.aliases, alias) {
		v.addProblem("alias %q used twice", alias)
	}
	v.aliases = append(v.aliases, alias)

	if len(sel.Bindings) == 0 {
		v.addProblem("%s binds no columns", alias)
	}
	cols := make([]string, 0, len(sel.Bindings))
	for col := range sel.Bindings {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	for _, col := range cols {
		name := sel.Bindings[col]
		if prev, dup := v.vars[name]; dup {
			v.addProblem("variable %s bound by both %s and %s", name, prev, F(alias, col))
			continue
		}
		v.vars[name] = F(alias, col)
	}

	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validateJoin(join Join) {
	v.validateQuery(join.Left)
	v.validateQuery(join.Right)

	if join.On == nil {
		v.addProblem("join without ON predicate")
		return
	}
	v.validatePredicate(join.On)
}

// validatePredicate runs after the sides it may reference were visited, so
// every alias of the enclosing join is already in scope.
func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return
	}

	switch pred := p.(type) {
	case Equals:
		v.checkField(pred.Field)
	case *Equals:
		v.checkField(pred.Field)
	case FieldEquals:
		v.checkField(pred.Left)
		v.checkField(pred.Right)
	case *FieldEquals:
		v.checkField(pred.Left)
		v.checkField(pred.Right)
	case FieldNotEquals:
		v.checkField(pred.Left)
		v.checkField(pred.Right)
	case *FieldNotEquals:
		v.checkField(pred.Left)
		v.checkField(pred.Right)
	case Greater:
		v.validateGreater(pred)
	case *Greater:
		v.validateGreater(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) checkField(f Field) {
	if f.Column == "" {
		v.addProblem("field %s has no column", f)
	}
	if !slices.Contains(v.aliases, f.Alias) {
		v.addProblem("field %s references alias %q out of scope", f, f.Alias)
	}
}

func (v *validator) validateGreater(g Greater) {
	for _, side := range []Linear{g.Left, g.Right} {
		for _, t := range side {
			if t.Coef == 0 {
				v.addProblem("zero coefficient on %s", t.Field)
			}
			v.checkField(t.Field)
		}
	}
}

func (v *validator) validateAnd(and And) {
	for _, subPred := range and.Predicates {
		v.validatePredicate(subPred)
	}
}
