package logicsyn

import (
	"fmt"
	"slices"
	"strings"

	"github.com/eqhdl/eqhdl/internal/queryir"
	"github.com/eqhdl/eqhdl/internal/store"
)

// Arg is an atom argument: a variable, or in heads a fresh id named by its
// role.
type Arg struct {
	Var  string
	Role string
}

// V is a variable argument.
func V(name string) Arg { return Arg{Var: name} }

// Fresh is a skolem argument. Within one rule firing every occurrence of a
// role denotes the same id.
func Fresh(role string) Arg { return Arg{Role: role} }

// IsFresh reports whether a is a skolem argument.
func (a Arg) IsFresh() bool { return a.Role != "" }

func (a Arg) String() string {
	if a.IsFresh() {
		return "#" + a.Role
	}
	return a.Var
}

// Atom is rel(id, a, b, cost).
type Atom struct {
	Rel  store.Relation
	ID   Arg
	A    Arg
	B    Arg
	Cost Arg
}

func (a Atom) args() []Arg { return []Arg{a.ID, a.A, a.B, a.Cost} }

func (a Atom) swapped() Atom {
	a.A, a.B = a.B, a.A
	return a
}

func (a Atom) String() string {
	return fmt.Sprintf("%s(%s, %s, %s, %s)", relName(a.Rel), a.ID, a.A, a.B, a.Cost)
}

func relName(r store.Relation) string {
	return strings.TrimSuffix(string(r), "_gates")
}

// columns pairs the relation columns with the atom's arguments.
var columns = [...]string{"id", "a", "b", "cost"}

// Coef is N·Var in a cost guard.
type Coef struct {
	N   int64
	Var string
}

// Sum is a linear expression over body variables.
type Sum []Coef

func (s Sum) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		if c.N == 1 {
			parts[i] = c.Var
		} else {
			parts[i] = fmt.Sprintf("%d*%s", c.N, c.Var)
		}
	}
	return strings.Join(parts, " + ")
}

// Guard is the strict inequality Left > Right.
type Guard struct {
	Left  Sum
	Right Sum
}

// Rule is a positive Horn clause over gate relations.
//
// Atoms listed in Commutative have their operands tried in both orders, so
// a body with k commutative atoms evaluates as 2^k clauses. Clause numbers
// start at 1, the clause with no operand swapped.
type Rule struct {
	Name        string
	Stratum     int
	Body        []Atom
	Commutative []int
	Distinct    [][2]string
	Guard       *Guard
	Head        []Atom
}

func (r Rule) String() string {
	var parts []string
	for _, a := range r.Body {
		parts = append(parts, a.String())
	}
	for _, d := range r.Distinct {
		parts = append(parts, d[0]+" != "+d[1])
	}
	if r.Guard != nil {
		parts = append(parts, r.Guard.Left.String()+" > "+r.Guard.Right.String())
	}
	heads := make([]string, len(r.Head))
	for i, a := range r.Head {
		heads[i] = a.String()
	}
	return fmt.Sprintf("%s: %s => %s", r.Name, strings.Join(parts, ", "), strings.Join(heads, ", "))
}

// FactorOr extracts the common divisor of two conjunctions feeding a
// disjunction: (x∧y) ∨ (x∧z) becomes x ∧ (y∨z).
func FactorOr() Rule { return factor("factor-or", store.OrGates, store.AndGates) }

// FactorAnd is the dual of FactorOr: (x∨y) ∧ (x∨z) becomes x ∨ (y∧z).
func FactorAnd() Rule { return factor("factor-and", store.AndGates, store.OrGates) }

// DefaultRules returns FactorOr and FactorAnd in one stratum.
func DefaultRules() []Rule { return []Rule{FactorOr(), FactorAnd()} }

// factor builds the divisor-extraction rule for an outer gate whose two
// operands are inner gates sharing an operand x.
//
// The guard compares the three body gates against the refactored outer
// plus inner pair. The refactored form also contains the rebuilt outer
// gate, costed at cg, which is why cg appears twice on the right.
func factor(name string, outer, inner store.Relation) Rule {
	return Rule{
		Name: name,
		Body: []Atom{
			{Rel: outer, ID: V("g"), A: V("l"), B: V("r"), Cost: V("cg")},
			{Rel: inner, ID: V("l"), A: V("x"), B: V("y"), Cost: V("cl")},
			{Rel: inner, ID: V("r"), A: V("x"), B: V("z"), Cost: V("cr")},
		},
		Commutative: []int{1, 2},
		Distinct:    [][2]string{{"l", "r"}},
		Guard: &Guard{
			Left:  Sum{{1, "cg"}, {1, "cl"}, {1, "cr"}},
			Right: Sum{{2, "cg"}, {1, "cl"}},
		},
		Head: []Atom{
			{Rel: outer, ID: Fresh("n1"), A: V("y"), B: V("z"), Cost: V("cg")},
			{Rel: inner, ID: Fresh("n2"), A: V("x"), B: Fresh("n1"), Cost: V("cl")},
			{Rel: outer, ID: V("g"), A: Fresh("n2"), B: Fresh("n2"), Cost: V("cg")},
		},
	}
}

// Validate checks that r is range restricted: every head variable, guard
// variable and disequality occurs in the body, and bodies carry no fresh
// arguments.
func (r Rule) Validate() error {
	fail := func(format string, args ...any) error {
		e := newError(ErrCodeInvalidRule, nil, format, args...)
		e.Rule = r.Name
		return e
	}
	if r.Name == "" {
		return fail("rule has no name")
	}
	if len(r.Body) == 0 || len(r.Head) == 0 {
		return fail("rule needs a body and a head")
	}

	bound := map[string]bool{}
	for _, a := range r.Body {
		if !a.Rel.Valid() {
			return fail("unknown relation %q", a.Rel)
		}
		for _, arg := range a.args() {
			if arg.IsFresh() || arg.Var == "" {
				return fail("body atom %s needs variables only", a)
			}
			bound[arg.Var] = true
		}
	}
	for _, i := range r.Commutative {
		if i < 0 || i >= len(r.Body) {
			return fail("commutative atom %d out of range", i)
		}
	}
	for _, d := range r.Distinct {
		if !bound[d[0]] || !bound[d[1]] {
			return fail("disequality %s != %s over unbound variables", d[0], d[1])
		}
	}
	if r.Guard != nil {
		for _, c := range slices.Concat(r.Guard.Left, r.Guard.Right) {
			if !bound[c.Var] {
				return fail("guard variable %s is unbound", c.Var)
			}
			if c.N == 0 {
				return fail("guard coefficient of %s is zero", c.Var)
			}
		}
	}
	for _, a := range r.Head {
		if !a.Rel.Valid() {
			return fail("unknown relation %q", a.Rel)
		}
		for _, arg := range a.args() {
			if !arg.IsFresh() && !bound[arg.Var] {
				return fail("head atom %s uses unbound variable %q", a, arg.Var)
			}
		}
	}
	return nil
}

// Clauses returns the body of every clause as a query, in clause order.
func (r Rule) Clauses() ([]queryir.Query, error) {
	k := len(r.Commutative)
	out := make([]queryir.Query, 0, 1<<k)
	for mask := 0; mask < 1<<k; mask++ {
		body := slices.Clone(r.Body)
		for j, idx := range r.Commutative {
			// The last commutative atom flips fastest.
			if mask&(1<<(k-1-j)) != 0 {
				body[idx] = body[idx].swapped()
			}
		}
		q, err := r.compileBody(body)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// compileBody joins the atoms left to right. The first occurrence of a
// variable binds it; later occurrences become equalities in the ON of the
// atom they appear in.
func (r Rule) compileBody(body []Atom) (queryir.Query, error) {
	first := map[string]queryir.Field{}
	var q queryir.Query

	for i, atom := range body {
		alias := fmt.Sprintf("t%d", i)
		sel := queryir.Select{From: string(atom.Rel), As: alias, Bindings: map[string]string{}}
		var preds []queryir.Predicate

		for c, arg := range atom.args() {
			f := queryir.F(alias, columns[c])
			if prev, seen := first[arg.Var]; seen {
				preds = append(preds, queryir.FieldEquals{Left: f, Right: prev})
				continue
			}
			first[arg.Var] = f
			sel.Bindings[columns[c]] = arg.Var
		}

		if i == len(body)-1 {
			for _, d := range r.Distinct {
				preds = append(preds, queryir.FieldNotEquals{Left: first[d[0]], Right: first[d[1]]})
			}
			if r.Guard != nil {
				preds = append(preds, queryir.Greater{
					Left:  linear(r.Guard.Left, first),
					Right: linear(r.Guard.Right, first),
				})
			}
		}

		if i == 0 {
			if len(preds) > 0 {
				sel.Filter = queryir.And{Predicates: preds}
			}
			q = sel
			continue
		}
		q = queryir.Join{Left: q, Right: sel, On: queryir.And{Predicates: preds}}
	}

	if res := queryir.Validate(q); !res.Valid {
		e := newError(ErrCodeInvalidRule, nil, "body: %s", strings.Join(res.Problems, "; "))
		e.Rule = r.Name
		return nil, e
	}
	return q, nil
}

func linear(s Sum, fields map[string]queryir.Field) queryir.Linear {
	out := make(queryir.Linear, len(s))
	for i, c := range s {
		out[i] = queryir.Term{Coef: c.N, Field: fields[c.Var]}
	}
	return out
}

// instantiate grounds atoms under binding. fresh resolves skolem roles.
func instantiate(atoms []Atom, binding map[string]int64, fresh func(role string) (int64, error)) ([]store.Gate, error) {
	gates := make([]store.Gate, len(atoms))
	for i, a := range atoms {
		vals := make([]int64, 4)
		for c, arg := range a.args() {
			if !arg.IsFresh() {
				vals[c] = binding[arg.Var]
				continue
			}
			if fresh == nil {
				return nil, fmt.Errorf("fresh %s in body atom %s", arg, a)
			}
			id, err := fresh(arg.Role)
			if err != nil {
				return nil, err
			}
			vals[c] = id
		}
		gates[i] = store.Gate{Rel: a.Rel, ID: vals[0], A: vals[1], B: vals[2], Cost: vals[3]}
	}
	return gates, nil
}
