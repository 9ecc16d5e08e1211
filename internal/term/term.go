// Package term defines the immutable term algebra the rewriting bridge
// exchanges with the saturation engine.
//
// A Term is one of:
//   - I64: integer literal, printed as 5
//   - Str: string literal, printed quoted
//   - Ref: value-reference leaf naming an IR value, printed as %3
//   - Var: pattern variable, legal only in rule patterns
//   - App: constructor application, printed as (Sym child...)
//
// Terms are values: never mutate an App's Args after construction.
package term

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eqhdl/eqhdl/internal/ir"
)

// Term is a sealed interface; only the types in this package implement it.
type Term interface {
	isTerm()
	String() string
}

// I64 is an integer literal.
type I64 int64

// Str is a string literal.
type Str string

// Ref refers to a value of the unit being encoded.
type Ref uint32

// Var is a pattern variable.
type Var string

// App applies a constructor symbol to ordered children.
type App struct {
	Sym  string
	Args []Term
}

func (I64) isTerm()  {}
func (Str) isTerm()  {}
func (Ref) isTerm()  {}
func (Var) isTerm()  {}
func (*App) isTerm() {}

func (t I64) String() string { return strconv.FormatInt(int64(t), 10) }
func (t Str) String() string { return strconv.Quote(string(t)) }
func (t Ref) String() string { return "%" + strconv.FormatUint(uint64(t), 10) }
func (t Var) String() string { return string(t) }

func (t *App) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *App) write(sb *strings.Builder) {
	sb.WriteByte('(')
	sb.WriteString(t.Sym)
	for _, a := range t.Args {
		sb.WriteByte(' ')
		if app, ok := a.(*App); ok {
			app.write(sb)
		} else {
			sb.WriteString(a.String())
		}
	}
	sb.WriteByte(')')
}

// New builds an application.
func New(sym string, args ...Term) *App {
	return &App{Sym: sym, Args: args}
}

// Equal reports structural equality.
func Equal(a, b Term) bool {
	switch x := a.(type) {
	case I64, Str, Ref, Var:
		return a == b
	case *App:
		y, ok := b.(*App)
		if !ok || x.Sym != y.Sym || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Size counts constructor applications, the default extraction cost.
func Size(t Term) int {
	app, ok := t.(*App)
	if !ok {
		return 0
	}
	n := 1
	for _, a := range app.Args {
		n += Size(a)
	}
	return n
}

// Walk visits t and its descendants in children-before-parent order.
// Returning false from fn stops the walk.
func Walk(t Term, fn func(Term) bool) bool {
	if app, ok := t.(*App); ok {
		for _, a := range app.Args {
			if !Walk(a, fn) {
				return false
			}
		}
	}
	return fn(t)
}

// Vars returns the pattern variables of t in first-occurrence order.
func Vars(t Term) []Var {
	var out []Var
	seen := map[Var]bool{}
	var visit func(Term)
	visit = func(t Term) {
		switch x := t.(type) {
		case Var:
			if !seen[x] {
				seen[x] = true
				out = append(out, x)
			}
		case *App:
			for _, a := range x.Args {
				visit(a)
			}
		}
	}
	visit(t)
	return out
}

// Ground reports whether t contains no pattern variables.
func Ground(t Term) bool {
	return Walk(t, func(t Term) bool {
		_, isVar := t.(Var)
		return !isVar
	})
}

// Hash is a content hash of t's printed form.
func Hash(t Term) string {
	return ir.HashWithDomain(ir.DomainTerm, []byte(t.String()))
}

// Substitute replaces pattern variables by their bindings. Unbound
// variables are an error.
func Substitute(t Term, env map[Var]Term) (Term, error) {
	switch x := t.(type) {
	case Var:
		v, ok := env[x]
		if !ok {
			return nil, fmt.Errorf("unbound variable %s", x)
		}
		return v, nil
	case *App:
		args := make([]Term, len(x.Args))
		for i, a := range x.Args {
			s, err := Substitute(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = s
		}
		return &App{Sym: x.Sym, Args: args}, nil
	}
	return t, nil
}
