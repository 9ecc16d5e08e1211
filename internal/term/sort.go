package term

import "fmt"

// Sort names a term sort.
type Sort string

// Built-in sorts. Primitive literal sorts follow the DSL's spelling.
const (
	SortI64    Sort = "i64"
	SortString Sort = "String"
	SortExpr   Sort = "Expr"
)

// Constructor declares a constructor symbol: its result sort and child sorts.
// A variadic constructor accepts any number of children of Args[0].
type Constructor struct {
	Name     string
	Sort     Sort
	Args     []Sort
	Variadic bool
}

// Signature resolves constructor declarations.
type Signature interface {
	Constructor(sym string) (Constructor, bool)
}

// SortError reports an ill-typed term.
type SortError struct {
	Term    string
	Message string
}

func (e *SortError) Error() string {
	return fmt.Sprintf("ill-typed term %s: %s", e.Term, e.Message)
}

// Check verifies that t has sort want under sig. Variables are rejected;
// use CheckPattern for rule patterns.
func Check(sig Signature, t Term, want Sort) error {
	return check(sig, t, want, nil)
}

// CheckPattern verifies a rule pattern. Each variable must be used at a
// single sort across the pattern; vars accumulates the sorts seen so far and
// may be shared between the two sides of a rewrite.
func CheckPattern(sig Signature, t Term, want Sort, vars map[Var]Sort) error {
	if vars == nil {
		vars = map[Var]Sort{}
	}
	return check(sig, t, want, vars)
}

// SortOf infers the sort of a ground term.
func SortOf(sig Signature, t Term) (Sort, error) {
	switch x := t.(type) {
	case I64:
		return SortI64, nil
	case Str:
		return SortString, nil
	case Ref:
		return SortExpr, nil
	case *App:
		c, ok := sig.Constructor(x.Sym)
		if !ok {
			return "", &SortError{Term: t.String(), Message: "unknown constructor " + x.Sym}
		}
		if err := check(sig, t, c.Sort, nil); err != nil {
			return "", err
		}
		return c.Sort, nil
	}
	return "", &SortError{Term: t.String(), Message: "cannot infer the sort of a variable"}
}

func check(sig Signature, t Term, want Sort, vars map[Var]Sort) error {
	mismatch := func(got Sort) error {
		return &SortError{Term: t.String(), Message: fmt.Sprintf("expected %s, got %s", want, got)}
	}
	switch x := t.(type) {
	case I64:
		if want != SortI64 {
			return mismatch(SortI64)
		}
	case Str:
		if want != SortString {
			return mismatch(SortString)
		}
	case Ref:
		if want != SortExpr {
			return mismatch(SortExpr)
		}
	case Var:
		if vars == nil {
			return &SortError{Term: t.String(), Message: "pattern variable in ground term"}
		}
		if prev, ok := vars[x]; ok && prev != want {
			return &SortError{Term: t.String(), Message: fmt.Sprintf("variable used as %s and %s", prev, want)}
		}
		vars[x] = want
	case *App:
		c, ok := sig.Constructor(x.Sym)
		if !ok {
			return &SortError{Term: t.String(), Message: "unknown constructor " + x.Sym}
		}
		if c.Sort != want {
			return mismatch(c.Sort)
		}
		if c.Variadic {
			for _, a := range x.Args {
				if err := check(sig, a, c.Args[0], vars); err != nil {
					return err
				}
			}
			return nil
		}
		if len(x.Args) != len(c.Args) {
			return &SortError{Term: t.String(), Message: fmt.Sprintf("%s takes %d children, got %d", x.Sym, len(c.Args), len(x.Args))}
		}
		for i, a := range x.Args {
			if err := check(sig, a, c.Args[i], vars); err != nil {
				return err
			}
		}
	default:
		return &SortError{Term: fmt.Sprint(t), Message: "unknown term kind"}
	}
	return nil
}
