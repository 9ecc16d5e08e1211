package program

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/eqhdl/eqhdl/internal/term"
)

// ParseError reports malformed DSL source.
type ParseError struct {
	Pos     lexer.Position
	Message string
}

func (e *ParseError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return e.Message
}

func errorAt(s *sexpr, format string, args ...any) error {
	return &ParseError{Pos: s.Pos, Message: fmt.Sprintf(format, args...)}
}

func parseSource(filename, src string) (*source, error) {
	ast, err := dslParser.ParseString(filename, src)
	if err != nil {
		var pe participle.Error
		if errors.As(err, &pe) {
			return nil, &ParseError{Pos: pe.Position(), Message: pe.Message()}
		}
		return nil, &ParseError{Message: err.Error()}
	}
	return ast, nil
}

// Parse parses DSL source into a program.
func Parse(src string) (Program, error) {
	return ParseNamed("", src)
}

// ParseNamed is Parse with a file name for error positions.
func ParseNamed(filename, src string) (Program, error) {
	cmds, err := ParseCommands(filename, src)
	if err != nil {
		return Program{}, err
	}
	return New(cmds...), nil
}

// ParseCommands parses DSL source into commands in source order.
func ParseCommands(filename, src string) ([]Command, error) {
	ast, err := parseSource(filename, src)
	if err != nil {
		return nil, err
	}
	cmds := make([]Command, 0, len(ast.Exprs))
	for _, e := range ast.Exprs {
		c, err := toCommand(e)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// ParseTerm parses a single term. Bare identifiers are pattern variables.
func ParseTerm(src string) (term.Term, error) {
	ast, err := parseSource("", src)
	if err != nil {
		return nil, err
	}
	if len(ast.Exprs) != 1 {
		return nil, &ParseError{Message: fmt.Sprintf("expected one term, found %d", len(ast.Exprs))}
	}
	return toTerm(ast.Exprs[0])
}

// ParseSchedule parses a schedule expression, or several forming a sequence.
func ParseSchedule(src string) (Schedule, error) {
	ast, err := parseSource("", src)
	if err != nil {
		return nil, err
	}
	return toScheduleBody(ast.Exprs, nil)
}

func toCommand(e *sexpr) (Command, error) {
	if !e.isList() {
		return nil, errorAt(e, "expected a command, found %s", e)
	}
	if len(e.List) == 0 {
		return nil, errorAt(e, "expected a command name")
	}
	args := e.List[1:]
	switch head := e.head(); head {
	case "datatype":
		return toDatatype(e, args)
	case "sort":
		return toSort(e, args)
	case "let":
		if len(args) != 2 || args[0].Ident == nil {
			return nil, errorAt(e, "let expects a name and a term")
		}
		t, err := toTerm(args[1])
		if err != nil {
			return nil, err
		}
		if !term.Ground(t) {
			return nil, errorAt(args[1], "let binds a term with pattern variables")
		}
		return Let{Name: *args[0].Ident, Term: t}, nil
	case "ruleset":
		if len(args) != 1 || args[0].Ident == nil {
			return nil, errorAt(e, "ruleset expects a name")
		}
		return Ruleset{Name: *args[0].Ident}, nil
	case "rewrite", "birewrite":
		return toRewrite(e, args, head == "birewrite")
	case "run-schedule":
		s, err := toScheduleBody(args, e)
		if err != nil {
			return nil, err
		}
		return RunSchedule{Schedule: s}, nil
	case "run":
		s, err := toRun(e, args)
		if err != nil {
			return nil, err
		}
		return RunSchedule{Schedule: s}, nil
	case "":
		return nil, errorAt(e, "expected a command name")
	default:
		return nil, errorAt(e, "unknown command %q", head)
	}
}

func toDatatype(e *sexpr, args []*sexpr) (Command, error) {
	if len(args) < 1 || args[0].Ident == nil {
		return nil, errorAt(e, "datatype expects a sort name")
	}
	d := DeclareDatatype{Name: term.Sort(*args[0].Ident)}
	for _, v := range args[1:] {
		if !v.isList() || v.head() == "" {
			return nil, errorAt(v, "datatype variant must be (Name sort...)")
		}
		variant := Variant{Name: v.head()}
		for _, s := range v.List[1:] {
			if s.Ident == nil {
				return nil, errorAt(s, "expected a sort name, found %s", s)
			}
			variant.Args = append(variant.Args, term.Sort(*s.Ident))
		}
		d.Variants = append(d.Variants, variant)
	}
	return d, nil
}

func toSort(e *sexpr, args []*sexpr) (Command, error) {
	if len(args) < 1 || args[0].Ident == nil {
		return nil, errorAt(e, "sort expects a name")
	}
	s := DeclareSort{Name: term.Sort(*args[0].Ident)}
	switch len(args) {
	case 1:
		return s, nil
	case 2:
		c := args[1]
		if !c.isList() || len(c.List) != 2 || c.head() == "" || c.List[1].Ident == nil {
			return nil, errorAt(c, "sort container must be (Container Elem)")
		}
		if c.head() != "Vec" {
			return nil, errorAt(c, "unsupported container %q", c.head())
		}
		s.Container = c.head()
		s.Elem = term.Sort(*c.List[1].Ident)
		return s, nil
	}
	return nil, errorAt(e, "sort takes a name and an optional container")
}

func toRewrite(e *sexpr, args []*sexpr, bidirectional bool) (Command, error) {
	if len(args) < 2 {
		return nil, errorAt(e, "rewrite expects two patterns")
	}
	lhs, err := toTerm(args[0])
	if err != nil {
		return nil, err
	}
	rhs, err := toTerm(args[1])
	if err != nil {
		return nil, err
	}
	r := Rewrite{LHS: lhs, RHS: rhs, Bidirectional: bidirectional}
	if _, ok := lhs.(*term.App); !ok {
		return nil, errorAt(args[0], "left-hand side must be a constructor pattern")
	}
	opts := args[2:]
	for i := 0; i < len(opts); i += 2 {
		if opts[i].Keyword == nil || i+1 >= len(opts) || opts[i+1].Ident == nil {
			return nil, errorAt(opts[i], "expected :keyword value")
		}
		switch *opts[i].Keyword {
		case ":ruleset":
			r.Ruleset = *opts[i+1].Ident
		case ":name":
			r.Name = *opts[i+1].Ident
		default:
			return nil, errorAt(opts[i], "unknown option %s", *opts[i].Keyword)
		}
	}
	for _, v := range term.Vars(rhs) {
		if !containsVar(term.Vars(lhs), v) {
			return nil, errorAt(args[1], "variable %s is unbound on the left-hand side", v)
		}
	}
	if bidirectional {
		for _, v := range term.Vars(lhs) {
			if !containsVar(term.Vars(rhs), v) {
				return nil, errorAt(args[0], "variable %s is unbound on the right-hand side", v)
			}
		}
	}
	return r, nil
}

func containsVar(vs []term.Var, v term.Var) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

func toTerm(e *sexpr) (term.Term, error) {
	switch {
	case e.isList():
		if e.head() == "" {
			return nil, errorAt(e, "expected a constructor application")
		}
		args := make([]term.Term, 0, len(e.List)-1)
		for _, a := range e.List[1:] {
			t, err := toTerm(a)
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
		return term.New(e.head(), args...), nil
	case e.Int != nil:
		return term.I64(*e.Int), nil
	case e.Str != nil:
		return term.Str(*e.Str), nil
	case e.Ref != nil:
		n, err := strconv.ParseUint((*e.Ref)[1:], 10, 32)
		if err != nil {
			return nil, errorAt(e, "bad value reference %s", *e.Ref)
		}
		return term.Ref(n), nil
	case e.Ident != nil:
		return term.Var(*e.Ident), nil
	}
	return nil, errorAt(e, "unexpected %s in term", e)
}

func toScheduleBody(body []*sexpr, at *sexpr) (Schedule, error) {
	if len(body) == 0 {
		if at != nil {
			return nil, errorAt(at, "empty schedule")
		}
		return nil, &ParseError{Message: "empty schedule"}
	}
	scheds := make([]Schedule, 0, len(body))
	for _, b := range body {
		s, err := toSchedule(b)
		if err != nil {
			return nil, err
		}
		scheds = append(scheds, s)
	}
	if len(scheds) == 1 {
		return scheds[0], nil
	}
	return Seq{Body: scheds}, nil
}

func toSchedule(e *sexpr) (Schedule, error) {
	if e.Ident != nil {
		return Run{Ruleset: *e.Ident, N: 1}, nil
	}
	if !e.isList() {
		return nil, errorAt(e, "expected a schedule, found %s", e)
	}
	if len(e.List) == 0 {
		return nil, errorAt(e, "empty schedule")
	}
	args := e.List[1:]
	switch e.head() {
	case "run":
		return toRun(e, args)
	case "repeat":
		if len(args) < 2 || args[0].Int == nil || *args[0].Int < 0 {
			return nil, errorAt(e, "repeat expects a count and a schedule")
		}
		body, err := toSchedules(args[1:])
		if err != nil {
			return nil, err
		}
		return Repeat{N: int(*args[0].Int), Body: body}, nil
	case "saturate":
		body, err := toSchedules(args)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 {
			return nil, errorAt(e, "saturate expects a schedule")
		}
		return Saturate{Body: body}, nil
	case "seq":
		body, err := toSchedules(args)
		if err != nil {
			return nil, err
		}
		return Seq{Body: body}, nil
	}
	return nil, errorAt(e, "unknown schedule %s", e)
}

func toSchedules(es []*sexpr) ([]Schedule, error) {
	out := make([]Schedule, 0, len(es))
	for _, e := range es {
		s, err := toSchedule(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// toRun accepts (run), (run n), (run ruleset) and (run ruleset n).
func toRun(e *sexpr, args []*sexpr) (Schedule, error) {
	r := Run{N: 1}
	switch {
	case len(args) == 0:
	case len(args) == 1 && args[0].Int != nil:
		r.N = int(*args[0].Int)
	case len(args) == 1 && args[0].Ident != nil:
		r.Ruleset = *args[0].Ident
	case len(args) == 2 && args[0].Ident != nil && args[1].Int != nil:
		r.Ruleset = *args[0].Ident
		r.N = int(*args[1].Int)
	default:
		return nil, errorAt(e, "run expects [ruleset] [count]")
	}
	if r.N < 0 {
		return nil, errorAt(e, "negative run count %d", r.N)
	}
	return r, nil
}
