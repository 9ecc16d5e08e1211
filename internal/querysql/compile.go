// Package querysql compiles rule bodies (package queryir) to parameterized
// SQLite statements.
//
// A join tree is flattened left to right into one FROM list. Each Join's ON
// predicate is attached to the last relation of its right side, where every
// alias it may reference is in scope. Select filters go to WHERE.
//
// Every statement is deterministic: output columns are sorted by variable
// name and ORDER BY covers all of them. Literal values and coefficients are
// always parameters; identifiers are checked before they are spliced.
package querysql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eqhdl/eqhdl/internal/queryir"
)

// Statement is a compiled query.
type Statement struct {
	SQL    string
	Params []any
	// Columns are the bound variables in result order.
	Columns []string
}

// SQLCompiler compiles queryir queries to SQLite.
type SQLCompiler struct {
	// Distinct adds DISTINCT, collapsing body matches that bind the same
	// variables.
	Distinct bool
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Distinct: true}
}

// atom is one flattened Select with the ON predicates attached to it.
type atom struct {
	sel queryir.Select
	on  []queryir.Predicate
}

type output struct {
	field queryir.Field
	name  string
}

// Compile converts a query to a Statement. Invalid queries (see
// queryir.Validate) are rejected.
func (c *SQLCompiler) Compile(q queryir.Query) (*Statement, error) {
	if q == nil {
		return nil, fmt.Errorf("cannot compile nil query")
	}
	if res := queryir.Validate(q); !res.Valid {
		return nil, fmt.Errorf("invalid query: %s", strings.Join(res.Problems, "; "))
	}

	atoms, err := flatten(q)
	if err != nil {
		return nil, err
	}

	var outs []output
	for _, a := range atoms {
		alias := a.sel.Alias()
		if err := checkIdent(a.sel.From); err != nil {
			return nil, err
		}
		if err := checkIdent(alias); err != nil {
			return nil, err
		}
		for col, name := range a.sel.Bindings {
			if err := checkIdent(col); err != nil {
				return nil, err
			}
			if err := checkIdent(name); err != nil {
				return nil, err
			}
			outs = append(outs, output{field: queryir.F(alias, col), name: name})
		}
	}
	sort.Slice(outs, func(i, j int) bool { return outs[i].name < outs[j].name })

	var b strings.Builder
	var params []any
	b.WriteString("SELECT ")
	if c.Distinct {
		b.WriteString("DISTINCT ")
	}
	cols := make([]string, len(outs))
	for i, o := range outs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s AS %s", o.field, o.name)
		cols[i] = o.name
	}

	for i, a := range atoms {
		if i == 0 {
			fmt.Fprintf(&b, " FROM %s AS %s", a.sel.From, a.sel.Alias())
			continue
		}
		on := "1 = 1"
		if len(a.on) > 0 {
			sql, p, err := c.compilePredicate(queryir.And{Predicates: a.on})
			if err != nil {
				return nil, fmt.Errorf("compile join ON: %w", err)
			}
			on = sql
			params = append(params, p...)
		}
		fmt.Fprintf(&b, " INNER JOIN %s AS %s ON %s", a.sel.From, a.sel.Alias(), on)
	}

	var where []string
	for _, a := range atoms {
		if a.sel.Filter == nil {
			continue
		}
		sql, p, err := c.compilePredicate(a.sel.Filter)
		if err != nil {
			return nil, fmt.Errorf("compile filter: %w", err)
		}
		where = append(where, sql)
		params = append(params, p...)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	b.WriteString(" ORDER BY " + stableOrderKey(cols))

	return &Statement{SQL: b.String(), Params: params, Columns: cols}, nil
}

// stableOrderKey orders by every output column so ties cannot reorder rows
// across SQLite versions.
func stableOrderKey(cols []string) string {
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c + " ASC"
	}
	return strings.Join(keys, ", ")
}

func flatten(q queryir.Query) ([]atom, error) {
	switch query := q.(type) {
	case queryir.Select:
		return []atom{{sel: query}}, nil
	case *queryir.Select:
		return []atom{{sel: *query}}, nil
	case queryir.Join:
		return flattenJoin(query)
	case *queryir.Join:
		return flattenJoin(*query)
	default:
		return nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func flattenJoin(j queryir.Join) ([]atom, error) {
	left, err := flatten(j.Left)
	if err != nil {
		return nil, err
	}
	right, err := flatten(j.Right)
	if err != nil {
		return nil, err
	}
	last := &right[len(right)-1]
	last.on = append(last.on, j.On)
	return append(left, right...), nil
}

// compilePredicate returns a WHERE fragment and its parameters in textual
// order.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.FieldEquals:
		return compareFields(pred.Left, "=", pred.Right)
	case *queryir.FieldEquals:
		return compareFields(pred.Left, "=", pred.Right)
	case queryir.FieldNotEquals:
		return compareFields(pred.Left, "<>", pred.Right)
	case *queryir.FieldNotEquals:
		return compareFields(pred.Left, "<>", pred.Right)
	case queryir.Greater:
		return c.compileGreater(pred)
	case *queryir.Greater:
		return c.compileGreater(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	if err := checkField(eq.Field); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s = ?", eq.Field), []any{eq.Value}, nil
}

func compareFields(l queryir.Field, op string, r queryir.Field) (string, []any, error) {
	if err := checkField(l); err != nil {
		return "", nil, err
	}
	if err := checkField(r); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s %s", l, op, r), nil, nil
}

func (c *SQLCompiler) compileGreater(g queryir.Greater) (string, []any, error) {
	left, lp, err := compileLinear(g.Left)
	if err != nil {
		return "", nil, err
	}
	right, rp, err := compileLinear(g.Right)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("(%s) > (%s)", left, right), append(lp, rp...), nil
}

// compileLinear writes unit coefficients as bare fields and parameterizes
// the rest.
func compileLinear(l queryir.Linear) (string, []any, error) {
	if len(l) == 0 {
		return "0", nil, nil
	}
	parts := make([]string, len(l))
	var params []any
	for i, t := range l {
		if err := checkField(t.Field); err != nil {
			return "", nil, err
		}
		if t.Coef == 1 {
			parts[i] = t.Field.String()
			continue
		}
		parts[i] = "? * " + t.Field.String()
		params = append(params, t.Coef)
	}
	return strings.Join(parts, " + "), params, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return strings.Join(sqlParts, " AND "), allParams, nil
}

func checkField(f queryir.Field) error {
	if err := checkIdent(f.Alias); err != nil {
		return err
	}
	return checkIdent(f.Column)
}

// checkIdent admits [A-Za-z_][A-Za-z0-9_]*, the only identifiers ever
// spliced into statement text.
func checkIdent(s string) error {
	if s == "" {
		return fmt.Errorf("empty identifier")
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return fmt.Errorf("invalid identifier %q", s)
		}
	}
	return nil
}
