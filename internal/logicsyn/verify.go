package logicsyn

import (
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/eqhdl/eqhdl/internal/store"
)

// Proposal is one rule firing that produced at least one new tuple. Body
// holds the matched gates, Head the derived ones; both define Root.
type Proposal struct {
	Rule      string
	Clause    int
	Round     int
	MatchHash string
	Binding   map[string]int64
	Root      int64
	Body      []store.Gate
	Head      []store.Gate
}

// String renders a proposal on one line.
func (p Proposal) String() string {
	return fmt.Sprintf("%s#%d %v => %v", p.Rule, p.Clause, p.Body, p.Head)
}

// Verify reports whether the head computes the same function of Root as
// the body. Ids that neither side defines are shared free inputs.
//
// The check is a miter: the two definitions of Root are XORed and the SAT
// solver searches for an input assignment setting the XOR. None exists
// exactly when the sides are equivalent.
func Verify(p Proposal) (bool, error) {
	c := logic.NewC()
	inputs := map[int64]z.Lit{}

	before, err := newSide(c, inputs, p.Body)
	if err != nil {
		return false, err
	}
	after, err := newSide(c, inputs, p.Head)
	if err != nil {
		return false, err
	}

	if _, ok := before.defs[p.Root]; !ok {
		return false, newError(ErrCodeVerify, nil, "body does not define %d", p.Root)
	}
	if _, ok := after.defs[p.Root]; !ok {
		return false, newError(ErrCodeVerify, nil, "head does not define %d", p.Root)
	}
	old, err := before.lit(p.Root)
	if err != nil {
		return false, err
	}
	neu, err := after.lit(p.Root)
	if err != nil {
		return false, err
	}

	m := c.Xor(old, neu)
	g := gini.New()
	c.ToCnfFrom(g, m)
	g.Assume(m)
	return g.Solve() == -1, nil
}

// side maps the gates of one side of a miter onto circuit literals.
type side struct {
	c      *logic.C
	inputs map[int64]z.Lit
	defs   map[int64]store.Gate
	lits   map[int64]z.Lit
	active map[int64]bool
}

func newSide(c *logic.C, inputs map[int64]z.Lit, gates []store.Gate) (*side, error) {
	s := &side{
		c:      c,
		inputs: inputs,
		defs:   map[int64]store.Gate{},
		lits:   map[int64]z.Lit{},
		active: map[int64]bool{},
	}
	for _, g := range gates {
		if prev, dup := s.defs[g.ID]; dup && prev != g {
			return nil, newError(ErrCodeVerify, nil, "%d defined by both %s and %s", g.ID, prev, g)
		}
		s.defs[g.ID] = g
	}
	return s, nil
}

func (s *side) lit(id int64) (z.Lit, error) {
	if m, ok := s.lits[id]; ok {
		return m, nil
	}
	g, ok := s.defs[id]
	if !ok {
		m, ok := s.inputs[id]
		if !ok {
			m = s.c.Lit()
			s.inputs[id] = m
		}
		return m, nil
	}
	if s.active[id] {
		return z.LitNull, newError(ErrCodeVerify, nil, "gates form a cycle through %d", id)
	}
	s.active[id] = true
	defer delete(s.active, id)

	a, err := s.lit(g.A)
	if err != nil {
		return z.LitNull, err
	}
	b, err := s.lit(g.B)
	if err != nil {
		return z.LitNull, err
	}

	var m z.Lit
	switch g.Rel {
	case store.AndGates:
		m = s.c.And(a, b)
	case store.OrGates:
		m = s.c.Or(a, b)
	default:
		return z.LitNull, newError(ErrCodeVerify, nil, "unknown relation %q", g.Rel)
	}
	s.lits[id] = m
	return m, nil
}
