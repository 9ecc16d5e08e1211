package egraph

import (
	"fmt"
	"maps"

	"github.com/eqhdl/eqhdl/internal/term"
)

// Subst binds pattern variables to classes.
type Subst map[term.Var]ClassID

// Match is one occurrence of a pattern.
type Match struct {
	Class ClassID
	Subst Subst
}

// Search finds every occurrence of pattern, visiting classes in ascending
// id order so results are deterministic. The e-graph must be rebuilt.
func (g *EGraph) Search(pattern term.Term) []Match {
	var out []Match
	for _, id := range g.ClassIDs() {
		for _, s := range g.matchClass(pattern, id, Subst{}) {
			out = append(out, Match{Class: id, Subst: s})
		}
	}
	return out
}

// SearchClass finds occurrences of pattern rooted at one class.
func (g *EGraph) SearchClass(pattern term.Term, id ClassID) []Subst {
	return g.matchClass(pattern, g.Find(id), Subst{})
}

func (g *EGraph) matchClass(p term.Term, id ClassID, s Subst) []Subst {
	switch x := p.(type) {
	case term.Var:
		if bound, ok := s[x]; ok {
			if g.Find(bound) == g.Find(id) {
				return []Subst{s}
			}
			return nil
		}
		next := maps.Clone(s)
		next[x] = g.Find(id)
		return []Subst{next}

	case term.I64, term.Str, term.Ref:
		leaf, ok := g.memo[Node{Leaf: x}.key()]
		if ok && g.Find(leaf) == g.Find(id) {
			return []Subst{s}
		}
		return nil

	case *term.App:
		var out []Subst
		for _, n := range g.classes[g.Find(id)].Nodes {
			if n.Sym != x.Sym || len(n.Children) != len(x.Args) {
				continue
			}
			partial := []Subst{s}
			for i, arg := range x.Args {
				var next []Subst
				for _, ps := range partial {
					next = append(next, g.matchClass(arg, n.Children[i], ps)...)
				}
				partial = next
				if len(partial) == 0 {
					break
				}
			}
			out = append(out, partial...)
		}
		return out
	}
	return nil
}

// Instantiate adds the term obtained by substituting s into pattern and
// returns its class.
func (g *EGraph) Instantiate(pattern term.Term, s Subst) (ClassID, error) {
	switch x := pattern.(type) {
	case term.Var:
		id, ok := s[x]
		if !ok {
			return 0, fmt.Errorf("unbound variable %s", x)
		}
		return g.Find(id), nil
	case term.I64, term.Str, term.Ref:
		return g.AddNode(Node{Leaf: x}), nil
	case *term.App:
		children := make([]ClassID, len(x.Args))
		for i, a := range x.Args {
			id, err := g.Instantiate(a, s)
			if err != nil {
				return 0, err
			}
			children[i] = id
		}
		return g.AddNode(Node{Sym: x.Sym, Children: children}), nil
	}
	return 0, fmt.Errorf("cannot instantiate %v", pattern)
}
