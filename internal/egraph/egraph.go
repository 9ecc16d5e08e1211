// Package egraph is a hash-consed e-graph: equivalence classes of term nodes
// closed under congruence.
//
// Adding a term returns the class of its root; identical subterms share a
// class. Union merges two classes and Rebuild restores the congruence
// invariant (nodes with equal symbols and equal child classes live in the
// same class), following the deferred-rebuild scheme of egg: unions only
// enqueue work, and Rebuild processes the queue until no more merges occur.
//
// An EGraph is not safe for concurrent use.
package egraph

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/eqhdl/eqhdl/internal/term"
)

// ClassID names an equivalence class. IDs of merged classes stay valid;
// Find maps them to the canonical representative.
type ClassID uint32

// Node is an e-node: a constructor over child classes, or a literal leaf.
type Node struct {
	Sym      string    // constructor symbol; "" for leaves
	Leaf     term.Term // I64, Str or Ref when Sym == ""
	Children []ClassID
}

// IsLeaf reports whether the node is a literal or value reference.
func (n Node) IsLeaf() bool { return n.Sym == "" }

func (n Node) key() string {
	if n.IsLeaf() {
		return n.Leaf.String()
	}
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(n.Sym)
	for _, c := range n.Children {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	sb.WriteByte(')')
	return sb.String()
}

type parentRef struct {
	node  Node
	class ClassID
}

// Class is an equivalence class.
type Class struct {
	ID      ClassID
	Nodes   []Node
	parents []parentRef
}

// EGraph holds the classes.
type EGraph struct {
	uf      []ClassID
	classes map[ClassID]*Class
	memo    map[string]ClassID
	pending []ClassID
	version uint64 // bumped on every new node or effective union
}

// New returns an empty e-graph.
func New() *EGraph {
	return &EGraph{
		classes: map[ClassID]*Class{},
		memo:    map[string]ClassID{},
	}
}

// Find returns the canonical representative of id.
func (g *EGraph) Find(id ClassID) ClassID {
	root := id
	for g.uf[root] != root {
		root = g.uf[root]
	}
	for g.uf[id] != root {
		next := g.uf[id]
		g.uf[id] = root
		id = next
	}
	return root
}

func (g *EGraph) canonicalize(n Node) Node {
	if n.IsLeaf() {
		return n
	}
	children := make([]ClassID, len(n.Children))
	for i, c := range n.Children {
		children[i] = g.Find(c)
	}
	return Node{Sym: n.Sym, Children: children}
}

// AddNode inserts a node, returning the class that contains it.
func (g *EGraph) AddNode(n Node) ClassID {
	n = g.canonicalize(n)
	k := n.key()
	if id, ok := g.memo[k]; ok {
		return g.Find(id)
	}
	id := ClassID(len(g.uf))
	g.uf = append(g.uf, id)
	g.classes[id] = &Class{ID: id, Nodes: []Node{n}}
	for _, c := range n.Children {
		cls := g.classes[g.Find(c)]
		cls.parents = append(cls.parents, parentRef{node: n, class: id})
	}
	g.memo[k] = id
	g.version++
	return id
}

// Add inserts a ground term and returns the class of its root.
func (g *EGraph) Add(t term.Term) (ClassID, error) {
	switch x := t.(type) {
	case term.I64, term.Str, term.Ref:
		return g.AddNode(Node{Leaf: x}), nil
	case *term.App:
		children := make([]ClassID, len(x.Args))
		for i, a := range x.Args {
			id, err := g.Add(a)
			if err != nil {
				return 0, err
			}
			children[i] = id
		}
		return g.AddNode(Node{Sym: x.Sym, Children: children}), nil
	}
	return 0, fmt.Errorf("cannot add %s: not a ground term", t)
}

// Lookup finds the class of a ground term without inserting anything.
func (g *EGraph) Lookup(t term.Term) (ClassID, bool) {
	switch x := t.(type) {
	case term.I64, term.Str, term.Ref:
		id, ok := g.memo[Node{Leaf: x}.key()]
		if !ok {
			return 0, false
		}
		return g.Find(id), true
	case *term.App:
		children := make([]ClassID, len(x.Args))
		for i, a := range x.Args {
			id, ok := g.Lookup(a)
			if !ok {
				return 0, false
			}
			children[i] = id
		}
		id, ok := g.memo[Node{Sym: x.Sym, Children: children}.key()]
		if !ok {
			return 0, false
		}
		return g.Find(id), true
	}
	return 0, false
}

// Union merges the classes of a and b. It reports whether they were
// distinct. Call Rebuild before searching again.
func (g *EGraph) Union(a, b ClassID) bool {
	a, b = g.Find(a), g.Find(b)
	if a == b {
		return false
	}
	ca, cb := g.classes[a], g.classes[b]
	// Keep the lower id as root so representatives are stable across runs.
	if b < a {
		a, b = b, a
		ca, cb = cb, ca
	}
	g.uf[b] = a
	ca.Nodes = append(ca.Nodes, cb.Nodes...)
	ca.parents = append(ca.parents, cb.parents...)
	delete(g.classes, b)
	g.pending = append(g.pending, a)
	g.version++
	return true
}

// Rebuild restores congruence after unions.
func (g *EGraph) Rebuild() {
	for len(g.pending) > 0 {
		todo := make([]ClassID, 0, len(g.pending))
		for _, id := range g.pending {
			todo = append(todo, g.Find(id))
		}
		g.pending = g.pending[:0]
		slices.Sort(todo)
		todo = slices.Compact(todo)
		for _, id := range todo {
			g.repair(g.Find(id))
		}
	}
	for _, cls := range g.classes {
		cls.Nodes = g.dedupe(cls.Nodes)
	}
}

func (g *EGraph) repair(id ClassID) {
	cls := g.classes[id]
	old := cls.parents
	cls.parents = nil
	for _, p := range old {
		delete(g.memo, p.node.key())
		canon := g.canonicalize(p.node)
		g.memo[canon.key()] = g.Find(p.class)
	}

	// Congruent parents merge; unions made here enqueue further repairs.
	seen := map[string]int{}
	var parents []parentRef
	for _, p := range old {
		canon := g.canonicalize(p.node)
		k := canon.key()
		if i, ok := seen[k]; ok {
			g.Union(parents[i].class, p.class)
			parents[i].class = g.Find(parents[i].class)
			continue
		}
		seen[k] = len(parents)
		parents = append(parents, parentRef{node: canon, class: g.Find(p.class)})
	}
	root := g.classes[g.Find(id)]
	root.parents = append(root.parents, parents...)
}

func (g *EGraph) dedupe(nodes []Node) []Node {
	seen := make(map[string]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		n = g.canonicalize(n)
		k := n.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	return out
}

// Class returns the canonical class of id.
func (g *EGraph) Class(id ClassID) *Class {
	return g.classes[g.Find(id)]
}

// ClassIDs returns the canonical class ids in ascending order.
func (g *EGraph) ClassIDs() []ClassID {
	ids := make([]ClassID, 0, len(g.classes))
	for id := range g.classes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// NumClasses is the number of canonical classes.
func (g *EGraph) NumClasses() int { return len(g.classes) }

// NumNodes is the number of distinct e-nodes.
func (g *EGraph) NumNodes() int {
	n := 0
	for _, cls := range g.classes {
		n += len(cls.Nodes)
	}
	return n
}

// Version changes whenever a node is added or two classes merge. Comparing
// versions across an iteration detects saturation.
func (g *EGraph) Version() uint64 { return g.version }
