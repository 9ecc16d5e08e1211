package egraph

import (
	"fmt"
	"math"

	"github.com/eqhdl/eqhdl/internal/term"
)

// CostFunc prices a node given the best costs of its children.
type CostFunc func(n Node, children []float64) float64

// AstSize charges one per constructor application; leaves are free.
func AstSize(n Node, children []float64) float64 {
	if n.IsLeaf() {
		return 0
	}
	c := 1.0
	for _, x := range children {
		c += x
	}
	return c
}

// Extractor picks a minimum-cost representative of each class.
type Extractor struct {
	g    *EGraph
	cost map[ClassID]float64
	best map[ClassID]Node
}

// NewExtractor computes best nodes for every class by fixpoint iteration.
// Ties are broken by the node's printed key, so the result depends only on
// the e-graph's contents.
func NewExtractor(g *EGraph, costFn CostFunc) *Extractor {
	if costFn == nil {
		costFn = AstSize
	}
	e := &Extractor{g: g, cost: map[ClassID]float64{}, best: map[ClassID]Node{}}
	ids := g.ClassIDs()
	for changed := true; changed; {
		changed = false
		for _, id := range ids {
			for _, n := range g.classes[id].Nodes {
				c, ok := e.nodeCost(n, costFn)
				if !ok {
					continue
				}
				prev, had := e.cost[id]
				if !had || c < prev || (c == prev && n.key() < e.best[id].key()) {
					e.cost[id] = c
					e.best[id] = n
					changed = true
				}
			}
		}
	}
	return e
}

func (e *Extractor) nodeCost(n Node, costFn CostFunc) (float64, bool) {
	children := make([]float64, len(n.Children))
	for i, c := range n.Children {
		cc, ok := e.cost[e.g.Find(c)]
		if !ok {
			return math.Inf(1), false
		}
		children[i] = cc
	}
	return costFn(n, children), true
}

// Cost returns the best cost of a class.
func (e *Extractor) Cost(id ClassID) (float64, bool) {
	c, ok := e.cost[e.g.Find(id)]
	return c, ok
}

// Extract builds the best term of a class.
func (e *Extractor) Extract(id ClassID) (term.Term, error) {
	return e.extract(e.g.Find(id), map[ClassID]bool{})
}

func (e *Extractor) extract(id ClassID, onPath map[ClassID]bool) (term.Term, error) {
	n, ok := e.best[id]
	if !ok {
		return nil, fmt.Errorf("class %d has no finite-cost term", id)
	}
	if n.IsLeaf() {
		return n.Leaf, nil
	}
	if onPath[id] {
		return nil, fmt.Errorf("class %d: extraction cycle", id)
	}
	onPath[id] = true
	defer delete(onPath, id)

	args := make([]term.Term, len(n.Children))
	for i, c := range n.Children {
		t, err := e.extract(e.g.Find(c), onPath)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}
	return term.New(n.Sym, args...), nil
}
