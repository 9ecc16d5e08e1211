package compiler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/eqhdl/eqhdl/internal/store"
)

// CycleWarning reports a combinational loop in a gate network.
//
// Loops are warnings, not errors: the synthesis rules still run over them,
// but proposals touching a loop cannot be verified.
type CycleWarning struct {
	Path    []int64 `json:"path"`    // Loop path: [3, 4, 3]
	Message string  `json:"message"` // Human-readable description
	Level   string  `json:"level"`   // "warning"
}

// AnalyzeCycles finds combinational loops in a gate network.
//
// The algorithm:
//  1. Build gate → operand-gate edges (operands no gate defines are inputs)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops
//
// Nodes are visited in ascending id order, so warnings are deterministic.
// An acyclic network returns an empty warning list.
func AnalyzeCycles(gates []store.Gate) []CycleWarning {
	graph := buildDependencyGraph(gates)
	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// dependencyGraph maps a gate id to the gate ids it reads.
type dependencyGraph map[int64][]int64

func buildDependencyGraph(gates []store.Gate) dependencyGraph {
	graph := make(dependencyGraph)
	for _, g := range gates {
		if graph[g.ID] == nil {
			graph[g.ID] = []int64{}
		}
	}
	for _, g := range gates {
		for _, op := range []int64{g.A, g.B} {
			if _, isGate := graph[op]; isGate && !slices.Contains(graph[g.ID], op) {
				graph[g.ID] = append(graph[g.ID], op)
			}
		}
	}
	for id := range graph {
		slices.Sort(graph[id])
	}
	return graph
}

func hasSelfLoop(node int64, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(graph dependencyGraph) [][]int64 {
	var (
		index   = 0
		stack   []int64
		indices = make(map[int64]int)
		lowlink = make(map[int64]int)
		onStack = make(map[int64]bool)
		sccs    [][]int64
	)

	var strongConnect func(int64)
	strongConnect = func(v int64) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []int64
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]int64, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []int64, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []int64{id, id},
			Message: fmt.Sprintf("gate %d reads its own output", id),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("combinational loop: %s", strings.Join(parts, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the SCC from its smallest id
// until it returns to the start.
func reconstructCyclePath(scc []int64, graph dependencyGraph) []int64 {
	if len(scc) == 0 {
		return []int64{}
	}

	inSCC := make(map[int64]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []int64{current}
	visited := make(map[int64]bool)

	for {
		visited[current] = true

		next, found := int64(0), false
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next, found = neighbor, true
				break
			}
		}
		if !found {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
