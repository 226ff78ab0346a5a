package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/promptc/internal/ir"
)

// classGraph is the class reference graph over an index arena: node i is
// classes[i], and edges[i] lists the indices i refers to through any field
// type, in field order without duplicates.
type classGraph struct {
	names []string
	edges [][]int
}

// buildClassGraph adds an edge A -> B whenever a field of A mentions B
// anywhere inside Optional, List, Map, Union, Tuple or Constrained.
// References to names outside classes are ignored.
func buildClassGraph(classes []ir.Node[ir.Class]) classGraph {
	g := classGraph{
		names: make([]string, len(classes)),
		edges: make([][]int, len(classes)),
	}
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		g.names[i] = c.Elem.Name
		index[c.Elem.Name] = i
	}
	for i, c := range classes {
		seen := make(map[int]bool)
		for _, f := range c.Elem.StaticFields {
			for _, ref := range ir.ReferencedClasses(f.Elem.Type.Elem) {
				j, ok := index[ref]
				if !ok || seen[j] {
					continue
				}
				seen[j] = true
				g.edges[i] = append(g.edges[i], j)
			}
		}
	}
	return g
}

func (g classGraph) hasSelfLoop(v int) bool {
	for _, w := range g.edges[v] {
		if w == v {
			return true
		}
	}
	return false
}

// FindCycles reports the finite recursive cycles among classes: every
// strongly connected component with two or more members, or with one member
// that references itself. Components come out in Tarjan discovery order,
// visiting classes in the order given.
func FindCycles(classes []ir.Node[ir.Class]) []ir.ClassSet {
	g := buildClassGraph(classes)
	var cycles []ir.ClassSet
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || g.hasSelfLoop(scc[0]) {
			names := make([]string, len(scc))
			for i, v := range scc {
				names[i] = g.names[v]
			}
			cycles = append(cycles, ir.NewClassSet(names...))
		}
	}
	return cycles
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Every node lands in exactly one component.
func tarjanSCC(g classGraph) [][]int {
	n := len(g.names)
	var (
		index   = 0
		stack   []int
		indices = make([]int, n)
		lowlink = make([]int, n)
		onStack = make([]bool, n)
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := range n {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}
	return sccs
}

// CycleWarning describes one recursive class group for display.
type CycleWarning struct {
	Classes ir.ClassSet `json:"classes"`
	Message string      `json:"message"`
}

// DescribeCycles renders cycles for CLI output. Recursive classes are legal;
// these are informational.
func DescribeCycles(cycles []ir.ClassSet) []CycleWarning {
	out := make([]CycleWarning, 0, len(cycles))
	for _, c := range cycles {
		msg := fmt.Sprintf("recursive class: %s", c[0])
		if len(c) > 1 {
			msg = fmt.Sprintf("mutually recursive classes: %s", strings.Join(c, ", "))
		}
		out = append(out, CycleWarning{Classes: c, Message: msg})
	}
	return out
}
