package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/silica-hdl/silica/internal/ast"
	"github.com/silica-hdl/silica/internal/ir"
)

// orderComponents performs static cycle analysis on the instantiation graph
// and returns a leaves-first topological order.
//
// The algorithm:
//  1. Build component → instantiated-component dependency graph
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a CyclicImport error
//
// Unlike body-level repeated invocation (which is legal sequential reuse), a
// definition-level cycle can never monomorphize: the body has no
// conditionals, so the specialization graph would be infinite. Rejecting it
// here keeps the monomorphizer's on-stack check as a backstop, not the
// primary defense.
func orderComponents(table *Table) ([]string, []ir.Diagnostic) {
	graph := buildInstantiationGraph(table)
	sccs := tarjanSCC(graph)

	var diags []ir.Diagnostic
	var order []string
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			diags = append(diags, ir.Diagnostic{
				Code:    ErrCyclicImport,
				Message: fmt.Sprintf("instantiation cycle: %s", strings.Join(cyclePath(scc, graph), " -> ")),
				Pos:     cyclePos(table, scc),
			})
			continue
		}
		order = append(order, scc[0])
	}

	// Tarjan emits an SCC only after all SCCs it depends on, so the emitted
	// order is already leaves-first.
	return order, diags
}

// instantiationGraph maps component name → components it instantiates.
type instantiationGraph map[string][]string

func buildInstantiationGraph(table *Table) instantiationGraph {
	graph := make(instantiationGraph, len(table.components))
	for name, comp := range table.components {
		if graph[name] == nil {
			graph[name] = []string{}
		}
		for _, cmd := range comp.Body {
			inst, ok := cmd.(*ast.Instance)
			if !ok {
				continue
			}
			if table.components[inst.Def] != nil {
				graph[name] = append(graph[name], inst.Def)
			}
		}
	}
	return graph
}

func hasSelfLoop(node string, graph instantiationGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Returns SCCs in reverse topological order (dependencies first).
func tarjanSCC(graph instantiationGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
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

		if lowlink[v] == indices[v] {
			var scc []string
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

	// Deterministic traversal order so diagnostics and the emitted order
	// are stable run to run.
	for _, node := range sortedNodes(graph) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sortedNodes(graph instantiationGraph) []string {
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// cyclePath reconstructs a representative cycle through the SCC for the
// diagnostic message.
func cyclePath(scc []string, graph instantiationGraph) []string {
	if len(scc) == 1 {
		return []string{scc[0], scc[0]}
	}

	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
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

func cyclePos(table *Table, scc []string) ir.Pos {
	if comp := table.Component(scc[0]); comp != nil {
		return comp.Pos
	}
	return ir.Pos{}
}
