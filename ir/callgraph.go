package ir

import (
	"sort"
	"strings"
)

// MainCaller is the caller name under which the top-level instruction
// sequence is recorded in the call graph.
const MainCaller = "__main__"

// Edge is one caller-to-callee edge with its static call-site count
type Edge struct {
	Callee string
	Count  int
}

// CallGraph records who calls whom across a program, in definition order.
// Edges count static call sites, not dynamic calls.
type CallGraph struct {
	edges map[string][]Edge
	order []string
}

// BuildCallGraph walks every word body plus the main sequence and collects
// the call edges between user-defined words.
func BuildCallGraph(p *Program) *CallGraph {
	g := &CallGraph{edges: make(map[string][]Edge)}

	for _, w := range p.Words {
		g.addCaller(w.Name, w.Body)
	}

	g.addCaller(MainCaller, p.Main)

	return g
}

func (g *CallGraph) addCaller(name string, body []Instruction) {
	g.order = append(g.order, name)
	g.edges[name] = nil

	for _, instr := range body {
		if instr.Op != OpCall {
			continue
		}

		found := false
		for i, edge := range g.edges[name] {
			if edge.Callee == instr.Sym {
				g.edges[name][i].Count++
				found = true
				break
			}
		}

		if !found {
			g.edges[name] = append(g.edges[name], Edge{Callee: instr.Sym, Count: 1})
		}
	}
}

// Callees returns the edges out of caller, in first-call-site order
func (g *CallGraph) Callees(caller string) []Edge {
	return g.edges[caller]
}

// CallCount returns the number of static call sites from one word to another
func (g *CallGraph) CallCount(from, to string) int {
	for _, edge := range g.edges[from] {
		if edge.Callee == to {
			return edge.Count
		}
	}

	return 0
}

// Cycles finds every distinct cycle in the call graph.  A direct recursion
// like `fact -> fact` is reported as the one-element cycle ["fact"].  Each
// cycle is listed once regardless of how many starting points reach it.
func (g *CallGraph) Cycles() [][]string {
	var cycles [][]string
	seen := make(map[string]bool)

	var stack []string
	onStack := make(map[string]int)

	var visit func(name string)
	visit = func(name string) {
		onStack[name] = len(stack)
		stack = append(stack, name)

		for _, edge := range g.edges[name] {
			if _, known := g.edges[edge.Callee]; !known {
				continue
			}

			if start, active := onStack[edge.Callee]; active {
				cycle := normalizeCycle(stack[start:])
				key := strings.Join(cycle, "\x00")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}

				continue
			}

			visit(edge.Callee)
		}

		stack = stack[:len(stack)-1]
		delete(onStack, name)
	}

	for _, name := range g.order {
		visit(name)
	}

	return cycles
}

// InCycle reports whether a word participates in any call cycle
func (g *CallGraph) InCycle(name string) bool {
	for _, cycle := range g.Cycles() {
		for _, member := range cycle {
			if member == name {
				return true
			}
		}
	}

	return false
}

// normalizeCycle rotates a cycle so it starts at its smallest member, making
// rotations of the same cycle compare equal
func normalizeCycle(members []string) []string {
	out := make([]string, len(members))
	copy(out, members)

	least := 0
	for i, name := range out {
		if name < out[least] {
			least = i
		}
	}

	rotated := make([]string, 0, len(out))
	rotated = append(rotated, out[least:]...)
	rotated = append(rotated, out[:least]...)
	return rotated
}

// SortedCycles returns the cycles sorted by their first member, for stable
// display
func (g *CallGraph) SortedCycles() [][]string {
	cycles := g.Cycles()
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})

	return cycles
}
