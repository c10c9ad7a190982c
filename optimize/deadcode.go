package optimize

import (
	"github.com/quivent/fast-forth/ir"
)

// DeadCodeEliminator removes work that cannot be observed: pushes that are
// immediately dropped, and word definitions no longer called from anywhere
// once their call sites were inlined away.
type DeadCodeEliminator struct{}

// NewDeadCodeEliminator creates an eliminator
func NewDeadCodeEliminator() *DeadCodeEliminator {
	return &DeadCodeEliminator{}
}

// Eliminate rewrites every body of p and then drops unreachable definitions
func (dce *DeadCodeEliminator) Eliminate(p *ir.Program) *ir.Program {
	out := p.Clone()
	for _, w := range out.Words {
		w.Body = pruneBody(w.Body)
	}
	out.Main = pruneBody(out.Main)

	return pruneWords(out)
}

// pruneBody removes adjacent push/drop pairs.  Only patterns with no control
// flow or side effect between the push and the drop are safe to remove.
func pruneBody(body []ir.Instruction) []ir.Instruction {
	out := make([]ir.Instruction, 0, len(body))

	for _, instr := range body {
		if instr.Op == ir.OpDrop && len(out) > 0 {
			switch out[len(out)-1].Op {
			case ir.OpLiteral, ir.OpFloatLiteral, ir.OpStringLiteral, ir.OpVarAddr, ir.OpDup:
				out = out[:len(out)-1]
				continue
			}
		}

		out = append(out, instr)
	}

	return out
}

// pruneWords rebuilds the program keeping only definitions reachable from
// the main sequence
func pruneWords(p *ir.Program) *ir.Program {
	graph := ir.BuildCallGraph(p)

	reachable := make(map[string]bool)
	var mark func(name string)
	mark = func(name string) {
		if reachable[name] {
			return
		}
		reachable[name] = true
		for _, edge := range graph.Callees(name) {
			mark(edge.Callee)
		}
	}
	mark(ir.MainCaller)

	out := ir.NewProgram()
	for _, w := range p.Words {
		if reachable[w.Name] {
			out.AddWord(w)
		}
	}
	out.Main = p.Main

	return out
}
