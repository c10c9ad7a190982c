package optimize

import (
	"github.com/quivent/fast-forth/ir"
)

// Verify checks the structural invariants of a program after a round of
// passes: every call targets a defined word, every branch targets a label
// present in the same body, and Do/Loop brackets are balanced.
func Verify(p *ir.Program) error {
	for _, w := range p.Words {
		if err := verifyBody(p, w.Name, w.Body); err != nil {
			return err
		}
	}

	return verifyBody(p, "main", p.Main)
}

func verifyBody(p *ir.Program, owner string, body []ir.Instruction) error {
	labels := make(map[int]bool)
	for _, instr := range body {
		if instr.Op == ir.OpLabel {
			labels[instr.Target] = true
		}
	}

	loopDepth := 0
	for _, instr := range body {
		switch instr.Op {
		case ir.OpCall:
			if _, ok := p.Word(instr.Sym); !ok {
				return failf("verify", "`%s` calls undefined word `%s`", owner, instr.Sym)
			}

		case ir.OpBranch, ir.OpBranchIfNot:
			if !labels[instr.Target] {
				return failf("verify", "`%s` branches to missing label L%d", owner, instr.Target)
			}

		case ir.OpDo:
			loopDepth++

		case ir.OpLoop:
			loopDepth--
			if loopDepth < 0 {
				return failf("verify", "`%s` has a loop with no matching do", owner)
			}
		}
	}

	if loopDepth != 0 {
		return failf("verify", "`%s` has %d unclosed do", owner, loopDepth)
	}

	return nil
}
