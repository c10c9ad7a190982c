package optimize

import (
	"github.com/quivent/fast-forth/ir"
)

// SuperinstructionFuser recognizes common two-instruction patterns and fuses
// them into single superinstructions, shrinking dispatch overhead in the
// generated code.
type SuperinstructionFuser struct{}

// NewSuperinstructionFuser creates a fuser
func NewSuperinstructionFuser() *SuperinstructionFuser {
	return &SuperinstructionFuser{}
}

// Fuse rewrites every body of p, replacing recognized patterns:
//
//	dup *       -> square
//	1 +         -> inc
//	1 -         -> dec
//	swap drop   -> nip
func (sf *SuperinstructionFuser) Fuse(p *ir.Program) *ir.Program {
	out := p.Clone()
	for _, w := range out.Words {
		w.Body = fuseBody(w.Body)
	}
	out.Main = fuseBody(out.Main)
	return out
}

func fuseBody(body []ir.Instruction) []ir.Instruction {
	out := make([]ir.Instruction, 0, len(body))

	for _, instr := range body {
		if fused, ok := fusePair(out, instr); ok {
			out[len(out)-1] = fused
			continue
		}
		out = append(out, instr)
	}

	return out
}

// fusePair tries to fuse instr with the last emitted instruction
func fusePair(out []ir.Instruction, instr ir.Instruction) (ir.Instruction, bool) {
	if len(out) == 0 {
		return ir.Instruction{}, false
	}

	prev := out[len(out)-1]

	switch {
	case prev.Op == ir.OpDup && instr.Op == ir.OpMul:
		return ir.Instruction{Op: ir.OpSquare}, true

	case prev.Op == ir.OpLiteral && prev.IntVal == 1 && instr.Op == ir.OpAdd:
		return ir.Instruction{Op: ir.OpInc}, true

	case prev.Op == ir.OpLiteral && prev.IntVal == 1 && instr.Op == ir.OpSub:
		return ir.Instruction{Op: ir.OpDec}, true

	case prev.Op == ir.OpSwap && instr.Op == ir.OpDrop:
		return ir.Instruction{Op: ir.OpNip}, true
	}

	return ir.Instruction{}, false
}
