package optimize

import (
	"github.com/quivent/fast-forth/ir"
)

// StackCacher plans register residency for the top of the data stack.  For
// each straight-line word body it records how many top-of-stack slots the
// code generator can hold in registers instead of memory.
type StackCacher struct {
	// maxRegs is the number of cacheable slots (TOS, NOS, 3OS with the
	// default of three)
	maxRegs int
}

// NewStackCacher creates a stack cacher holding up to maxRegs slots
func NewStackCacher(maxRegs int) *StackCacher {
	return &StackCacher{maxRegs: maxRegs}
}

// Plan annotates every word of p with a cache depth.  Bodies containing
// control flow, calls, or return-stack traffic are left uncached: register
// residency cannot be tracked across those boundaries.
func (sc *StackCacher) Plan(p *ir.Program) *ir.Program {
	out := p.Clone()
	for _, w := range out.Words {
		w.CacheDepth = sc.planBody(w.Body)
	}
	return out
}

func (sc *StackCacher) planBody(body []ir.Instruction) int {
	depth := 0
	peak := 0

	for _, instr := range body {
		pops, pushes, ok := stackEffectOf(instr.Op)
		if !ok {
			return 0
		}

		depth -= pops
		if depth < 0 {
			// operands come from the caller's stack; cache planning still
			// works, the deficit just widens the window
			peak -= depth
			depth = 0
		}

		depth += pushes
		if depth > peak {
			peak = depth
		}
	}

	if peak > sc.maxRegs {
		return sc.maxRegs
	}
	return peak
}

// stackEffectOf returns the pop/push counts of one opcode, or ok=false for
// opcodes that end a cacheable region
func stackEffectOf(op ir.Opcode) (pops, pushes int, ok bool) {
	switch op {
	case ir.OpLiteral, ir.OpFloatLiteral, ir.OpStringLiteral, ir.OpVarAddr:
		return 0, 1, true
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod,
		ir.OpLt, ir.OpGt, ir.OpLe, ir.OpGe, ir.OpEq, ir.OpNe,
		ir.OpAnd, ir.OpOr:
		return 2, 1, true
	case ir.OpNeg, ir.OpNot, ir.OpAbs, ir.OpSquare, ir.OpInc, ir.OpDec:
		return 1, 1, true
	case ir.OpDup:
		return 1, 2, true
	case ir.OpDrop, ir.OpPrint, ir.OpEmit:
		return 1, 0, true
	case ir.OpSwap:
		return 2, 2, true
	case ir.OpOver:
		return 2, 3, true
	case ir.OpRot:
		return 3, 3, true
	case ir.OpNip:
		return 2, 1, true
	case ir.OpLoad:
		return 1, 1, true
	case ir.OpStore:
		return 2, 0, true
	case ir.OpCr:
		return 0, 0, true
	default:
		return 0, 0, false
	}
}
