package optimize

import (
	"github.com/quivent/fast-forth/ir"
)

// forthTrue and forthFalse are the canonical flag values pushed by folded
// comparisons
const (
	forthTrue  int64 = -1
	forthFalse int64 = 0
)

// ConstantFolder evaluates literal arithmetic at compile time: a pair of
// integer literals followed by a binary operator collapses to one literal,
// and a literal followed by a unary operator likewise.
type ConstantFolder struct{}

// NewConstantFolder creates a constant folder
func NewConstantFolder() *ConstantFolder {
	return &ConstantFolder{}
}

// Fold rewrites every body of p, collapsing literal expressions.  Folding
// repeats within a body until no pattern matches, so `1 2 + 3 +` collapses
// all the way to `6` in one pass.
func (cf *ConstantFolder) Fold(p *ir.Program) *ir.Program {
	out := p.Clone()
	for _, w := range out.Words {
		w.Body = cf.foldBody(w.Body)
	}
	out.Main = cf.foldBody(out.Main)
	return out
}

func (cf *ConstantFolder) foldBody(body []ir.Instruction) []ir.Instruction {
	for {
		folded, changed := cf.foldOnce(body)
		if !changed {
			return folded
		}
		body = folded
	}
}

func (cf *ConstantFolder) foldOnce(body []ir.Instruction) ([]ir.Instruction, bool) {
	out := make([]ir.Instruction, 0, len(body))
	changed := false

	for _, instr := range body {
		n := len(out)

		if value, ok := foldBinary(out, instr); ok && n >= 2 {
			out = out[:n-2]
			out = append(out, ir.Instruction{Op: ir.OpLiteral, IntVal: value})
			changed = true
			continue
		}

		if value, ok := foldUnary(out, instr); ok && n >= 1 {
			out = out[:n-1]
			out = append(out, ir.Instruction{Op: ir.OpLiteral, IntVal: value})
			changed = true
			continue
		}

		out = append(out, instr)
	}

	return out, changed
}

// foldBinary evaluates instr against the two pending literals on the output
// tail, if both exist
func foldBinary(out []ir.Instruction, instr ir.Instruction) (int64, bool) {
	n := len(out)
	if n < 2 || out[n-2].Op != ir.OpLiteral || out[n-1].Op != ir.OpLiteral {
		return 0, false
	}

	a, b := out[n-2].IntVal, out[n-1].IntVal

	switch instr.Op {
	case ir.OpAdd:
		return a + b, true
	case ir.OpSub:
		return a - b, true
	case ir.OpMul:
		return a * b, true
	case ir.OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case ir.OpMod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case ir.OpLt:
		return flag(a < b), true
	case ir.OpGt:
		return flag(a > b), true
	case ir.OpLe:
		return flag(a <= b), true
	case ir.OpGe:
		return flag(a >= b), true
	case ir.OpEq:
		return flag(a == b), true
	case ir.OpNe:
		return flag(a != b), true
	case ir.OpAnd:
		return a & b, true
	case ir.OpOr:
		return a | b, true
	}

	return 0, false
}

func foldUnary(out []ir.Instruction, instr ir.Instruction) (int64, bool) {
	n := len(out)
	if n < 1 || out[n-1].Op != ir.OpLiteral {
		return 0, false
	}

	a := out[n-1].IntVal

	switch instr.Op {
	case ir.OpNeg:
		return -a, true
	case ir.OpNot:
		return ^a, true
	case ir.OpAbs:
		if a < 0 {
			return -a, true
		}
		return a, true
	}

	return 0, false
}

func flag(b bool) int64 {
	if b {
		return forthTrue
	}
	return forthFalse
}
