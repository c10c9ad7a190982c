package ir

import (
	"fmt"
	"strings"
)

var opNames = map[Opcode]string{
	OpLiteral:       "lit",
	OpFloatLiteral:  "flit",
	OpStringLiteral: "slit",
	OpVarAddr:       "addr",
	OpAdd:           "add",
	OpSub:           "sub",
	OpMul:           "mul",
	OpDiv:           "div",
	OpMod:           "mod",
	OpLt:            "lt",
	OpGt:            "gt",
	OpLe:            "le",
	OpGe:            "ge",
	OpEq:            "eq",
	OpNe:            "ne",
	OpAnd:           "and",
	OpOr:            "or",
	OpNeg:           "neg",
	OpNot:           "not",
	OpAbs:           "abs",
	OpDup:           "dup",
	OpDrop:          "drop",
	OpSwap:          "swap",
	OpOver:          "over",
	OpRot:           "rot",
	OpLoad:          "load",
	OpStore:         "store",
	OpToR:           "tor",
	OpFromR:         "fromr",
	OpRFetch:        "rfetch",
	OpPrint:         "print",
	OpEmit:          "emit",
	OpCr:            "cr",
	OpDo:            "do",
	OpLoop:          "loop",
	OpIndex:         "index",
	OpIndexJ:        "indexj",
	OpCall:          "call",
	OpExecute:       "execute",
	OpReturn:        "ret",
	OpLabel:         "label",
	OpBranch:        "br",
	OpBranchIfNot:   "brz",
	OpSquare:        "square",
	OpInc:           "inc",
	OpDec:           "dec",
	OpNip:           "nip",
}

// Repr renders the instruction in a compact textual form
func (in Instruction) Repr() string {
	name := opNames[in.Op]

	switch in.Op {
	case OpLiteral:
		return fmt.Sprintf("%s %d", name, in.IntVal)
	case OpFloatLiteral:
		return fmt.Sprintf("%s %g", name, in.FloatVal)
	case OpStringLiteral:
		return fmt.Sprintf("%s %q", name, in.Sym)
	case OpVarAddr, OpCall:
		return fmt.Sprintf("%s %s", name, in.Sym)
	case OpLabel, OpBranch, OpBranchIfNot:
		return fmt.Sprintf("%s L%d", name, in.Target)
	case OpLoop:
		if in.IntVal != 1 {
			return fmt.Sprintf("%s +%d", name, in.IntVal)
		}
		return name
	default:
		return name
	}
}

// String renders the whole program: every word definition followed by the
// main sequence
func (p *Program) String() string {
	sb := &strings.Builder{}

	for _, w := range p.Words {
		fmt.Fprintf(sb, "word %s", w.Name)
		if w.IsInline {
			sb.WriteString(" inline")
		}
		sb.WriteString(" {\n")
		writeBody(sb, w.Body)
		sb.WriteString("}\n")
	}

	sb.WriteString("main {\n")
	writeBody(sb, p.Main)
	sb.WriteString("}\n")

	return sb.String()
}

func writeBody(sb *strings.Builder, body []Instruction) {
	for _, in := range body {
		sb.WriteString("  ")
		sb.WriteString(in.Repr())
		sb.WriteByte('\n')
	}
}
