package ssa

import (
	"fmt"
	"strings"
)

func (r Register) String() string {
	return fmt.Sprintf("%%%d", int(r))
}

func (id BlockID) String() string {
	return fmt.Sprintf("bb%d", int(id))
}

// opMnemonics maps binary operators onto their printed mnemonics
var opMnemonics = map[int]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpMod: "mod",
	OpLt:  "lt",
	OpGt:  "gt",
	OpLe:  "le",
	OpGe:  "ge",
	OpEq:  "eq",
	OpNe:  "ne",
	OpAnd: "and",
	OpOr:  "or",
}

// unaryMnemonics maps unary operators onto their printed mnemonics
var unaryMnemonics = map[int]string{
	OpNegate: "neg",
	OpNot:    "not",
	OpAbs:    "abs",
}

func (in *LoadInt) Repr() string {
	return fmt.Sprintf("%s = load %d", in.Dest, in.Value)
}

func (in *LoadFloat) Repr() string {
	return fmt.Sprintf("%s = load %g", in.Dest, in.Value)
}

func (in *LoadString) Repr() string {
	return fmt.Sprintf("%s = load %q", in.Dest, in.Value)
}

func (in *BinaryOp) Repr() string {
	return fmt.Sprintf("%s = %s %s, %s", in.Dest, opMnemonics[in.Op], in.Left, in.Right)
}

func (in *UnaryOp) Repr() string {
	return fmt.Sprintf("%s = %s %s", in.Dest, unaryMnemonics[in.Op], in.Operand)
}

func (in *Call) Repr() string {
	return fmt.Sprintf("%s = call %s(%s)", registerList(in.Dests), in.Name, registerList(in.Args))
}

func (in *Branch) Repr() string {
	return fmt.Sprintf("br %s, %s, %s", in.Cond, in.True, in.False)
}

func (in *Jump) Repr() string {
	return fmt.Sprintf("jmp %s", in.Target)
}

func (in *Return) Repr() string {
	return fmt.Sprintf("ret %s", registerList(in.Values))
}

func (in *Phi) Repr() string {
	var sb strings.Builder
	sb.WriteString(in.Dest.String())
	sb.WriteString(" = phi ")
	for i, inc := range in.Incoming {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "[%s, %s]", inc.Block, inc.Value)
	}
	return sb.String()
}

func (in *Load) Repr() string {
	return fmt.Sprintf("%s = load %s", in.Dest, in.Address)
}

func (in *Store) Repr() string {
	return fmt.Sprintf("store %s, %s", in.Value, in.Address)
}

func registerList(regs []Register) string {
	parts := make([]string, len(regs))
	for i, r := range regs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// String renders the function in a readable SSA listing
func (f *Function) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "define %s (%s) {\n", f.Name, registerList(f.Params))
	for _, block := range f.Blocks {
		fmt.Fprintf(&sb, "%s:\n", block.ID)
		for _, instr := range block.Instructions {
			sb.WriteString("  ")
			sb.WriteString(instr.Repr())
			sb.WriteRune('\n')
		}
	}
	sb.WriteString("}\n")

	return sb.String()
}
