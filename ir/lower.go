package ir

import (
	"github.com/quivent/fast-forth/syntax"
)

// builtinOps maps built-in word names onto their flat IR opcodes
var builtinOps = map[string]Opcode{
	"+":       OpAdd,
	"-":       OpSub,
	"*":       OpMul,
	"/":       OpDiv,
	"mod":     OpMod,
	"<":       OpLt,
	">":       OpGt,
	"<=":      OpLe,
	">=":      OpGe,
	"=":       OpEq,
	"<>":      OpNe,
	"and":     OpAnd,
	"or":      OpOr,
	"negate":  OpNeg,
	"not":     OpNot,
	"abs":     OpAbs,
	"dup":     OpDup,
	"drop":    OpDrop,
	"swap":    OpSwap,
	"over":    OpOver,
	"rot":     OpRot,
	"@":       OpLoad,
	"!":       OpStore,
	">r":      OpToR,
	"r>":      OpFromR,
	"r@":      OpRFetch,
	".":       OpPrint,
	"emit":    OpEmit,
	"cr":      OpCr,
	"i":       OpIndex,
	"j":       OpIndexJ,
	"execute": OpExecute,
}

// lowerer translates AST word sequences into flat instructions.  Labels are
// numbered per body: every definition (and the main sequence) starts from a
// fresh counter.
type lowerer struct {
	constants map[string]int64
	variables map[string]bool

	nextLabel int
}

// FromProgram lowers a parsed program into the flat IR.  Word nodes map one
// to one onto stack instructions; control structures lower to label/branch
// form; DO...LOOP keeps its structured Do/Loop bracket.
func FromProgram(prog *syntax.Program) *Program {
	lo := &lowerer{
		constants: make(map[string]int64),
		variables: make(map[string]bool),
	}

	// declarations are hoisted so definitions can reference constants and
	// variables declared anywhere at the top level
	for _, word := range prog.TopLevel {
		switch decl := word.(type) {
		case *syntax.VariableDecl:
			lo.variables[decl.Name] = true
		case *syntax.ConstantDecl:
			lo.constants[decl.Name] = decl.Value
		}
	}

	out := NewProgram()
	for _, def := range prog.Definitions {
		lo.nextLabel = 0
		w := NewWordDef(def.Name, lo.lowerWords(def.Body))
		w.IsInline = def.IsInline
		out.AddWord(w)
	}

	lo.nextLabel = 0
	out.Main = lo.lowerWords(prog.TopLevel)

	return out
}

func (lo *lowerer) freshLabel() int {
	id := lo.nextLabel
	lo.nextLabel++
	return id
}

func (lo *lowerer) lowerWords(words []syntax.Word) []Instruction {
	var out []Instruction
	for _, word := range words {
		out = lo.lowerWord(word, out)
	}
	return out
}

func (lo *lowerer) lowerWord(word syntax.Word, out []Instruction) []Instruction {
	switch w := word.(type) {
	case *syntax.IntLit:
		return append(out, Instruction{Op: OpLiteral, IntVal: w.Value})

	case *syntax.FloatLit:
		return append(out, Instruction{Op: OpFloatLiteral, FloatVal: w.Value})

	case *syntax.StringLit:
		return append(out, Instruction{Op: OpStringLiteral, Sym: w.Value})

	case *syntax.WordRef:
		if op, ok := builtinOps[w.Name]; ok {
			return append(out, Instruction{Op: op})
		}
		if value, ok := lo.constants[w.Name]; ok {
			return append(out, Instruction{Op: OpLiteral, IntVal: value})
		}
		if lo.variables[w.Name] {
			return append(out, Instruction{Op: OpVarAddr, Sym: w.Name})
		}
		return append(out, Instruction{Op: OpCall, Sym: w.Name})

	case *syntax.IfWord:
		endLabel := lo.freshLabel()
		if w.Else == nil {
			out = append(out, Instruction{Op: OpBranchIfNot, Target: endLabel})
			out = append(out, lo.lowerWords(w.Then)...)
			return append(out, Instruction{Op: OpLabel, Target: endLabel})
		}

		elseLabel := lo.freshLabel()
		out = append(out, Instruction{Op: OpBranchIfNot, Target: elseLabel})
		out = append(out, lo.lowerWords(w.Then)...)
		out = append(out, Instruction{Op: OpBranch, Target: endLabel})
		out = append(out, Instruction{Op: OpLabel, Target: elseLabel})
		out = append(out, lo.lowerWords(w.Else)...)
		return append(out, Instruction{Op: OpLabel, Target: endLabel})

	case *syntax.BeginUntil:
		loopLabel := lo.freshLabel()
		out = append(out, Instruction{Op: OpLabel, Target: loopLabel})
		out = append(out, lo.lowerWords(w.Body)...)
		return append(out, Instruction{Op: OpBranchIfNot, Target: loopLabel})

	case *syntax.BeginWhileRepeat:
		condLabel := lo.freshLabel()
		exitLabel := lo.freshLabel()
		out = append(out, Instruction{Op: OpLabel, Target: condLabel})
		out = append(out, lo.lowerWords(w.Condition)...)
		out = append(out, Instruction{Op: OpBranchIfNot, Target: exitLabel})
		out = append(out, lo.lowerWords(w.Body)...)
		out = append(out, Instruction{Op: OpBranch, Target: condLabel})
		return append(out, Instruction{Op: OpLabel, Target: exitLabel})

	case *syntax.DoLoop:
		out = append(out, Instruction{Op: OpDo})
		out = append(out, lo.lowerWords(w.Body)...)
		return append(out, Instruction{Op: OpLoop, IntVal: w.Increment})

	case *syntax.VariableDecl:
		lo.variables[w.Name] = true
		return out

	case *syntax.ConstantDecl:
		lo.constants[w.Name] = w.Value
		return out
	}

	return out
}
