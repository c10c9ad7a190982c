package generate

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/quivent/fast-forth/ssa"
)

// genBlock translates the instructions of one basic block
func (g *Generator) genBlock(f *ssa.Function, block *ssa.BasicBlock) {
	cur := g.blocks[block.ID]

	for _, instr := range block.Instructions {
		switch in := instr.(type) {
		case *ssa.LoadInt:
			g.values[in.Dest] = constant.NewInt(types.I64, in.Value)

		case *ssa.LoadFloat:
			g.values[in.Dest] = constant.NewFloat(types.Double, in.Value)

		case *ssa.LoadString:
			g.values[in.Dest] = g.internString(cur, in.Value)

		case *ssa.BinaryOp:
			g.values[in.Dest] = g.genBinaryOp(cur, in)

		case *ssa.UnaryOp:
			g.values[in.Dest] = g.genUnaryOp(cur, in)

		case *ssa.Call:
			g.genCall(cur, in)

		case *ssa.Branch:
			cond := cur.NewICmp(enum.IPredNE, g.values[in.Cond],
				constant.NewInt(types.I64, 0))
			cur.NewCondBr(cond, g.blocks[in.True], g.blocks[in.False])

		case *ssa.Jump:
			cur.NewBr(g.blocks[in.Target])

		case *ssa.Return:
			g.genReturn(cur, f, in)

		case *ssa.Phi:
			// Block.NewPhi derives the node's type from its first incoming,
			// which does not exist yet, so the node is built with its type
			// preset and appended by hand
			phi := &ir.InstPhi{Typ: types.I64}
			cur.Insts = append(cur.Insts, phi)
			g.values[in.Dest] = phi
			g.pendingPhis = append(g.pendingPhis, pendingPhi{inst: phi, src: in})

		case *ssa.Load:
			ptr := cur.NewIntToPtr(g.values[in.Address], types.NewPointer(types.I64))
			g.values[in.Dest] = cur.NewLoad(types.I64, ptr)

		case *ssa.Store:
			ptr := cur.NewIntToPtr(g.values[in.Address], types.NewPointer(types.I64))
			cur.NewStore(g.values[in.Value], ptr)
		}
	}
}

func (g *Generator) genBinaryOp(cur *ir.Block, in *ssa.BinaryOp) value.Value {
	left, right := g.values[in.Left], g.values[in.Right]

	switch in.Op {
	case ssa.OpAdd:
		return cur.NewAdd(left, right)
	case ssa.OpSub:
		return cur.NewSub(left, right)
	case ssa.OpMul:
		return cur.NewMul(left, right)
	case ssa.OpDiv:
		return cur.NewSDiv(left, right)
	case ssa.OpMod:
		return cur.NewSRem(left, right)
	case ssa.OpAnd:
		return cur.NewAnd(left, right)
	case ssa.OpOr:
		return cur.NewOr(left, right)
	}

	// comparisons produce an i1 which is sign-extended so a true flag is the
	// Forth convention of all bits set
	var pred enum.IPred
	switch in.Op {
	case ssa.OpLt:
		pred = enum.IPredSLT
	case ssa.OpGt:
		pred = enum.IPredSGT
	case ssa.OpLe:
		pred = enum.IPredSLE
	case ssa.OpGe:
		pred = enum.IPredSGE
	case ssa.OpEq:
		pred = enum.IPredEQ
	case ssa.OpNe:
		pred = enum.IPredNE
	}

	return cur.NewSExt(cur.NewICmp(pred, left, right), types.I64)
}

func (g *Generator) genUnaryOp(cur *ir.Block, in *ssa.UnaryOp) value.Value {
	operand := g.values[in.Operand]
	zero := constant.NewInt(types.I64, 0)

	switch in.Op {
	case ssa.OpNegate:
		return cur.NewSub(zero, operand)
	case ssa.OpNot:
		return cur.NewXor(operand, constant.NewInt(types.I64, -1))
	case ssa.OpAbs:
		isNeg := cur.NewICmp(enum.IPredSLT, operand, zero)
		return cur.NewSelect(isNeg, cur.NewSub(zero, operand), operand)
	}

	return operand
}

// runtimeFuncs maps the built-in word names that survive SSA construction as
// opaque calls onto their C runtime symbols
var runtimeFuncs = map[string]struct {
	symbol  string
	nArgs   int
	returns bool
}{
	".":       {"ff_print", 1, false},
	"emit":    {"ff_emit", 1, false},
	"cr":      {"ff_cr", 0, false},
	">r":      {"ff_to_r", 1, false},
	"r>":      {"ff_from_r", 0, true},
	"r@":      {"ff_r_fetch", 0, true},
	"execute": {"ff_execute", 1, true},
	"i":       {"ff_loop_index", 0, true},
	"j":       {"ff_loop_index_j", 0, true},
}

// genCall lowers an opaque SSA call: a variable reference becomes the cell's
// address, a runtime word becomes a call to its C symbol, a user word calls
// its generated function, and anything else is declared as an external.
func (g *Generator) genCall(cur *ir.Block, in *ssa.Call) {
	if global, ok := g.globals[in.Name]; ok {
		if len(in.Dests) > 0 {
			g.values[in.Dests[0]] = cur.NewPtrToInt(global, types.I64)
		}
		return
	}

	if rt, ok := runtimeFuncs[in.Name]; ok {
		g.genRuntimeCall(cur, in, rt.symbol, rt.nArgs, rt.returns)
		return
	}

	if fn, ok := g.funcs[in.Name]; ok {
		g.genWordCall(cur, in, fn)
		return
	}

	// unknown name: declare an external taking no arguments and returning
	// one cell, matching the conservative stack effect assumed upstream
	g.genRuntimeCall(cur, in, "ff.ext."+in.Name, len(in.Args), len(in.Dests) > 0)
}

func (g *Generator) genRuntimeCall(cur *ir.Block, in *ssa.Call, symbol string, nArgs int, returns bool) {
	fn, ok := g.runtime[symbol]
	if !ok {
		retType := types.Type(types.Void)
		if returns {
			retType = types.I64
		}

		var params []*ir.Param
		for i := 0; i < nArgs; i++ {
			params = append(params, ir.NewParam("", types.I64))
		}

		fn = g.mod.NewFunc(symbol, retType, params...)
		g.runtime[symbol] = fn
	}

	result := cur.NewCall(fn, g.callArgs(in, nArgs)...)
	if returns && len(in.Dests) > 0 {
		g.values[in.Dests[0]] = result
	}
}

// genWordCall calls a generated word function.  Only the top of stack crosses
// the call boundary, so the result maps to the last destination; any deeper
// declared outputs are zeroed.
func (g *Generator) genWordCall(cur *ir.Block, in *ssa.Call, fn *ir.Func) {
	result := cur.NewCall(fn, g.callArgs(in, len(fn.Params))...)
	if len(in.Dests) == 0 {
		return
	}

	for _, dest := range in.Dests[:len(in.Dests)-1] {
		g.values[dest] = constant.NewInt(types.I64, 0)
	}

	top := in.Dests[len(in.Dests)-1]
	if types.Equal(fn.Sig.RetType, types.Void) {
		g.values[top] = constant.NewInt(types.I64, 0)
	} else {
		g.values[top] = result
	}
}

// callArgs collects the call's argument values, padded with zero cells when
// the target expects more parameters than the call site supplies
func (g *Generator) callArgs(in *ssa.Call, want int) []value.Value {
	var args []value.Value
	for _, reg := range in.Args {
		args = append(args, g.values[reg])
	}

	for len(args) < want {
		args = append(args, constant.NewInt(types.I64, 0))
	}
	if len(args) > want {
		args = args[:want]
	}

	return args
}

func (g *Generator) genReturn(cur *ir.Block, f *ssa.Function, in *ssa.Return) {
	if f.Name == "main" {
		cur.NewRet(constant.NewInt(types.I32, 0))
		return
	}

	if len(in.Values) == 0 {
		cur.NewRet(nil)
		return
	}

	// only the top of stack survives the call boundary
	cur.NewRet(g.values[in.Values[len(in.Values)-1]])
}
