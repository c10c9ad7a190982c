package generate

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/quivent/fast-forth/ssa"
)

// NOTE: We generate LLVM IR source text with `llir/llvm` rather than binding
// to LLVM itself.  The resulting `.ll` files are handed to `opt` and `llc`
// for native code generation, which keeps the compiler free of CGO.

// Generator converts a program's SSA functions into one LLVM module.  Every
// data stack cell is an i64; addresses and execution tokens are i64 values
// converted to pointers at their use sites.
type Generator struct {
	// env supplies the declared variables, which become global i64 cells
	env *ssa.Env

	// mod is the LLVM module being built
	mod *ir.Module

	// funcs maps word names to their generated LLVM functions
	funcs map[string]*ir.Func

	// globals maps variable names to their global cells
	globals map[string]*ir.Global

	// runtime caches the declared runtime externals by LLVM name
	runtime map[string]*ir.Func

	// stringCounter numbers interned string literal globals
	stringCounter int

	// per-function state
	fn     *ir.Func
	blocks map[ssa.BlockID]*ir.Block
	values map[ssa.Register]value.Value

	// pendingPhis are phi nodes whose incoming values are filled in after
	// the whole function body exists, so back edges can reference registers
	// defined later in block order
	pendingPhis []pendingPhi
}

type pendingPhi struct {
	inst *ir.InstPhi
	src  *ssa.Phi
}

// NewGenerator creates a generator for one program
func NewGenerator(env *ssa.Env) *Generator {
	return &Generator{
		env:     env,
		mod:     ir.NewModule(),
		funcs:   make(map[string]*ir.Func),
		globals: make(map[string]*ir.Global),
		runtime: make(map[string]*ir.Func),
	}
}

// Generate builds the LLVM module for the given SSA functions.  The function
// named "main" becomes the process entry point; every other function becomes
// an internal word function.
func (g *Generator) Generate(functions []*ssa.Function) *ir.Module {
	for _, name := range g.env.Variables {
		g.globals[name] = g.mod.NewGlobalDef(name, constant.NewInt(types.I64, 0))
	}

	// declare every function first so calls can reference words defined
	// later in the source, including mutually recursive ones
	for _, f := range functions {
		g.funcs[f.Name] = g.declareFunc(f)
	}

	for _, f := range functions {
		g.genFunc(f)
	}

	return g.mod
}

// declareFunc creates the LLVM function header for one SSA function
func (g *Generator) declareFunc(f *ssa.Function) *ir.Func {
	if f.Name == "main" {
		return g.mod.NewFunc("main", types.I32)
	}

	var params []*ir.Param
	for i := range f.Params {
		params = append(params, ir.NewParam(fmt.Sprintf("p%d", i), types.I64))
	}

	return g.mod.NewFunc("ff."+f.Name, g.returnType(f), params...)
}

// returnType derives the LLVM return type from the function's final Return:
// void when nothing remains on the stack, i64 otherwise (only the top value
// survives the call boundary)
func (g *Generator) returnType(f *ssa.Function) types.Type {
	for _, block := range f.Blocks {
		for _, instr := range block.Instructions {
			if ret, ok := instr.(*ssa.Return); ok && len(ret.Values) > 0 {
				return types.I64
			}
		}
	}

	return types.Void
}

// genFunc fills in the body of one declared function
func (g *Generator) genFunc(f *ssa.Function) {
	g.fn = g.funcs[f.Name]
	g.blocks = make(map[ssa.BlockID]*ir.Block)
	g.values = make(map[ssa.Register]value.Value)
	g.pendingPhis = nil

	for i, param := range f.Params {
		g.values[param] = g.fn.Params[i]
	}

	for _, block := range f.Blocks {
		g.blocks[block.ID] = g.fn.NewBlock(fmt.Sprintf("bb%d", block.ID))
	}

	for _, block := range f.Blocks {
		g.genBlock(f, block)
	}

	// now every register has a value, so phi incomings can be resolved
	for _, pending := range g.pendingPhis {
		for _, inc := range pending.src.Incoming {
			pending.inst.Incs = append(pending.inst.Incs,
				ir.NewIncoming(g.values[inc.Value], g.blocks[inc.Block]))
		}
	}
}

// internString creates a private global for one string literal and returns
// its address as an i64
func (g *Generator) internString(block *ir.Block, s string) value.Value {
	global := g.mod.NewGlobalDef(fmt.Sprintf("str.%d", g.stringCounter),
		constant.NewCharArrayFromString(s+"\x00"))
	g.stringCounter++

	return block.NewPtrToInt(global, types.I64)
}
