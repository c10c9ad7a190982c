package ssa

import (
	"github.com/quivent/fast-forth/syntax"
)

// maxStackDepth bounds the simulated stack; deeper programs are rejected with
// a StackOverflowError
const maxStackDepth = 1024

// Env records the named constants and variables declared at the top level of
// a program, plus the declared stack effects of its definitions.  Constant
// references compile to constant loads; variable references compile to opaque
// address-producing calls resolved by the code generator; calls to words with
// a declared effect consume and produce the declared number of cells.
type Env struct {
	Constants map[string]int64
	Variables []string
	Effects   map[string]*syntax.StackEffect
}

// NewEnv creates an empty environment
func NewEnv() *Env {
	return &Env{
		Constants: make(map[string]int64),
		Effects:   make(map[string]*syntax.StackEffect),
	}
}

// IsVariable reports whether name was declared with VARIABLE
func (env *Env) IsVariable(name string) bool {
	for _, v := range env.Variables {
		if v == name {
			return true
		}
	}
	return false
}

// declareVariable records a VARIABLE declaration (idempotent)
func (env *Env) declareVariable(name string) {
	if !env.IsVariable(name) {
		env.Variables = append(env.Variables, name)
	}
}

// -----------------------------------------------------------------------------

// loopFrame tracks one active DO...LOOP during translation so that `I` and `J`
// can resolve to the loop counter registers
type loopFrame struct {
	counter Register
	limit   Register
}

// Builder converts one word definition's body into a control-flow graph of
// basic blocks with registers in SSA form.  Each function gets a fresh
// builder: the register and block counters are never shared between
// compilation units.
type Builder struct {
	nextRegister int
	nextBlock    int

	// current is the block instructions are emitted into
	current BlockID

	blocks []*BasicBlock

	// loops is the stack of active counted loops, innermost last
	loops []loopFrame

	// env supplies named constants and variables; shared across the functions
	// of one program, never across programs
	env *Env
}

// NewBuilder creates a builder for a single function using the given
// environment.  Passing nil uses an empty environment.
func NewBuilder(env *Env) *Builder {
	if env == nil {
		env = NewEnv()
	}
	return &Builder{env: env}
}

// BuildProgram converts every definition of a parsed program, plus its
// top-level code as a synthetic function named "main", into SSA form.  Each
// function is built by a fresh builder so no counters are shared.  A failing
// definition is skipped rather than aborting the whole program; every failure
// is collected so one bad word never hides the errors after it.
func BuildProgram(prog *syntax.Program) ([]*Function, *Env, []*BuildError) {
	env := NewEnv()

	// declarations are hoisted so definitions can reference constants and
	// variables declared anywhere at the top level, and effects so calls
	// between definitions (in either order) use the declared arity
	for _, word := range prog.TopLevel {
		switch decl := word.(type) {
		case *syntax.VariableDecl:
			env.declareVariable(decl.Name)
		case *syntax.ConstantDecl:
			env.Constants[decl.Name] = decl.Value
		}
	}
	for _, def := range prog.Definitions {
		if def.Effect != nil {
			env.Effects[def.Name] = def.Effect
		}
	}

	var functions []*Function
	var failures []*BuildError
	for _, def := range prog.Definitions {
		fn, err := NewBuilder(env).BuildDefinition(def)
		if err != nil {
			failures = append(failures, &BuildError{WordName: def.Name, Err: err})
			continue
		}
		functions = append(functions, fn)
	}

	main, err := NewBuilder(env).BuildFunction("main", prog.TopLevel, 0)
	if err != nil {
		failures = append(failures, &BuildError{Err: err})
	} else {
		functions = append(functions, main)
	}

	return functions, env, failures
}

// BuildDefinition converts a single colon definition into an SSA function.
// The declared stack effect, if any, seeds the parameter count.
func (b *Builder) BuildDefinition(def *syntax.Definition) (*Function, error) {
	paramCount := 0
	if def.Effect != nil {
		paramCount = len(def.Effect.Inputs)
	}

	fn, err := b.BuildFunction(def.Name, def.Body, paramCount)
	if err != nil {
		return nil, err
	}

	fn.IsInline = def.IsInline
	return fn, nil
}

// BuildFunction converts a body into an SSA function with the given number of
// parameter registers.  The simulated stack is seeded with the parameters;
// whatever remains on it after translation becomes the return values.
func (b *Builder) BuildFunction(name string, body []syntax.Word, paramCount int) (*Function, error) {
	fn := &Function{Name: name}
	for i := 0; i < paramCount; i++ {
		fn.Params = append(fn.Params, Register(i))
	}
	b.nextRegister = paramCount

	b.current = b.createBlock()
	fn.Entry = b.current

	stack := append([]Register(nil), fn.Params...)
	if err := b.convertSequence(body, &stack); err != nil {
		return nil, err
	}

	b.emit(&Return{Values: stack})

	fn.Blocks = b.blocks
	return fn, nil
}

// -----------------------------------------------------------------------------

func (b *Builder) freshRegister() Register {
	r := Register(b.nextRegister)
	b.nextRegister++
	return r
}

// createBlock allocates a new empty basic block.  Block IDs are assigned
// densely so a block's ID doubles as its index.
func (b *Builder) createBlock() BlockID {
	id := BlockID(b.nextBlock)
	b.nextBlock++
	b.blocks = append(b.blocks, &BasicBlock{ID: id})
	return id
}

// emit appends an instruction to the current block
func (b *Builder) emit(instr Instruction) {
	block := b.blocks[b.current]
	block.Instructions = append(block.Instructions, instr)
}

// push appends a register to the simulated stack, enforcing the depth bound
func (b *Builder) push(stack *[]Register, r Register, word string) error {
	if len(*stack) >= maxStackDepth {
		return &StackOverflowError{Word: word, Depth: len(*stack) + 1}
	}
	*stack = append(*stack, r)
	return nil
}

// pop removes and returns the top of the simulated stack, reporting an
// underflow naming the offending word
func (b *Builder) pop(stack *[]Register, word string, expected int) (Register, error) {
	if len(*stack) == 0 {
		return 0, &StackUnderflowError{Word: word, Expected: expected, Found: 0}
	}
	top := (*stack)[len(*stack)-1]
	*stack = (*stack)[:len(*stack)-1]
	return top, nil
}

// -----------------------------------------------------------------------------

// convertSequence translates words left to right, threading the simulated
// stack
func (b *Builder) convertSequence(words []syntax.Word, stack *[]Register) error {
	for _, word := range words {
		if err := b.convertWord(word, stack); err != nil {
			return err
		}
	}
	return nil
}

// convertWord translates a single word
func (b *Builder) convertWord(word syntax.Word, stack *[]Register) error {
	switch w := word.(type) {
	case *syntax.IntLit:
		dest := b.freshRegister()
		b.emit(&LoadInt{Dest: dest, Value: w.Value})
		return b.push(stack, dest, "literal")

	case *syntax.FloatLit:
		dest := b.freshRegister()
		b.emit(&LoadFloat{Dest: dest, Value: w.Value})
		return b.push(stack, dest, "literal")

	case *syntax.StringLit:
		dest := b.freshRegister()
		b.emit(&LoadString{Dest: dest, Value: w.Value})
		return b.push(stack, dest, "literal")

	case *syntax.WordRef:
		return b.convertWordCall(w.Name, stack)

	case *syntax.IfWord:
		return b.convertIf(w, stack)

	case *syntax.BeginUntil:
		return b.convertBeginUntil(w, stack)

	case *syntax.BeginWhileRepeat:
		return b.convertBeginWhileRepeat(w, stack)

	case *syntax.DoLoop:
		return b.convertDoLoop(w, stack)

	case *syntax.VariableDecl:
		// declarations generate no code; the code generator allocates the cell
		b.env.declareVariable(w.Name)
		return nil

	case *syntax.ConstantDecl:
		b.env.Constants[w.Name] = w.Value
		return nil
	}

	return nil
}

// binaryWords maps built-in binary operator names onto operators
var binaryWords = map[string]int{
	"+":   OpAdd,
	"-":   OpSub,
	"*":   OpMul,
	"/":   OpDiv,
	"mod": OpMod,
	"<":   OpLt,
	">":   OpGt,
	"<=":  OpLe,
	">=":  OpGe,
	"=":   OpEq,
	"<>":  OpNe,
	"and": OpAnd,
	"or":  OpOr,
}

// binaryWordNames is the reverse mapping, used in error messages
var binaryWordNames = map[int]string{}

func init() {
	for name, op := range binaryWords {
		binaryWordNames[op] = name
	}
}

// unaryWords maps built-in unary operator names onto operators
var unaryWords = map[string]int{
	"negate": OpNegate,
	"not":    OpNot,
	"abs":    OpAbs,
}

// convertWordCall translates a reference to a named word.  Built-in
// arithmetic, comparison, and stack-shuffle names are special-cased to typed
// instructions; everything else becomes an opaque call.
func (b *Builder) convertWordCall(name string, stack *[]Register) error {
	if op, ok := binaryWords[name]; ok {
		return b.convertBinaryOp(op, stack)
	}
	if op, ok := unaryWords[name]; ok {
		return b.convertUnaryOp(name, op, stack)
	}

	switch name {
	case "dup":
		if len(*stack) == 0 {
			return &StackUnderflowError{Word: "dup", Expected: 1, Found: 0}
		}
		return b.push(stack, (*stack)[len(*stack)-1], "dup")

	case "drop":
		_, err := b.pop(stack, "drop", 1)
		return err

	case "swap":
		if len(*stack) < 2 {
			return &StackUnderflowError{Word: "swap", Expected: 2, Found: len(*stack)}
		}
		n := len(*stack)
		(*stack)[n-1], (*stack)[n-2] = (*stack)[n-2], (*stack)[n-1]
		return nil

	case "over":
		if len(*stack) < 2 {
			return &StackUnderflowError{Word: "over", Expected: 2, Found: len(*stack)}
		}
		return b.push(stack, (*stack)[len(*stack)-2], "over")

	case "rot":
		if len(*stack) < 3 {
			return &StackUnderflowError{Word: "rot", Expected: 3, Found: len(*stack)}
		}
		n := len(*stack)
		third := (*stack)[n-3]
		(*stack)[n-3] = (*stack)[n-2]
		(*stack)[n-2] = (*stack)[n-1]
		(*stack)[n-1] = third
		return nil

	case "@":
		addr, err := b.pop(stack, "@", 1)
		if err != nil {
			return err
		}
		dest := b.freshRegister()
		b.emit(&Load{Dest: dest, Address: addr})
		return b.push(stack, dest, "@")

	case "!":
		if len(*stack) < 2 {
			return &StackUnderflowError{Word: "!", Expected: 2, Found: len(*stack)}
		}
		addr, _ := b.pop(stack, "!", 2)
		value, _ := b.pop(stack, "!", 2)
		b.emit(&Store{Address: addr, Value: value})
		return nil

	case ">r":
		// the return stack is not modeled; these remain opaque calls
		value, err := b.pop(stack, ">r", 1)
		if err != nil {
			return err
		}
		b.emit(&Call{Name: ">r", Args: []Register{value}})
		return nil

	case "r>", "r@":
		dest := b.freshRegister()
		b.emit(&Call{Dests: []Register{dest}, Name: name})
		return b.push(stack, dest, name)

	case ".", "emit":
		value, err := b.pop(stack, name, 1)
		if err != nil {
			return err
		}
		b.emit(&Call{Name: name, Args: []Register{value}})
		return nil

	case "cr":
		b.emit(&Call{Name: "cr"})
		return nil

	case "i":
		if n := len(b.loops); n > 0 {
			return b.push(stack, b.loops[n-1].counter, "i")
		}
		// no enclosing counted loop: leave as an opaque index call
		return b.opaqueCall(name, stack)

	case "j":
		if n := len(b.loops); n > 1 {
			return b.push(stack, b.loops[n-2].counter, "j")
		}
		return b.opaqueCall(name, stack)

	case "execute":
		dest := b.freshRegister()
		var args []Register
		if len(*stack) > 0 {
			xt, _ := b.pop(stack, "execute", 1)
			args = append(args, xt)
		}
		b.emit(&Call{Dests: []Register{dest}, Name: "execute", Args: args})
		return b.push(stack, dest, "execute")
	}

	if value, ok := b.env.Constants[name]; ok {
		dest := b.freshRegister()
		b.emit(&LoadInt{Dest: dest, Value: value})
		return b.push(stack, dest, name)
	}

	if effect, ok := b.env.Effects[name]; ok {
		return b.convertDefinedCall(name, effect, stack)
	}

	// unrecognized names (including variable references, which push their
	// address, and definitions without a declared effect) become opaque calls
	// with the conservative effect (0 -- 1)
	return b.opaqueCall(name, stack)
}

// convertDefinedCall emits a call to a word with a declared stack effect: the
// declared inputs are popped as arguments (deepest first, matching the
// callee's parameter order) and one destination is pushed per declared output
func (b *Builder) convertDefinedCall(name string, effect *syntax.StackEffect, stack *[]Register) error {
	nIn := len(effect.Inputs)
	if len(*stack) < nIn {
		return &StackUnderflowError{Word: name, Expected: nIn, Found: len(*stack)}
	}

	args := make([]Register, nIn)
	for i := nIn - 1; i >= 0; i-- {
		args[i], _ = b.pop(stack, name, nIn)
	}

	dests := make([]Register, len(effect.Outputs))
	for i := range dests {
		dests[i] = b.freshRegister()
	}
	b.emit(&Call{Dests: dests, Name: name, Args: args})

	for _, dest := range dests {
		if err := b.push(stack, dest, name); err != nil {
			return err
		}
	}
	return nil
}

// opaqueCall emits a call with an unknown stack effect, conservatively
// assumed to be zero inputs and one output
func (b *Builder) opaqueCall(name string, stack *[]Register) error {
	dest := b.freshRegister()
	b.emit(&Call{Dests: []Register{dest}, Name: name})
	return b.push(stack, dest, name)
}

func (b *Builder) convertBinaryOp(op int, stack *[]Register) error {
	name := binaryWordNames[op]
	if len(*stack) < 2 {
		return &StackUnderflowError{Word: name, Expected: 2, Found: len(*stack)}
	}

	right, _ := b.pop(stack, name, 2)
	left, _ := b.pop(stack, name, 2)
	dest := b.freshRegister()
	b.emit(&BinaryOp{Dest: dest, Op: op, Left: left, Right: right})
	return b.push(stack, dest, name)
}

func (b *Builder) convertUnaryOp(name string, op int, stack *[]Register) error {
	operand, err := b.pop(stack, name, 1)
	if err != nil {
		return err
	}

	dest := b.freshRegister()
	b.emit(&UnaryOp{Dest: dest, Op: op, Operand: operand})
	return b.push(stack, dest, name)
}

// -----------------------------------------------------------------------------

// convertIf translates IF...THEN / IF...ELSE...THEN.  Both arms are
// translated against independent clones of the pre-branch stack; at the merge
// block, a Phi node is inserted for every stack slot whose register differs
// between the incoming paths, so the post-merge stack is correct regardless
// of which arm produced each value.
func (b *Builder) convertIf(node *syntax.IfWord, stack *[]Register) error {
	cond, err := b.pop(stack, "if", 1)
	if err != nil {
		return err
	}

	branchBlock := b.current
	thenBlock := b.createBlock()
	mergeBlock := b.createBlock()
	elseBlock := mergeBlock
	if node.Else != nil {
		elseBlock = b.createBlock()
	}

	b.emit(&Branch{Cond: cond, True: thenBlock, False: elseBlock})

	b.current = thenBlock
	thenStack := append([]Register(nil), *stack...)
	if err := b.convertSequence(node.Then, &thenStack); err != nil {
		return err
	}
	thenEnd := b.current
	b.emit(&Jump{Target: mergeBlock})

	// the false path: either the translated else-arm or the pre-branch stack
	// flowing directly from the branch block
	elseStack := append([]Register(nil), *stack...)
	elseEnd := branchBlock
	if node.Else != nil {
		b.current = elseBlock
		if err := b.convertSequence(node.Else, &elseStack); err != nil {
			return err
		}
		elseEnd = b.current
		b.emit(&Jump{Target: mergeBlock})
	}

	if len(thenStack) != len(elseStack) {
		return &InvalidStackEffectError{
			Word:    "if",
			Message: "branches leave different stack depths",
		}
	}

	b.current = mergeBlock
	merged := make([]Register, len(thenStack))
	for i := range thenStack {
		if thenStack[i] == elseStack[i] {
			merged[i] = thenStack[i]
			continue
		}

		dest := b.freshRegister()
		b.emit(&Phi{
			Dest: dest,
			Incoming: []Incoming{
				{Block: thenEnd, Value: thenStack[i]},
				{Block: elseEnd, Value: elseStack[i]},
			},
		})
		merged[i] = dest
	}

	*stack = merged
	return nil
}

// convertBeginUntil translates BEGIN...UNTIL: the body runs at least once and
// repeats until the popped condition is true.  The loop header carries a Phi
// per stack slot so a value the body rewrites flows into the next iteration.
func (b *Builder) convertBeginUntil(node *syntax.BeginUntil, stack *[]Register) error {
	preBlock := b.current
	loopBlock := b.createBlock()
	exitBlock := b.createBlock()

	b.emit(&Jump{Target: loopBlock})
	b.current = loopBlock

	slotPhis := make([]*Phi, len(*stack))
	loopStack := make([]Register, len(*stack))
	for i, slot := range *stack {
		phi := &Phi{
			Dest:     b.freshRegister(),
			Incoming: []Incoming{{Block: preBlock, Value: slot}},
		}
		b.emit(phi)
		slotPhis[i] = phi
		loopStack[i] = phi.Dest
	}

	if err := b.convertSequence(node.Body, &loopStack); err != nil {
		return err
	}

	cond, err := b.pop(&loopStack, "until", 1)
	if err != nil {
		return err
	}

	if len(loopStack) != len(slotPhis) {
		return &InvalidStackEffectError{
			Word:    "until",
			Message: "loop body must leave the stack depth unchanged",
		}
	}

	bodyEnd := b.current
	b.emit(&Branch{Cond: cond, True: exitBlock, False: loopBlock})

	// close the back edges of the header Phis
	for i, phi := range slotPhis {
		phi.Incoming = append(phi.Incoming, Incoming{Block: bodyEnd, Value: loopStack[i]})
	}

	b.current = exitBlock
	*stack = loopStack
	return nil
}

// convertBeginWhileRepeat translates BEGIN...WHILE...REPEAT: the condition
// words run first, the popped test selects body or exit, and the body jumps
// back to the condition block.  The condition block is the loop header, so it
// carries a Phi per entry stack slot for the values the body rewrites.
func (b *Builder) convertBeginWhileRepeat(node *syntax.BeginWhileRepeat, stack *[]Register) error {
	preBlock := b.current
	condBlock := b.createBlock()
	bodyBlock := b.createBlock()
	exitBlock := b.createBlock()

	b.emit(&Jump{Target: condBlock})
	b.current = condBlock

	slotPhis := make([]*Phi, len(*stack))
	condStack := make([]Register, len(*stack))
	for i, slot := range *stack {
		phi := &Phi{
			Dest:     b.freshRegister(),
			Incoming: []Incoming{{Block: preBlock, Value: slot}},
		}
		b.emit(phi)
		slotPhis[i] = phi
		condStack[i] = phi.Dest
	}

	if err := b.convertSequence(node.Condition, &condStack); err != nil {
		return err
	}

	cond, err := b.pop(&condStack, "while", 1)
	if err != nil {
		return err
	}

	b.emit(&Branch{Cond: cond, True: bodyBlock, False: exitBlock})

	b.current = bodyBlock
	bodyStack := append([]Register(nil), condStack...)
	if err := b.convertSequence(node.Body, &bodyStack); err != nil {
		return err
	}

	if len(bodyStack) != len(slotPhis) {
		return &InvalidStackEffectError{
			Word:    "repeat",
			Message: "loop body must restore the depth at the loop entry",
		}
	}

	bodyEnd := b.current
	b.emit(&Jump{Target: condBlock})

	// close the back edges of the header Phis
	for i, phi := range slotPhis {
		phi.Incoming = append(phi.Incoming, Incoming{Block: bodyEnd, Value: bodyStack[i]})
	}

	b.current = exitBlock
	*stack = condStack
	return nil
}

// convertDoLoop translates DO...LOOP as a real counted loop: the loop header
// carries a Phi for the counter and one for every live stack slot, the body
// ends with an increment, a limit comparison, and a conditional back edge.
// `I` (and `J` in nested loops) resolve to the counter Phi registers.
func (b *Builder) convertDoLoop(node *syntax.DoLoop, stack *[]Register) error {
	if len(*stack) < 2 {
		return &StackUnderflowError{Word: "do", Expected: 2, Found: len(*stack)}
	}

	start, _ := b.pop(stack, "do", 2)
	limit, _ := b.pop(stack, "do", 2)

	preBlock := b.current
	loopBlock := b.createBlock()
	exitBlock := b.createBlock()

	b.emit(&Jump{Target: loopBlock})
	b.current = loopBlock

	// header Phis: the counter plus every stack slot, so values computed in
	// one iteration flow into the next
	counterPhi := &Phi{
		Dest:     b.freshRegister(),
		Incoming: []Incoming{{Block: preBlock, Value: start}},
	}
	b.emit(counterPhi)

	slotPhis := make([]*Phi, len(*stack))
	loopStack := make([]Register, len(*stack))
	for i, slot := range *stack {
		phi := &Phi{
			Dest:     b.freshRegister(),
			Incoming: []Incoming{{Block: preBlock, Value: slot}},
		}
		b.emit(phi)
		slotPhis[i] = phi
		loopStack[i] = phi.Dest
	}

	b.loops = append(b.loops, loopFrame{counter: counterPhi.Dest, limit: limit})
	err := b.convertSequence(node.Body, &loopStack)
	b.loops = b.loops[:len(b.loops)-1]
	if err != nil {
		return err
	}

	if len(loopStack) != len(slotPhis) {
		return &InvalidStackEffectError{
			Word:    "do",
			Message: "loop body must leave the stack depth unchanged",
		}
	}

	step := b.freshRegister()
	b.emit(&LoadInt{Dest: step, Value: node.Increment})
	next := b.freshRegister()
	b.emit(&BinaryOp{Dest: next, Op: OpAdd, Left: counterPhi.Dest, Right: step})
	cond := b.freshRegister()
	b.emit(&BinaryOp{Dest: cond, Op: OpLt, Left: next, Right: limit})

	bodyEnd := b.current
	b.emit(&Branch{Cond: cond, True: loopBlock, False: exitBlock})

	// close the back edges of the header Phis
	counterPhi.Incoming = append(counterPhi.Incoming, Incoming{Block: bodyEnd, Value: next})
	for i, phi := range slotPhis {
		phi.Incoming = append(phi.Incoming, Incoming{Block: bodyEnd, Value: loopStack[i]})
	}

	b.current = exitBlock
	*stack = loopStack
	return nil
}
