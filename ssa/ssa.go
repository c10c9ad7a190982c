package ssa

// Register is an opaque identifier naming a single SSA value.  Registers are
// write-once: a register's defining instruction is unique within a function.
type Register int

// BlockID is an opaque identifier naming a basic block within a function.
// Block 0 is the entry block of a function.
type BlockID int

// BasicBlock is an ordered sequence of instructions with an identifier and a
// list of predecessor block identifiers.  Predecessors are computed lazily
// from branch and jump instructions (see Function.ComputePredecessors) rather
// than tracked incrementally.
type BasicBlock struct {
	ID           BlockID
	Instructions []Instruction
	Predecessors []BlockID
}

// Function is one word definition in SSA form
type Function struct {
	Name string

	// Params are the registers seeded from the declared stack effect inputs
	Params []Register

	Entry  BlockID
	Blocks []*BasicBlock

	// IsInline marks a function whose source definition carried the INLINE
	// directive
	IsInline bool
}

// Block returns the block with the given ID.  Block IDs are assigned densely
// from zero, so this is an index.
func (f *Function) Block(id BlockID) *BasicBlock {
	return f.Blocks[id]
}

// ComputePredecessors populates the Predecessors list of every block by
// scanning branch and jump instructions
func (f *Function) ComputePredecessors() {
	for _, block := range f.Blocks {
		block.Predecessors = nil
	}

	addPred := func(target BlockID, pred BlockID) {
		block := f.Block(target)
		for _, p := range block.Predecessors {
			if p == pred {
				return
			}
		}
		block.Predecessors = append(block.Predecessors, pred)
	}

	for _, block := range f.Blocks {
		for _, instr := range block.Instructions {
			switch in := instr.(type) {
			case *Branch:
				addPred(in.True, block.ID)
				addPred(in.False, block.ID)
			case *Jump:
				addPred(in.Target, block.ID)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Instruction is the closed set of SSA instruction variants.  Every consumer
// switches exhaustively over these types; adding a new variant requires
// updating each of them, which is the intended compile-time safety net.
type Instruction interface {
	instr()
	Repr() string
}

// LoadInt loads a constant integer
type LoadInt struct {
	Dest  Register
	Value int64
}

// LoadFloat loads a constant float
type LoadFloat struct {
	Dest  Register
	Value float64
}

// LoadString loads a string literal
type LoadString struct {
	Dest  Register
	Value string
}

// The binary arithmetic, comparison, and logic operators
const (
	OpAdd = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
)

// BinaryOp applies a binary operator to two registers
type BinaryOp struct {
	Dest        Register
	Op          int
	Left, Right Register
}

// The unary operators
const (
	OpNegate = iota
	OpNot
	OpAbs
)

// UnaryOp applies a unary operator to one register
type UnaryOp struct {
	Dest    Register
	Op      int
	Operand Register
}

// Call is an opaque call to a named word, with zero or more argument registers
// and zero or more destination registers
type Call struct {
	Dests []Register
	Name  string
	Args  []Register
}

// Branch transfers control to True if the condition register is non-zero and
// to False otherwise
type Branch struct {
	Cond        Register
	True, False BlockID
}

// Jump transfers control unconditionally
type Jump struct {
	Target BlockID
}

// Return leaves the function yielding zero or more value registers
type Return struct {
	Values []Register
}

// Incoming is one (predecessor block, source register) pair of a Phi node
type Incoming struct {
	Block BlockID
	Value Register
}

// Phi selects a value depending on which predecessor block control arrived
// from
type Phi struct {
	Dest     Register
	Incoming []Incoming
}

// Load reads a cell from memory
type Load struct {
	Dest    Register
	Address Register
}

// Store writes a cell to memory
type Store struct {
	Address Register
	Value   Register
}

func (*LoadInt) instr()    {}
func (*LoadFloat) instr()  {}
func (*LoadString) instr() {}
func (*BinaryOp) instr()   {}
func (*UnaryOp) instr()    {}
func (*Call) instr()       {}
func (*Branch) instr()     {}
func (*Jump) instr()       {}
func (*Return) instr()     {}
func (*Phi) instr()        {}
func (*Load) instr()       {}
func (*Store) instr()      {}
