package ir

// Opcode enumerates the flat, stack-oriented instruction set consumed by the
// optimizer passes
type Opcode int

const (
	// literals
	OpLiteral Opcode = iota
	OpFloatLiteral
	OpStringLiteral

	// VarAddr pushes the address of a named variable cell
	OpVarAddr

	// binary arithmetic, comparison, and logic
	OpAdd
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

	// unary
	OpNeg
	OpNot
	OpAbs

	// stack manipulation
	OpDup
	OpDrop
	OpSwap
	OpOver
	OpRot

	// memory
	OpLoad
	OpStore

	// return stack
	OpToR
	OpFromR
	OpRFetch

	// I/O
	OpPrint
	OpEmit
	OpCr

	// counted loops: Do pops limit and start, Loop increments the counter and
	// branches back while it is below the limit; Index/IndexJ push the
	// innermost / next-outer counter
	OpDo
	OpLoop
	OpIndex
	OpIndexJ

	// calls and control flow
	OpCall
	OpExecute
	OpReturn
	OpLabel
	OpBranch
	OpBranchIfNot

	// superinstructions (fused by the optimizer)
	OpSquare // dup *
	OpInc    // 1 +
	OpDec    // 1 -
	OpNip    // swap drop
)

// Instruction is one flat IR instruction.  The operand fields used depend on
// the opcode: IntVal for literals and the Loop increment, FloatVal for float
// literals, Sym for call targets / string literals / variable names, Target
// for label ids and branch targets.  The struct is comparable, which the
// fixpoint loop relies on.
type Instruction struct {
	Op       Opcode
	IntVal   int64
	FloatVal float64
	Sym      string
	Target   int
}

// IsCall reports whether the instruction is a direct call to a named word
func (in Instruction) IsCall() bool {
	return in.Op == OpCall
}

// -----------------------------------------------------------------------------

// WordDef is one word definition in the flat IR
type WordDef struct {
	Name string
	Body []Instruction

	// IsInline forces the inliner to expand calls to this word regardless of
	// the cost model
	IsInline bool

	// CacheDepth is the number of top-of-stack slots the stack-caching pass
	// determined can be held in registers; zero means uncached
	CacheDepth int
}

// NewWordDef creates a word definition
func NewWordDef(name string, body []Instruction) *WordDef {
	return &WordDef{Name: name, Body: body}
}

// Program is one flat IR compilation unit: word definitions in insertion
// order plus the top-level instruction sequence
type Program struct {
	Words []*WordDef
	Main  []Instruction

	byName map[string]*WordDef
}

// NewProgram creates an empty program
func NewProgram() *Program {
	return &Program{byName: make(map[string]*WordDef)}
}

// AddWord appends a word definition.  Redefining a name replaces the earlier
// definition in the lookup table but keeps insertion order.
func (p *Program) AddWord(w *WordDef) {
	p.Words = append(p.Words, w)
	p.byName[w.Name] = w
}

// Word looks up a definition by name
func (p *Program) Word(name string) (*WordDef, bool) {
	w, ok := p.byName[name]
	return w, ok
}

// InstructionCount returns the total number of instructions across the main
// sequence and every word body
func (p *Program) InstructionCount() int {
	count := len(p.Main)
	for _, w := range p.Words {
		count += len(w.Body)
	}
	return count
}

// CallCount returns the total number of call instructions across the main
// sequence and every word body
func (p *Program) CallCount() int {
	count := countCalls(p.Main)
	for _, w := range p.Words {
		count += countCalls(w.Body)
	}
	return count
}

func countCalls(body []Instruction) int {
	count := 0
	for _, in := range body {
		if in.IsCall() {
			count++
		}
	}
	return count
}

// Clone returns a deep copy of the program.  Optimizer passes transform
// copies: the input program is never mutated.
func (p *Program) Clone() *Program {
	clone := NewProgram()
	for _, w := range p.Words {
		clone.AddWord(&WordDef{
			Name:       w.Name,
			Body:       append([]Instruction(nil), w.Body...),
			IsInline:   w.IsInline,
			CacheDepth: w.CacheDepth,
		})
	}
	clone.Main = append([]Instruction(nil), p.Main...)
	return clone
}

// Equal reports whether two programs have identical instruction content
func (p *Program) Equal(other *Program) bool {
	if len(p.Words) != len(other.Words) || len(p.Main) != len(other.Main) {
		return false
	}

	for i, w := range p.Words {
		ow := other.Words[i]
		if w.Name != ow.Name || w.IsInline != ow.IsInline || len(w.Body) != len(ow.Body) {
			return false
		}
		for j, in := range w.Body {
			if in != ow.Body[j] {
				return false
			}
		}
	}

	for i, in := range p.Main {
		if in != other.Main[i] {
			return false
		}
	}

	return true
}

// MaxLabel returns the largest label id used anywhere in the program, or -1
// if no labels are present.  The inliner uses this to mint fresh labels when
// substituting bodies that contain control flow.
func (p *Program) MaxLabel() int {
	max := -1
	scan := func(body []Instruction) {
		for _, in := range body {
			switch in.Op {
			case OpLabel, OpBranch, OpBranchIfNot:
				if in.Target > max {
					max = in.Target
				}
			}
		}
	}

	scan(p.Main)
	for _, w := range p.Words {
		scan(w.Body)
	}
	return max
}
