package syntax

import (
	"github.com/quivent/fast-forth/logging"
)

// Word represents a single node in the body of a definition or of top-level
// code: a literal, a word reference, or a nested control structure.
type Word interface {
	// Position should span the entire word (meaningfully)
	Position() *logging.TextPosition
}

// WordBase is the base struct embedded by all word nodes
type WordBase struct {
	Pos *logging.TextPosition
}

func (wb *WordBase) Position() *logging.TextPosition {
	return wb.Pos
}

// -----------------------------------------------------------------------------

// IntLit is an integer literal
type IntLit struct {
	WordBase
	Value int64
}

// FloatLit is a floating-point literal
type FloatLit struct {
	WordBase
	Value float64
}

// StringLit is a string literal (`s" ..."`)
type StringLit struct {
	WordBase
	Value string
}

// WordRef is a reference to a named word: a built-in or a user definition
type WordRef struct {
	WordBase
	Name string
}

// IfWord is an `IF...THEN` or `IF...ELSE...THEN` conditional.  Else is nil
// when no else-branch was written.
type IfWord struct {
	WordBase
	Then []Word
	Else []Word
}

// BeginUntil is a `BEGIN...UNTIL` loop
type BeginUntil struct {
	WordBase
	Body []Word
}

// BeginWhileRepeat is a `BEGIN...WHILE...REPEAT` loop
type BeginWhileRepeat struct {
	WordBase
	Condition []Word
	Body      []Word
}

// DoLoop is a `DO...LOOP` counted loop
type DoLoop struct {
	WordBase
	Body      []Word
	Increment int64
}

// VariableDecl declares a named memory cell
type VariableDecl struct {
	WordBase
	Name string
}

// ConstantDecl binds a name to a constant value (`5 CONSTANT five`)
type ConstantDecl struct {
	WordBase
	Name  string
	Value int64
}

// -----------------------------------------------------------------------------

// The different kinds of values that can appear in a stack effect comment
const (
	StackTypeInt = iota
	StackTypeFloat
	StackTypeAddr
	StackTypeBool
	StackTypeChar
	StackTypeString
	StackTypeUnknown
)

// StackEffect is a declared mapping from input stack shape to output stack
// shape for one word, parsed from a `( a b -- c )` comment
type StackEffect struct {
	Inputs  []int
	Outputs []int
}

// Definition is a single colon definition (`: name ... ;`)
type Definition struct {
	Name string
	Body []Word

	// Effect is the declared stack effect, or nil if none was written
	Effect *StackEffect

	// IsInline marks a definition carrying the INLINE directive: the optimizer
	// inlines its calls regardless of the cost model
	IsInline bool

	// Immediate marks a definition followed by IMMEDIATE
	Immediate bool

	Pos *logging.TextPosition
}

// Program is a full parsed compilation unit
type Program struct {
	Definitions []*Definition

	// TopLevel is the code outside any colon definition, in source order
	TopLevel []Word
}
