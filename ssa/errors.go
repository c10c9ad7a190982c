package ssa

import "fmt"

// StackUnderflowError reports a construct that needed more simulated stack
// values than were present.  It names the offending word and the required vs.
// available operand counts.
type StackUnderflowError struct {
	Word     string
	Expected int
	Found    int
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow in `%s`: expected %d, found %d", e.Word, e.Expected, e.Found)
}

// StackOverflowError reports a simulated stack that exceeded the maximum
// supported depth
type StackOverflowError struct {
	Word  string
	Depth int
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("stack overflow in `%s`: depth %d exceeds the maximum", e.Word, e.Depth)
}

// InvalidStackEffectError reports a declared or structural stack effect that
// could not be reconciled, eg. branches of an IF leaving different depths
type InvalidStackEffectError struct {
	Word    string
	Message string
}

func (e *InvalidStackEffectError) Error() string {
	return fmt.Sprintf("invalid stack effect in `%s`: %s", e.Word, e.Message)
}

// BuildError attributes one definition's construction failure to its word so
// a caller can report every failing definition in a single run.  WordName is
// empty when the failure occurred in top-level code.
type BuildError struct {
	WordName string
	Err      error
}

func (e *BuildError) Error() string {
	if e.WordName == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("in `: %s`: %s", e.WordName, e.Err.Error())
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
