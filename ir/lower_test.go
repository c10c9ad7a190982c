package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quivent/fast-forth/syntax"
)

func lowerSource(t *testing.T, src string) *Program {
	t.Helper()

	prog, err := syntax.ParseString(src)
	require.NoError(t, err)
	return FromProgram(prog)
}

func ops(body []Instruction) []Opcode {
	out := make([]Opcode, len(body))
	for i, in := range body {
		out[i] = in.Op
	}
	return out
}

func TestLowerStraightLine(t *testing.T) {
	p := lowerSource(t, ": double 2 * ;\n5 double .")

	double, ok := p.Word("double")
	require.True(t, ok)
	assert.Equal(t, []Opcode{OpLiteral, OpMul}, ops(double.Body))

	assert.Equal(t, []Opcode{OpLiteral, OpCall, OpPrint}, ops(p.Main))
	assert.Equal(t, "double", p.Main[1].Sym)
}

func TestLowerInlineFlag(t *testing.T) {
	p := lowerSource(t, ": sq INLINE dup * ;")

	sq, ok := p.Word("sq")
	require.True(t, ok)
	assert.True(t, sq.IsInline)
}

func TestLowerIfElse(t *testing.T) {
	p := lowerSource(t, ": sign 0 < IF -1 ELSE 1 THEN ;")

	sign, _ := p.Word("sign")
	assert.Equal(t, []Opcode{
		OpLiteral, OpLt,
		OpBranchIfNot, // to else
		OpLiteral,
		OpBranch, // to end
		OpLabel,  // else
		OpLiteral,
		OpLabel, // end
	}, ops(sign.Body))

	// the branch targets must name labels that exist in the body
	assert.Equal(t, sign.Body[5].Target, sign.Body[2].Target)
	assert.Equal(t, sign.Body[7].Target, sign.Body[4].Target)
}

func TestLowerIfWithoutElse(t *testing.T) {
	p := lowerSource(t, ": clamp dup 0 < IF drop 0 THEN ;")

	clamp, _ := p.Word("clamp")
	assert.Equal(t, []Opcode{
		OpDup, OpLiteral, OpLt,
		OpBranchIfNot,
		OpDrop, OpLiteral,
		OpLabel,
	}, ops(clamp.Body))
	assert.Equal(t, clamp.Body[6].Target, clamp.Body[3].Target)
}

func TestLowerBeginUntil(t *testing.T) {
	p := lowerSource(t, ": spin BEGIN 1 - dup 0 = UNTIL ;")

	spin, _ := p.Word("spin")
	require.Equal(t, OpLabel, spin.Body[0].Op)
	last := spin.Body[len(spin.Body)-1]
	require.Equal(t, OpBranchIfNot, last.Op)
	assert.Equal(t, spin.Body[0].Target, last.Target, "false branch re-enters the loop")
}

func TestLowerBeginWhileRepeat(t *testing.T) {
	p := lowerSource(t, ": down BEGIN dup 0 > WHILE 1 - REPEAT ;")

	down, _ := p.Word("down")
	assert.Equal(t, []Opcode{
		OpLabel, // cond
		OpDup, OpLiteral, OpGt,
		OpBranchIfNot, // to exit
		OpLiteral, OpSub,
		OpBranch, // back to cond
		OpLabel,  // exit
	}, ops(down.Body))
}

func TestLowerDoLoop(t *testing.T) {
	p := lowerSource(t, ": stars 10 0 DO i emit LOOP ; : evens 10 0 DO i . 2 +LOOP ;")

	stars, _ := p.Word("stars")
	assert.Equal(t, []Opcode{OpLiteral, OpLiteral, OpDo, OpIndex, OpEmit, OpLoop}, ops(stars.Body))
	assert.Equal(t, int64(1), stars.Body[5].IntVal)

	evens, _ := p.Word("evens")
	assert.Equal(t, int64(2), evens.Body[len(evens.Body)-1].IntVal)
}

func TestLowerConstantsAndVariables(t *testing.T) {
	p := lowerSource(t, "VARIABLE v 5 CONSTANT five five v !")

	assert.Equal(t, []Opcode{OpLiteral, OpVarAddr, OpStore}, ops(p.Main))
	assert.Equal(t, int64(5), p.Main[0].IntVal)
	assert.Equal(t, "v", p.Main[1].Sym)
}

func TestLowerUnknownWordBecomesCall(t *testing.T) {
	p := lowerSource(t, "mystery")

	require.Len(t, p.Main, 1)
	assert.True(t, p.Main[0].IsCall())
	assert.Equal(t, "mystery", p.Main[0].Sym)
}

func TestLabelsFreshPerBody(t *testing.T) {
	p := lowerSource(t, ": a IF 1 THEN ; : b IF 2 THEN ;")

	// label numbering restarts per body, so MaxLabel stays small
	assert.Equal(t, 0, p.MaxLabel())
}

func TestProgramCloneIsDeep(t *testing.T) {
	p := lowerSource(t, ": double 2 * ;\n5 double")

	clone := p.Clone()
	require.True(t, p.Equal(clone))

	clone.Main[0].IntVal = 99
	assert.False(t, p.Equal(clone))
	assert.Equal(t, int64(5), p.Main[0].IntVal)
}

func TestInstructionCounts(t *testing.T) {
	p := lowerSource(t, ": double 2 * ;\n5 double double")

	assert.Equal(t, 5, p.InstructionCount())
	assert.Equal(t, 2, p.CallCount())
}
