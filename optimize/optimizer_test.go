package optimize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quivent/fast-forth/ir"
)

func optimizeAt(t *testing.T, p *ir.Program, level Level) *ir.Program {
	t.Helper()

	out, err := NewOptimizer(level).Optimize(p)
	require.NoError(t, err)
	return out
}

func TestOptimizeNoneIsIdentity(t *testing.T) {
	p := lowerSource(t, ": double 2 * ;\n5 double double 1 +")

	out := optimizeAt(t, p, None)
	assert.True(t, p.Equal(out))
	assert.Equal(t, p.InstructionCount(), out.InstructionCount())
	assert.Equal(t, p.CallCount(), out.CallCount())
}

func TestOptimizeStandardEndToEnd(t *testing.T) {
	p := lowerSource(t, ": double 2 * ;\n5 double double 1 +")

	out, err := NewOptimizer(Standard).OptimizeToFixpoint(p)
	require.NoError(t, err)

	// calls inline away, the literal chain folds, `1 +` fuses, and the now
	// unreachable definition is pruned
	assert.Equal(t, 0, out.CallCount())
	assert.Empty(t, out.Words)
	assert.Equal(t, []ir.Opcode{ir.OpLiteral, ir.OpInc}, opsOf(out.Main))
	assert.Equal(t, int64(20), out.Main[0].IntVal)
}

func TestOptimizeAggressivePreservesRecursion(t *testing.T) {
	p := lowerSource(t, ": fact dup 1 > IF dup 1 - fact * THEN ;\n5 fact")

	out, err := NewOptimizer(Aggressive).OptimizeToFixpoint(p)
	require.NoError(t, err)

	fact, ok := out.Word("fact")
	require.True(t, ok, "a recursive word can never be pruned away")
	assert.GreaterOrEqual(t, callsIn(fact.Body), 1)
	assert.GreaterOrEqual(t, out.CallCount(), 1)
}

func TestOptimizeMonotonicAcrossLevels(t *testing.T) {
	src := `
: tiny dup ;
: small dup + ;
: medium dup + dup * 1 - ;
: chain tiny small medium ;
5 tiny small medium chain`

	levels := []Level{None, Basic, Standard, Aggressive}
	previous := -1

	for i, level := range levels {
		out, err := NewOptimizer(level).OptimizeToFixpoint(lowerSource(t, src))
		require.NoError(t, err)

		remaining := out.CallCount()
		if i > 0 {
			assert.LessOrEqual(t, remaining, previous,
				"remaining calls must not increase from %s to %s", levels[i-1], level)
		}
		previous = remaining
	}
}

func TestOptimizeFixpointIsIdempotent(t *testing.T) {
	p := lowerSource(t, `
: square dup * ;
: quad square square ;
2 quad 1 + 3 4 * +`)

	opt := NewOptimizer(Aggressive)
	first, err := opt.OptimizeToFixpoint(p)
	require.NoError(t, err)

	second, err := opt.OptimizeToFixpoint(first)
	require.NoError(t, err)

	assert.True(t, first.Equal(second), "re-optimizing a fixpoint must change nothing")
}

func TestOptimizeReportsUndefinedWord(t *testing.T) {
	p := lowerSource(t, "3 mystery")

	_, err := NewOptimizer(Basic).Optimize(p)
	require.Error(t, err)

	var failed *OptimizationFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "verify", failed.Pass)
}

// -----------------------------------------------------------------------------

func TestFoldArithmeticChain(t *testing.T) {
	p := lowerSource(t, "1 2 + 3 + .")

	out := NewConstantFolder().Fold(p)
	assert.Equal(t, []ir.Opcode{ir.OpLiteral, ir.OpPrint}, opsOf(out.Main))
	assert.Equal(t, int64(6), out.Main[0].IntVal)
}

func TestFoldComparisonPushesFlag(t *testing.T) {
	folder := NewConstantFolder()

	out := folder.Fold(lowerSource(t, "3 5 <"))
	require.Equal(t, []ir.Opcode{ir.OpLiteral}, opsOf(out.Main))
	assert.Equal(t, int64(-1), out.Main[0].IntVal, "a true flag is all ones")

	out = folder.Fold(lowerSource(t, "5 3 <"))
	require.Equal(t, []ir.Opcode{ir.OpLiteral}, opsOf(out.Main))
	assert.Equal(t, int64(0), out.Main[0].IntVal)
}

func TestFoldLeavesDivisionByZero(t *testing.T) {
	p := lowerSource(t, "7 0 /")

	out := NewConstantFolder().Fold(p)
	assert.Equal(t, []ir.Opcode{ir.OpLiteral, ir.OpLiteral, ir.OpDiv}, opsOf(out.Main),
		"division by zero is a runtime fault, not a compile time value")
}

func TestFoldUnary(t *testing.T) {
	p := lowerSource(t, "5 negate abs")

	out := NewConstantFolder().Fold(p)
	require.Equal(t, []ir.Opcode{ir.OpLiteral}, opsOf(out.Main))
	assert.Equal(t, int64(5), out.Main[0].IntVal)
}

// -----------------------------------------------------------------------------

func TestFuseSuperinstructions(t *testing.T) {
	p := lowerSource(t, ": f dup * 1 + 1 - swap drop ;")

	out := NewSuperinstructionFuser().Fuse(p)
	f, ok := out.Word("f")
	require.True(t, ok)
	assert.Equal(t, []ir.Opcode{ir.OpSquare, ir.OpInc, ir.OpDec, ir.OpNip}, opsOf(f.Body))
}

func TestFuseLeavesNonMatchingPairs(t *testing.T) {
	p := lowerSource(t, ": f 2 + dup + ;")

	out := NewSuperinstructionFuser().Fuse(p)
	f, ok := out.Word("f")
	require.True(t, ok)
	assert.Equal(t, []ir.Opcode{ir.OpLiteral, ir.OpAdd, ir.OpDup, ir.OpAdd}, opsOf(f.Body))
}

// -----------------------------------------------------------------------------

func TestEliminatePushDropPairs(t *testing.T) {
	p := lowerSource(t, "1 2 drop .")

	out := NewDeadCodeEliminator().Eliminate(p)
	assert.Equal(t, []ir.Opcode{ir.OpLiteral, ir.OpPrint}, opsOf(out.Main))
	assert.Equal(t, int64(1), out.Main[0].IntVal)
}

func TestEliminateKeepsObservableDrops(t *testing.T) {
	p := lowerSource(t, ": f + drop ;")

	out := NewDeadCodeEliminator().Eliminate(p)

	// no reachability root calls f, so it is pruned as a whole; check the
	// body transform directly instead
	assert.Equal(t, []ir.Opcode{ir.OpAdd, ir.OpDrop}, opsOf(pruneBody(p.Words[0].Body)),
		"a drop after real work must stay")
	assert.Empty(t, out.Words)
}

func TestEliminateUnreachableWords(t *testing.T) {
	p := lowerSource(t, `
: used dup ;
: unused 1 + ;
: indirect used ;
3 indirect`)

	out := NewDeadCodeEliminator().Eliminate(p)

	_, ok := out.Word("unused")
	assert.False(t, ok)
	_, ok = out.Word("used")
	assert.True(t, ok, "words reached through another word stay")
	_, ok = out.Word("indirect")
	assert.True(t, ok)
}

// -----------------------------------------------------------------------------

func TestStackCachePlansStraightLineBodies(t *testing.T) {
	p := lowerSource(t, ": f 1 2 + ;\n: g 1 2 3 4 ;\nf g")

	out := NewStackCacher(3).Plan(p)

	f, _ := out.Word("f")
	assert.Equal(t, 2, f.CacheDepth)

	g, _ := out.Word("g")
	assert.Equal(t, 3, g.CacheDepth, "depth is capped at the cache limit")
}

func TestStackCacheSkipsControlFlow(t *testing.T) {
	p := lowerSource(t, ": f IF 1 ELSE 2 THEN ;\n: g 1 other ;\n: other ;\nf g")

	out := NewStackCacher(3).Plan(p)

	f, _ := out.Word("f")
	assert.Equal(t, 0, f.CacheDepth, "branches end the cacheable region")

	g, _ := out.Word("g")
	assert.Equal(t, 0, g.CacheDepth, "calls end the cacheable region")
}

// -----------------------------------------------------------------------------

func TestVerifyRejectsMissingLabel(t *testing.T) {
	p := ir.NewProgram()
	p.Main = []ir.Instruction{
		{Op: ir.OpLiteral, IntVal: 1},
		{Op: ir.OpBranchIfNot, Target: 7},
	}

	err := Verify(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "L7")
}

func TestVerifyRejectsUnbalancedLoop(t *testing.T) {
	p := ir.NewProgram()
	p.Main = []ir.Instruction{
		{Op: ir.OpLiteral, IntVal: 10},
		{Op: ir.OpLiteral, IntVal: 0},
		{Op: ir.OpDo},
	}

	require.Error(t, Verify(p))
}

func TestVerifyAcceptsWellFormedProgram(t *testing.T) {
	p := lowerSource(t, `
: count 10 0 DO i . LOOP ;
1 IF count THEN`)

	require.NoError(t, Verify(p))
}
