package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quivent/fast-forth/ir"
	"github.com/quivent/fast-forth/syntax"
)

func lowerSource(t *testing.T, src string) *ir.Program {
	t.Helper()

	prog, err := syntax.ParseString(src)
	require.NoError(t, err)
	return ir.FromProgram(prog)
}

func inlineAt(t *testing.T, p *ir.Program, level Level) *ir.Program {
	t.Helper()

	out, err := NewInliner(level).Inline(p)
	require.NoError(t, err)
	return out
}

func TestInlineDouble(t *testing.T) {
	p := lowerSource(t, ": double 2 * ;\n5 double double 1 +")

	out := inlineAt(t, p, Standard)

	// main becomes `5 2 * 2 * 1 +` with no calls left
	assert.Equal(t, 0, callsIn(out.Main))
	assert.Equal(t, []ir.Opcode{
		ir.OpLiteral, ir.OpLiteral, ir.OpMul,
		ir.OpLiteral, ir.OpMul,
		ir.OpLiteral, ir.OpAdd,
	}, opsOf(out.Main))

	// the input program is untouched
	assert.Equal(t, 2, callsIn(p.Main))
}

func TestInlineNoneIsIdentity(t *testing.T) {
	p := lowerSource(t, ": double 2 * ;\n5 double double 1 +")

	out := inlineAt(t, p, None)
	assert.True(t, p.Equal(out))
}

func TestMultiLevelChainCollapse(t *testing.T) {
	p := lowerSource(t, `
: level3 dup ;
: level2 level3 ;
: level1 level2 ;
5 level1`)

	out := inlineAt(t, p, Aggressive)

	assert.Equal(t, 0, callsIn(out.Main), "the whole chain collapses")
	assert.Equal(t, []ir.Opcode{ir.OpLiteral, ir.OpDup}, opsOf(out.Main))
}

func TestBasicLevelIsOneLevelDeep(t *testing.T) {
	p := lowerSource(t, `
: level3 dup ;
: level2 level3 ;
: level1 level2 ;
5 level1`)

	out := inlineAt(t, p, Basic)

	// level1's body is substituted, but the exposed call to level2 is one
	// chain level further and stays
	require.Len(t, out.Main, 2)
	assert.True(t, out.Main[1].IsCall())
	assert.Equal(t, "level2", out.Main[1].Sym)

	// the same bound holds inside rewritten definitions: level1 absorbs
	// level2 and now ends at the exposed call to level3
	level1, ok := out.Word("level1")
	require.True(t, ok)
	require.Len(t, level1.Body, 1)
	assert.Equal(t, "level3", level1.Body[0].Sym)
}

func TestBasicLevelSizeCap(t *testing.T) {
	p := lowerSource(t, `
: tiny dup ;
: medium dup + 1 + ;
tiny medium`)

	out := inlineAt(t, p, Basic)

	assert.Equal(t, ir.OpDup, out.Main[0].Op, "one-instruction words inline at Basic")
	assert.True(t, out.Main[1].IsCall(), "words above the Basic size cap stay calls")
}

func TestRecursiveCallPreserved(t *testing.T) {
	p := lowerSource(t, ": fact dup 1 > IF dup 1 - fact * THEN ;\n5 fact")

	out := inlineAt(t, p, Aggressive)

	// fact's body is substituted into main once, but the recursive call
	// inside the expansion stays a call
	remaining := 0
	for _, instr := range out.Main {
		if instr.IsCall() {
			assert.Equal(t, "fact", instr.Sym)
			remaining++
		}
	}
	assert.GreaterOrEqual(t, remaining, 1, "recursion must survive inlining")

	// the definition also keeps its own recursive call
	fact, ok := out.Word("fact")
	require.True(t, ok)
	assert.GreaterOrEqual(t, callsIn(fact.Body), 1)
}

func TestForceInlineOverridesSizeAtBasic(t *testing.T) {
	p := lowerSource(t, ": big INLINE dup dup * dup * swap drop ;\n3 big")

	out := inlineAt(t, p, Basic)
	assert.Equal(t, 0, callsIn(out.Main), "INLINE words expand at every level")
}

func TestUndefinedCalleeFails(t *testing.T) {
	p := lowerSource(t, "mystery")

	_, err := NewInliner(Standard).Inline(p)
	require.Error(t, err)
	assert.IsType(t, &OptimizationFailedError{}, err)
}

func TestInlinedLabelsStayDistinct(t *testing.T) {
	p := lowerSource(t, ": sign 0 < IF -1 ELSE 1 THEN ;\n3 sign 4 sign")

	out := inlineAt(t, p, Standard)
	require.NoError(t, Verify(out))

	// two expansions of the same body must not share label ids
	seen := make(map[int]int)
	for _, instr := range out.Main {
		if instr.Op == ir.OpLabel {
			seen[instr.Target]++
		}
	}
	for target, count := range seen {
		assert.Equal(t, 1, count, "label L%d defined more than once", target)
	}
	assert.Len(t, seen, 4, "each expansion carries its own else and end labels")
}

func TestInlineStats(t *testing.T) {
	p := lowerSource(t, ": double 2 * ;\n5 double double 1 +")

	inliner := NewInliner(Standard)
	out, err := inliner.Inline(p)
	require.NoError(t, err)

	stats := inliner.Stats(p, out)
	assert.Equal(t, 2, stats.CallsBefore)
	assert.Equal(t, 0, stats.CallsAfter)
	assert.Equal(t, 2, stats.CallsInlined)
	assert.InDelta(t, 100.0, stats.InlinedPct, 0.01)
	assert.Equal(t, 7, stats.InstrsBefore)
	assert.Equal(t, 9, stats.InstrsAfter)
	assert.Greater(t, stats.BloatFactor, 1.0, "inlining trades size for calls")
	assert.Equal(t, 0, stats.CyclesFound)
	assert.Equal(t, 0, stats.CyclesLive)
	assert.Equal(t, 1, stats.WordsBefore)
	assert.Equal(t, 1, stats.WordsAfter)
}

func TestCycleStats(t *testing.T) {
	p := lowerSource(t, ": fact dup 1 > IF dup 1 - fact * THEN ;\n5 fact")

	inliner := NewInliner(Aggressive)
	out, err := inliner.Inline(p)
	require.NoError(t, err)

	stats := inliner.Stats(p, out)
	assert.Equal(t, 1, stats.CyclesFound)
	assert.Equal(t, 1, stats.CyclesLive, "the recursive word is still reachable from main")
}

func TestMonotonicRemainingCalls(t *testing.T) {
	p := lowerSource(t, `
: tiny dup ;
: small dup + ;
: medium dup + dup * 1 - ;
: big dup dup * dup * dup * dup * 1 + ;
: chain tiny small medium ;
5 tiny small medium big chain`)

	levels := []Level{None, Basic, Standard, Aggressive}
	previous := -1

	for i, level := range levels {
		out := inlineAt(t, p, level)
		remaining := out.CallCount()

		if i > 0 {
			assert.LessOrEqual(t, remaining, previous,
				"remaining calls must not increase from %s to %s", levels[i-1], level)
		}
		previous = remaining
	}
}

func callsIn(body []ir.Instruction) int {
	count := 0
	for _, instr := range body {
		if instr.IsCall() {
			count++
		}
	}
	return count
}

func opsOf(body []ir.Instruction) []ir.Opcode {
	out := make([]ir.Opcode, len(body))
	for i, instr := range body {
		out[i] = instr.Op
	}
	return out
}
