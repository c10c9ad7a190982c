package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quivent/fast-forth/syntax"
)

func graphOf(t *testing.T, src string) *CallGraph {
	t.Helper()

	prog, err := syntax.ParseString(src)
	require.NoError(t, err)
	return BuildCallGraph(FromProgram(prog))
}

func TestCallGraphEdges(t *testing.T) {
	g := graphOf(t, `
: helper 1 + ;
: work helper helper 2 * ;
5 work helper`)

	edges := g.Callees("work")
	require.Len(t, edges, 1, "repeat calls accumulate on one edge")
	assert.Equal(t, "helper", edges[0].Callee)
	assert.Equal(t, 2, edges[0].Count)

	assert.Equal(t, 2, g.CallCount("work", "helper"))
	assert.Equal(t, 1, g.CallCount(MainCaller, "work"))
	assert.Equal(t, 1, g.CallCount(MainCaller, "helper"))
	assert.Equal(t, 0, g.CallCount("helper", "work"))
}

func TestCalleesPreserveFirstCallOrder(t *testing.T) {
	g := graphOf(t, `
: a 1 ;
: b 2 ;
: work b a b ;`)

	edges := g.Callees("work")
	require.Len(t, edges, 2)
	assert.Equal(t, "b", edges[0].Callee)
	assert.Equal(t, "a", edges[1].Callee)
}

func TestDirectRecursionIsMinimalCycle(t *testing.T) {
	g := graphOf(t, `: fact dup 1 > IF dup 1 - fact * THEN ;
5 fact`)

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"fact"}, cycles[0])
	assert.True(t, g.InCycle("fact"))
	assert.False(t, g.InCycle(MainCaller))
}

func TestMutualRecursionCycle(t *testing.T) {
	g := graphOf(t, `
: ping pong ;
: pong ping ;
ping`)

	cycles := g.Cycles()
	require.Len(t, cycles, 1, "one cycle regardless of entry point")
	assert.ElementsMatch(t, []string{"ping", "pong"}, cycles[0])
}

func TestDisjointCyclesReportedIndependently(t *testing.T) {
	g := graphOf(t, `
: a a ;
: ping pong ;
: pong ping ;
a ping`)

	cycles := g.SortedCycles()
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"a"}, cycles[0])
	assert.ElementsMatch(t, []string{"ping", "pong"}, cycles[1])
}

func TestAcyclicProgramHasNoCycles(t *testing.T) {
	g := graphOf(t, `
: level3 dup ;
: level2 level3 ;
: level1 level2 ;
5 level1`)

	assert.Empty(t, g.Cycles())
}

func TestCallsToUndefinedWordsIgnoredByCycles(t *testing.T) {
	g := graphOf(t, "mystery")

	assert.Empty(t, g.Cycles())
	assert.Equal(t, 1, g.CallCount(MainCaller, "mystery"))
}
