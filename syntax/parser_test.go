package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleDefinition(t *testing.T) {
	prog, err := ParseString(": double 2 * ;")
	require.NoError(t, err)

	require.Len(t, prog.Definitions, 1)
	def := prog.Definitions[0]
	assert.Equal(t, "double", def.Name)
	assert.False(t, def.IsInline)
	require.Len(t, def.Body, 2)

	lit, ok := def.Body[0].(*IntLit)
	require.True(t, ok, "expected an integer literal")
	assert.Equal(t, int64(2), lit.Value)

	ref, ok := def.Body[1].(*WordRef)
	require.True(t, ok, "expected a word reference")
	assert.Equal(t, "*", ref.Name)
}

func TestParseStackEffect(t *testing.T) {
	prog, err := ParseString(": add3 ( n n n -- n ) + + ;")
	require.NoError(t, err)

	require.Len(t, prog.Definitions, 1)
	effect := prog.Definitions[0].Effect
	require.NotNil(t, effect)
	assert.Equal(t, []int{StackTypeInt, StackTypeInt, StackTypeInt}, effect.Inputs)
	assert.Equal(t, []int{StackTypeInt}, effect.Outputs)
}

func TestParseInlineAndImmediate(t *testing.T) {
	prog, err := ParseString(": sq INLINE dup * ; : now 1 ; IMMEDIATE")
	require.NoError(t, err)

	require.Len(t, prog.Definitions, 2)
	assert.True(t, prog.Definitions[0].IsInline)
	assert.False(t, prog.Definitions[0].Immediate)
	assert.True(t, prog.Definitions[1].Immediate)
}

func TestParseIfElse(t *testing.T) {
	prog, err := ParseString(": sign 0 < IF -1 ELSE 1 THEN ;")
	require.NoError(t, err)

	require.Len(t, prog.Definitions, 1)
	body := prog.Definitions[0].Body
	require.Len(t, body, 3)

	ifWord, ok := body[2].(*IfWord)
	require.True(t, ok, "expected an IF node")
	require.Len(t, ifWord.Then, 1)
	require.Len(t, ifWord.Else, 1)
}

func TestParseIfWithoutElse(t *testing.T) {
	prog, err := ParseString(": clamp dup 0 < IF drop 0 THEN ;")
	require.NoError(t, err)

	ifWord, ok := prog.Definitions[0].Body[3].(*IfWord)
	require.True(t, ok)
	assert.Len(t, ifWord.Then, 2)
	assert.Nil(t, ifWord.Else)
}

func TestParseBeginUntil(t *testing.T) {
	prog, err := ParseString(": countdown BEGIN 1 - dup 0 = UNTIL ;")
	require.NoError(t, err)

	loop, ok := prog.Definitions[0].Body[0].(*BeginUntil)
	require.True(t, ok, "expected a BEGIN...UNTIL node")
	assert.Len(t, loop.Body, 5)
}

func TestParseBeginWhileRepeat(t *testing.T) {
	prog, err := ParseString(": spin BEGIN dup 0 > WHILE 1 - REPEAT ;")
	require.NoError(t, err)

	loop, ok := prog.Definitions[0].Body[0].(*BeginWhileRepeat)
	require.True(t, ok, "expected a BEGIN...WHILE...REPEAT node")
	assert.Len(t, loop.Condition, 3)
	assert.Len(t, loop.Body, 2)
}

func TestParseDoLoop(t *testing.T) {
	prog, err := ParseString(": stars 10 0 DO 42 emit LOOP ;")
	require.NoError(t, err)

	body := prog.Definitions[0].Body
	require.Len(t, body, 3)

	loop, ok := body[2].(*DoLoop)
	require.True(t, ok, "expected a DO...LOOP node")
	assert.Equal(t, int64(1), loop.Increment)
	assert.Len(t, loop.Body, 2)
}

func TestParsePlusLoop(t *testing.T) {
	prog, err := ParseString(": evens 10 0 DO i . 2 +LOOP ;")
	require.NoError(t, err)

	loop, ok := prog.Definitions[0].Body[2].(*DoLoop)
	require.True(t, ok)
	assert.Equal(t, int64(2), loop.Increment)
	assert.Len(t, loop.Body, 2)
}

func TestParsePlusLoopWithoutIncrement(t *testing.T) {
	_, err := ParseString(": bad 10 0 DO i . +LOOP ;")
	require.Error(t, err)
}

func TestParseVariableAndConstant(t *testing.T) {
	prog, err := ParseString("VARIABLE counter 5 CONSTANT five counter @")
	require.NoError(t, err)

	require.Len(t, prog.TopLevel, 4)

	varDecl, ok := prog.TopLevel[0].(*VariableDecl)
	require.True(t, ok, "expected a VARIABLE declaration")
	assert.Equal(t, "counter", varDecl.Name)

	constDecl, ok := prog.TopLevel[1].(*ConstantDecl)
	require.True(t, ok, "expected a CONSTANT declaration")
	assert.Equal(t, "five", constDecl.Name)
	assert.Equal(t, int64(5), constDecl.Value)
}

func TestConstantValueNotTopLevelCode(t *testing.T) {
	// the 5 belongs to the CONSTANT, the 7 is real top-level code
	prog, err := ParseString("5 CONSTANT five 7")
	require.NoError(t, err)

	require.Len(t, prog.TopLevel, 2)
	_, ok := prog.TopLevel[0].(*ConstantDecl)
	assert.True(t, ok)

	lit, ok := prog.TopLevel[1].(*IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(7), lit.Value)
}

func TestParseTopLevelCode(t *testing.T) {
	prog, err := ParseString(": double 2 * ;\n5 double .")
	require.NoError(t, err)

	assert.Len(t, prog.Definitions, 1)
	assert.Len(t, prog.TopLevel, 3)
}

func TestParseComments(t *testing.T) {
	prog, err := ParseString("\\ line comment\n( block comment ) 1 2 +")
	require.NoError(t, err)

	assert.Len(t, prog.TopLevel, 3)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unterminated definition", ": broken 1 2 +"},
		{"unterminated if", ": broken IF 1 ;"},
		{"unterminated begin", ": broken BEGIN 1 ;"},
		{"unterminated do", ": broken DO 1 ;"},
		{"constant without value", "CONSTANT five"},
		{"variable without name", "VARIABLE ;"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(tc.src)
			require.Error(t, err)
		})
	}
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	prog, err := ParseString(": f if 1 then ; : g If 2 Then ;")
	require.NoError(t, err)
	require.Len(t, prog.Definitions, 2)

	_, ok := prog.Definitions[0].Body[0].(*IfWord)
	assert.True(t, ok)
	_, ok = prog.Definitions[1].Body[0].(*IfWord)
	assert.True(t, ok)
}
