package syntax

import "github.com/quivent/fast-forth/logging"

// Token represents a token read in by the scanner
type Token struct {
	Kind  int
	Value string

	// Line is the line number starting at 1
	Line int

	// Col is the column number of the first character of the token, starting
	// at 1
	Col int
}

// The various kinds of tokens supported by the scanner
const (
	// definitions
	COLON = iota
	SEMICOLON
	VARIABLE
	CONSTANT
	INLINE
	IMMEDIATE

	// conditionals
	IF
	ELSE
	THEN

	// loops
	BEGIN
	UNTIL
	WHILE
	REPEAT
	DO
	LOOP
	PLUSLOOP

	// stack effect comments
	LPAREN
	RPAREN
	EFFECTSEP

	// literals
	INTLIT
	FLOATLIT
	STRINGLIT

	// everything else
	WORD
	EOF
)

// keywords maps the case-insensitive control and definition words onto their
// token kinds.  Forth word names are matched lowercased.
var keywords = map[string]int{
	"variable":  VARIABLE,
	"constant":  CONSTANT,
	"inline":    INLINE,
	"immediate": IMMEDIATE,
	"if":        IF,
	"else":      ELSE,
	"then":      THEN,
	"begin":     BEGIN,
	"until":     UNTIL,
	"while":     WHILE,
	"repeat":    REPEAT,
	"do":        DO,
	"loop":      LOOP,
	"+loop":     PLUSLOOP,
}

// PositionOfToken takes in a token and returns its text position
func PositionOfToken(tok *Token) *logging.TextPosition {
	return &logging.TextPosition{
		StartLn:  tok.Line,
		StartCol: tok.Col,
		EndLn:    tok.Line,
		EndCol:   tok.Col + len(tok.Value),
	}
}
