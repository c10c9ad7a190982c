package syntax

import (
	"io"
	"io/ioutil"
	"os"
	"strings"
	"unicode"

	"github.com/quivent/fast-forth/logging"
)

// Scanner tokenizes Forth source text.  Forth lexing is word-oriented: tokens
// are chunks of non-whitespace text, with special handling for line comments,
// parenthesized comments/stack effects, and string literals.
type Scanner struct {
	// fpath is the path of the file being scanned (for error contexts)
	fpath string

	// src is the full source text
	src []rune

	// pos is the index of the next rune to be read
	pos int

	// line and col track the position of the next rune
	line, col int
}

// NewScanner creates a scanner for the contents of the given reader
func NewScanner(r io.Reader, fpath string) (*Scanner, error) {
	buff, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		fpath: fpath,
		src:   []rune(string(buff)),
		line:  1,
		col:   1,
	}, nil
}

// NewScannerForFile opens a source file and creates a scanner over it
func NewScannerForFile(fpath string) (*Scanner, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewScanner(f, fpath)
}

// ScanAll reads every token in the source and returns them, terminated by an
// EOF token
func (s *Scanner) ScanAll() ([]*Token, error) {
	var tokens []*Token

	for {
		tok, err := s.scanToken()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}

// scanToken reads the next token from the source
func (s *Scanner) scanToken() (*Token, error) {
	s.skipWhitespace()

	if s.pos >= len(s.src) {
		return s.makeToken(EOF, ""), nil
	}

	startLine, startCol := s.line, s.col
	r := s.src[s.pos]

	switch {
	case r == '\\':
		// `\` comments run to the end of the line
		for s.pos < len(s.src) && s.src[s.pos] != '\n' {
			s.advance()
		}
		return s.scanToken()
	case r == '(':
		// `(` only begins a comment or stack effect when it stands alone
		if s.standsAlone() {
			s.advance()
			return &Token{Kind: LPAREN, Value: "(", Line: startLine, Col: startCol}, nil
		}
	case r == ')':
		if s.standsAlone() {
			s.advance()
			return &Token{Kind: RPAREN, Value: ")", Line: startLine, Col: startCol}, nil
		}
	}

	word := s.readWord()

	switch {
	case word == ":":
		return &Token{Kind: COLON, Value: word, Line: startLine, Col: startCol}, nil
	case word == ";":
		return &Token{Kind: SEMICOLON, Value: word, Line: startLine, Col: startCol}, nil
	case word == "--":
		return &Token{Kind: EFFECTSEP, Value: word, Line: startLine, Col: startCol}, nil
	case word == `s"` || word == `."`:
		return s.readStringLiteral(startLine, startCol)
	}

	lowered := strings.ToLower(word)
	if kind, ok := keywords[lowered]; ok {
		return &Token{Kind: kind, Value: lowered, Line: startLine, Col: startCol}, nil
	}

	if kind, ok := classifyNumber(word); ok {
		return &Token{Kind: kind, Value: word, Line: startLine, Col: startCol}, nil
	}

	// all remaining words are plain word references; Forth is case-insensitive
	// so names are normalized to lower case
	return &Token{Kind: WORD, Value: lowered, Line: startLine, Col: startCol}, nil
}

// readStringLiteral reads a `s" ..."` or `." ..."` literal.  The text between
// the opening word and the closing quote becomes the token value.
func (s *Scanner) readStringLiteral(startLine, startCol int) (*Token, error) {
	// the single space following `s"` is part of the syntax, not the string
	if s.pos < len(s.src) && s.src[s.pos] == ' ' {
		s.advance()
	}

	var sb strings.Builder
	for {
		if s.pos >= len(s.src) {
			return nil, &ParseError{
				Message: "unterminated string literal",
				Pos:     &logging.TextPosition{StartLn: startLine, StartCol: startCol, EndLn: s.line, EndCol: s.col},
			}
		}

		r := s.src[s.pos]
		s.advance()
		if r == '"' {
			break
		}
		sb.WriteRune(r)
	}

	return &Token{Kind: STRINGLIT, Value: sb.String(), Line: startLine, Col: startCol}, nil
}

// readWord reads a maximal run of non-whitespace runes
func (s *Scanner) readWord() string {
	var sb strings.Builder
	for s.pos < len(s.src) && !unicode.IsSpace(s.src[s.pos]) {
		// `s"` and `."` open string literals mid-word
		sb.WriteRune(s.src[s.pos])
		s.advance()

		w := sb.String()
		if w == `s"` || w == `."` {
			return w
		}
	}
	return sb.String()
}

// standsAlone reports whether the rune at the current position is followed by
// whitespace or end of input (ie. forms a one-character word)
func (s *Scanner) standsAlone() bool {
	return s.pos+1 >= len(s.src) || unicode.IsSpace(s.src[s.pos+1])
}

func (s *Scanner) skipWhitespace() {
	for s.pos < len(s.src) && unicode.IsSpace(s.src[s.pos]) {
		s.advance()
	}
}

func (s *Scanner) advance() {
	if s.src[s.pos] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.pos++
}

func (s *Scanner) makeToken(kind int, value string) *Token {
	return &Token{Kind: kind, Value: value, Line: s.line, Col: s.col}
}

// classifyNumber determines whether a word is an integer or float literal
func classifyNumber(word string) (int, bool) {
	body := word
	if strings.HasPrefix(body, "-") || strings.HasPrefix(body, "+") {
		body = body[1:]
	}
	if body == "" {
		return 0, false
	}

	digits, dot := 0, false
	for _, r := range body {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' && !dot:
			dot = true
		default:
			return 0, false
		}
	}

	if digits == 0 {
		return 0, false
	}
	if dot {
		return FLOATLIT, true
	}
	return INTLIT, true
}
