package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser produces a Program from a scanned token stream
type Parser struct {
	tokens []*Token
	pos    int
}

// NewParser creates a parser over a token stream.  The stream must be
// terminated by an EOF token (as produced by Scanner.ScanAll).
func NewParser(tokens []*Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseString scans and parses Forth source text
func ParseString(src string) (*Program, error) {
	sc, err := NewScanner(strings.NewReader(src), "<string>")
	if err != nil {
		return nil, err
	}

	tokens, err := sc.ScanAll()
	if err != nil {
		return nil, err
	}

	return NewParser(tokens).ParseProgram()
}

// ParseFile scans and parses a Forth source file
func ParseFile(fpath string) (*Program, error) {
	sc, err := NewScannerForFile(fpath)
	if err != nil {
		return nil, err
	}

	tokens, err := sc.ScanAll()
	if err != nil {
		return nil, err
	}

	return NewParser(tokens).ParseProgram()
}

// peek returns the current token without consuming it
func (p *Parser) peek() *Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}

	return &Token{Kind: EOF}
}

// advance consumes and returns the current token
func (p *Parser) advance() *Token {
	tok := p.peek()
	p.pos++
	return tok
}

// errorAt constructs a parse error anchored at a token
func (p *Parser) errorAt(tok *Token, format string, args ...interface{}) error {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Pos:     PositionOfToken(tok),
	}
}

// ParseProgram parses the entire token stream into a Program
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}

	// an integer literal immediately preceding CONSTANT is its value rather
	// than top-level code, so literals are held pending one token
	var pending *IntLit

	flushPending := func() {
		if pending != nil {
			prog.TopLevel = append(prog.TopLevel, pending)
			pending = nil
		}
	}

	for p.peek().Kind != EOF {
		switch p.peek().Kind {
		case COLON:
			flushPending()
			def, err := p.parseDefinition()
			if err != nil {
				return nil, err
			}
			prog.Definitions = append(prog.Definitions, def)

		case VARIABLE:
			flushPending()
			tok := p.advance()
			name := p.advance()
			if name.Kind != WORD {
				return nil, p.errorAt(name, "expected variable name, found `%s`", name.Value)
			}
			prog.TopLevel = append(prog.TopLevel, &VariableDecl{
				WordBase: WordBase{Pos: PositionOfToken(tok)},
				Name:     name.Value,
			})

		case CONSTANT:
			tok := p.advance()
			if pending == nil {
				return nil, p.errorAt(tok, "expected constant value before CONSTANT")
			}
			name := p.advance()
			if name.Kind != WORD {
				return nil, p.errorAt(name, "expected constant name, found `%s`", name.Value)
			}
			prog.TopLevel = append(prog.TopLevel, &ConstantDecl{
				WordBase: WordBase{Pos: PositionOfToken(tok)},
				Name:     name.Value,
				Value:    pending.Value,
			})
			pending = nil

		case INTLIT:
			flushPending()
			tok := p.advance()
			value, err := strconv.ParseInt(tok.Value, 10, 64)
			if err != nil {
				return nil, p.errorAt(tok, "invalid integer literal `%s`", tok.Value)
			}
			pending = &IntLit{WordBase: WordBase{Pos: PositionOfToken(tok)}, Value: value}

		case LPAREN:
			flushPending()
			if err := p.skipComment(); err != nil {
				return nil, err
			}

		default:
			flushPending()
			word, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			prog.TopLevel = append(prog.TopLevel, word)
		}
	}

	flushPending()
	return prog, nil
}

// parseDefinition parses a colon definition (`: name ... ;`)
func (p *Parser) parseDefinition() (*Definition, error) {
	colon := p.advance() // consume `:`

	name := p.advance()
	if name.Kind != WORD {
		return nil, p.errorAt(name, "expected word name after `:`, found `%s`", name.Value)
	}

	def := &Definition{
		Name: name.Value,
		Pos:  PositionOfToken(colon),
	}

	// optional stack effect comment
	if p.peek().Kind == LPAREN {
		effect, err := p.parseStackEffect()
		if err != nil {
			return nil, err
		}
		def.Effect = effect
	}

	// optional INLINE directive right after the header
	if p.peek().Kind == INLINE {
		p.advance()
		def.IsInline = true
	}

	for {
		switch p.peek().Kind {
		case SEMICOLON:
			p.advance()
			// IMMEDIATE after the closing semicolon marks the definition
			if p.peek().Kind == IMMEDIATE {
				p.advance()
				def.Immediate = true
			}
			return def, nil

		case EOF:
			return nil, p.errorAt(colon, "unterminated definition: %s", def.Name)

		case LPAREN:
			if err := p.skipComment(); err != nil {
				return nil, err
			}

		default:
			word, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			def.Body = append(def.Body, word)
		}
	}
}

// parseStackEffect parses a `( a b -- c )` comment into a StackEffect
func (p *Parser) parseStackEffect() (*StackEffect, error) {
	lparen := p.advance() // consume `(`

	effect := &StackEffect{}
	beforeSep := true

	for {
		tok := p.advance()
		switch tok.Kind {
		case RPAREN:
			return effect, nil

		case EFFECTSEP:
			beforeSep = false

		case EOF:
			return nil, p.errorAt(lparen, "unterminated stack effect")

		default:
			ty := classifyStackType(tok.Value)
			if beforeSep {
				effect.Inputs = append(effect.Inputs, ty)
			} else {
				effect.Outputs = append(effect.Outputs, ty)
			}
		}
	}
}

// classifyStackType maps a stack effect name onto a stack type
func classifyStackType(name string) int {
	switch name {
	case "n", "i", "int":
		return StackTypeInt
	case "f", "float":
		return StackTypeFloat
	case "addr", "a":
		return StackTypeAddr
	case "bool", "flag":
		return StackTypeBool
	case "c", "char":
		return StackTypeChar
	case "s", "string":
		return StackTypeString
	default:
		return StackTypeUnknown
	}
}

// skipComment skips a parenthesized comment outside a definition header
func (p *Parser) skipComment() error {
	lparen := p.advance() // consume `(`

	for {
		switch p.advance().Kind {
		case RPAREN:
			return nil
		case EOF:
			return p.errorAt(lparen, "unterminated comment")
		}
	}
}

// parseWord parses a single word in a body: a literal, a word reference, or a
// nested control structure
func (p *Parser) parseWord() (Word, error) {
	tok := p.advance()
	base := WordBase{Pos: PositionOfToken(tok)}

	switch tok.Kind {
	case INTLIT:
		value, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errorAt(tok, "invalid integer literal `%s`", tok.Value)
		}
		return &IntLit{WordBase: base, Value: value}, nil

	case FLOATLIT:
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorAt(tok, "invalid float literal `%s`", tok.Value)
		}
		return &FloatLit{WordBase: base, Value: value}, nil

	case STRINGLIT:
		return &StringLit{WordBase: base, Value: tok.Value}, nil

	case IF:
		return p.parseIf(tok)

	case BEGIN:
		return p.parseBegin(tok)

	case DO:
		return p.parseDoLoop(tok)

	case WORD:
		return &WordRef{WordBase: base, Name: tok.Value}, nil

	default:
		return nil, p.errorAt(tok, "unexpected token `%s`", tok.Value)
	}
}

// parseIf parses `IF...THEN` or `IF...ELSE...THEN`; the IF token has already
// been consumed
func (p *Parser) parseIf(ifTok *Token) (Word, error) {
	node := &IfWord{WordBase: WordBase{Pos: PositionOfToken(ifTok)}}
	branch := &node.Then

	for {
		switch p.peek().Kind {
		case THEN:
			p.advance()
			return node, nil

		case ELSE:
			if branch == &node.Else {
				return nil, p.errorAt(p.peek(), "duplicate ELSE in IF")
			}
			p.advance()
			node.Else = []Word{}
			branch = &node.Else

		case EOF:
			return nil, p.errorAt(ifTok, "unterminated IF")

		default:
			word, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			*branch = append(*branch, word)
		}
	}
}

// parseBegin parses `BEGIN...UNTIL` or `BEGIN...WHILE...REPEAT`; the BEGIN
// token has already been consumed
func (p *Parser) parseBegin(beginTok *Token) (Word, error) {
	var body []Word

	for {
		switch p.peek().Kind {
		case UNTIL:
			p.advance()
			return &BeginUntil{
				WordBase: WordBase{Pos: PositionOfToken(beginTok)},
				Body:     body,
			}, nil

		case WHILE:
			p.advance()
			node := &BeginWhileRepeat{
				WordBase:  WordBase{Pos: PositionOfToken(beginTok)},
				Condition: body,
			}

			for {
				switch p.peek().Kind {
				case REPEAT:
					p.advance()
					return node, nil

				case EOF:
					return nil, p.errorAt(beginTok, "unterminated BEGIN...WHILE")

				default:
					word, err := p.parseWord()
					if err != nil {
						return nil, err
					}
					node.Body = append(node.Body, word)
				}
			}

		case EOF:
			return nil, p.errorAt(beginTok, "unterminated BEGIN")

		default:
			word, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			body = append(body, word)
		}
	}
}

// parseDoLoop parses `DO...LOOP` or `DO...+LOOP`; the DO token has already
// been consumed
func (p *Parser) parseDoLoop(doTok *Token) (Word, error) {
	node := &DoLoop{
		WordBase:  WordBase{Pos: PositionOfToken(doTok)},
		Increment: 1,
	}

	for {
		switch p.peek().Kind {
		case LOOP:
			p.advance()
			return node, nil

		case PLUSLOOP:
			tok := p.advance()
			// the increment is the literal preceding +LOOP
			if n := len(node.Body); n > 0 {
				if lit, ok := node.Body[n-1].(*IntLit); ok {
					node.Increment = lit.Value
					node.Body = node.Body[:n-1]
					return node, nil
				}
			}
			return nil, p.errorAt(tok, "+LOOP requires a literal increment")

		case EOF:
			return nil, p.errorAt(doTok, "unterminated DO loop")

		default:
			word, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			node.Body = append(node.Body, word)
		}
	}
}
