package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlcomplete/pkg/dialect"
	"github.com/leapstack-labs/sqlcomplete/pkg/token"
)

// Lexer tokenizes SQL input. Token literals are exact slices of the input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	dialect *dialect.Dialect
	err     error
}

// NewLexer creates a new dialect-aware Lexer for the given input.
// A nil dialect means the generic dialect.
func NewLexer(input string, d *dialect.Dialect) *Lexer {
	if d == nil {
		d = dialect.GetOrDefault(dialect.DefaultName)
	}
	l := &Lexer{
		input:   input,
		line:    1,
		col:     0,
		dialect: d,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error encountered, if any.
func (l *Lexer) Err() error {
	return l.err
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

func (l *Lexer) fail(pos token.Position, msg string) {
	if l.err == nil {
		l.err = &LexError{Pos: pos, Message: msg}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	start := l.pos

	if l.atEOF() {
		return token.Token{Type: token.EOF, Pos: pos}
	}

	single := func(t token.TokenType) token.Token {
		l.readChar()
		return token.Token{Type: t, Literal: l.input[start:l.pos], Pos: pos}
	}
	double := func(t token.TokenType) token.Token {
		l.readChar()
		l.readChar()
		return token.Token{Type: t, Literal: l.input[start:l.pos], Pos: pos}
	}

	switch l.ch {
	case '+':
		return single(token.PLUS)
	case '-':
		return single(token.MINUS)
	case '*':
		return single(token.STAR)
	case '/':
		return single(token.SLASH)
	case '%':
		return single(token.PERCENT)
	case '=':
		return single(token.EQ)
	case '<':
		switch l.peekChar() {
		case '=':
			return double(token.LE)
		case '>':
			return double(token.NE)
		default:
			return single(token.LT)
		}
	case '>':
		if l.peekChar() == '=' {
			return double(token.GE)
		}
		return single(token.GT)
	case '!':
		if l.peekChar() == '=' {
			return double(token.NE)
		}
		return single(token.ILLEGAL)
	case '|':
		if l.peekChar() == '|' {
			return double(token.DPIPE)
		}
		return single(token.ILLEGAL)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(pos)
		}
		return single(token.DOT)
	case ',':
		return single(token.COMMA)
	case '(':
		return single(token.LPAREN)
	case ')':
		return single(token.RPAREN)
	case ';':
		return single(token.SEMI)
	case '\'':
		return l.readString(pos)
	}

	if l.dialect.IsIdentifierQuote(l.ch) {
		return l.readQuotedIdentifier(pos)
	}

	switch {
	case isIdentStart(l.ch):
		lit := l.readIdentifier()
		tok := token.Token{Type: token.LookupIdent(strings.ToLower(lit)), Literal: lit, Pos: pos}
		if tok.Type == token.IDENT {
			if dt, ok := l.dialect.LookupKeyword(lit); ok {
				tok.Type = dt
			}
		}
		return tok
	case isDigit(l.ch):
		return l.readNumber(pos)
	default:
		return single(token.ILLEGAL)
	}
}

// skipWhitespaceAndComments skips whitespace, line comments and block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		if l.ch == '#' && l.dialect.IsIdentifierQuote('`') {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			pos := l.currentPos()
			l.readChar()
			l.readChar()
			closed := false
			for !l.atEOF() {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				l.fail(pos, ErrUnterminatedComment)
			}
			continue
		}

		break
	}
}

// readString reads a single-quoted string literal.
// Doubled single quotes are an escaped quote.
func (l *Lexer) readString(pos token.Position) token.Token {
	start := l.pos
	l.readChar() // skip opening quote

	for {
		if l.atEOF() {
			l.fail(pos, ErrUnterminatedString)
			break
		}
		if l.ch == '\\' && l.dialect.IsIdentifierQuote('`') && l.peekChar() != 0 {
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		l.readChar()
	}
	return token.Token{Type: token.STRING, Literal: l.input[start:l.pos], Pos: pos}
}

// readQuotedIdentifier reads an identifier wrapped in the dialect's quote
// characters. Doubled closing quotes are an escaped quote.
func (l *Lexer) readQuotedIdentifier(pos token.Position) token.Token {
	start := l.pos
	closing := l.ch
	if closing == '[' {
		closing = ']'
	}
	l.readChar() // skip opening quote

	for {
		if l.atEOF() {
			l.fail(pos, ErrUnterminatedIdentifier)
			break
		}
		if l.ch == closing {
			if l.peekChar() == closing && closing != ']' {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		l.readChar()
	}
	return token.Token{Type: token.IDENT, Literal: l.input[start:l.pos], Pos: pos}
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentStart(l.ch) || isDigit(l.ch) || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber(pos token.Position) token.Token {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar() // skip sign
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return token.Token{Type: token.NUMBER, Literal: l.input[start:l.pos], Pos: pos}
}

// isIdentStart reports whether ch can start an identifier. Bytes of
// multi-byte UTF-8 sequences are accepted so non-ASCII names stay whole.
func isIdentStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= utf8.RuneSelf
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string, d *dialect.Dialect) ([]token.Token, error) {
	l := NewLexer(input, d)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if l.err != nil {
		return tokens, l.err
	}
	return tokens, nil
}
