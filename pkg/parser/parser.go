// Package parser turns SQL text into a loose clause tree for completion.
//
// The tree is deliberately shallow. A statement is a list of clauses, each
// clause is a flat list of the items that follow its opening keywords, and
// only dotted names, function calls and parentheses nest. It tolerates
// anything that is not structurally broken; it fails only on unterminated
// quotes or comments and unbalanced parentheses.
//
//	tree, err := parser.Parse("SELECT a FROM t", dialect.GetOrDefault("mysql"))
package parser

import (
	"strings"

	"github.com/leapstack-labs/sqlcomplete/pkg/dialect"
	"github.com/leapstack-labs/sqlcomplete/pkg/token"
)

// Parser builds a clause tree from a token stream.
type Parser struct {
	src     string
	toks    []token.Token
	i       int
	dialect *dialect.Dialect
}

// Parse parses sql with the given dialect. A nil dialect means the generic one.
func Parse(sql string, d *dialect.Dialect) (*Tree, error) {
	if d == nil {
		d = dialect.GetOrDefault(dialect.DefaultName)
	}
	toks, err := Tokenize(sql, d)
	if err != nil {
		return nil, err
	}
	p := &Parser{src: sql, toks: toks, dialect: d}
	return p.parse()
}

func (p *Parser) cur() token.Token {
	return p.toks[p.i]
}

func (p *Parser) peekN(n int) token.Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *Parser) advance() {
	if p.i < len(p.toks)-1 {
		p.i++
	}
}

func (p *Parser) parse() (*Tree, error) {
	tree := &Tree{}
	for {
		pos := p.cur().Pos
		children, err := p.parseBody(nil)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			tree.Statements = append(tree.Statements, &Node{Kind: KindStatement, Pos: pos, Children: children})
		}
		if p.cur().Type != token.SEMI {
			return tree, nil
		}
		p.advance()
	}
}

// parseBody parses items and clauses until the end of a statement, or until
// the closing parenthesis when open is not nil. Items before the first
// clause opener are returned directly.
func (p *Parser) parseBody(open *token.Token) ([]*Node, error) {
	var out []*Node
	var clause *Node

	for {
		tok := p.cur()
		switch tok.Type {
		case token.EOF, token.SEMI:
			if open != nil {
				return nil, &ParseError{Pos: open.Pos, Message: ErrUnbalancedOpen}
			}
			return out, nil
		case token.RPAREN:
			if open == nil {
				return nil, &ParseError{Pos: tok.Pos, Message: ErrUnbalancedClose}
			}
			return out, nil
		}

		if c := p.matchClause(); c != nil {
			clause = c
			out = append(out, clause)
			continue
		}

		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		if clause != nil {
			clause.Children = append(clause.Children, item)
		} else {
			out = append(out, item)
		}
	}
}

// matchClause consumes a clause opener at the current token, longest match first.
func (p *Parser) matchClause() *Node {
	if !token.IsKeyword(p.cur().Type) {
		return nil
	}
	for _, def := range p.dialect.Clauses() {
		matched := true
		for k, t := range def.Tokens {
			if p.peekN(k).Type != t {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		first := p.cur()
		last := p.peekN(len(def.Tokens) - 1)
		for range def.Tokens {
			p.advance()
		}
		kw := &Node{
			Kind:  KindKeyword,
			Text:  def.Name,
			Raw:   p.src[first.Pos.Offset:last.End()],
			Pos:   first.Pos,
			Token: first.Type,
		}
		return &Node{Kind: KindClause, Text: def.Name, Pos: first.Pos, NameKw: kw}
	}
	return nil
}

// functionKeywords are keywords that are also common function names.
var functionKeywords = map[token.TokenType]bool{
	token.LEFT:  true,
	token.RIGHT: true,
}

func (p *Parser) parseItem() (*Node, error) {
	tok := p.cur()

	switch {
	case tok.Type == token.LPAREN:
		return p.parseParen()
	case tok.Type == token.COMMA:
		p.advance()
		return p.leaf(KindComma, tok), nil
	case tok.Type == token.STRING || tok.Type == token.NUMBER:
		p.advance()
		return p.leaf(KindLiteral, tok), nil
	case tok.Type == token.STAR:
		p.advance()
		return p.leaf(KindAllColumns, tok), nil
	case tok.Type == token.IDENT:
		return p.parseName()
	case token.IsKeyword(tok.Type):
		if join := p.matchJoin(); join != nil {
			return join, nil
		}
		if token.IsDynamic(tok.Type) || tok.Type == token.ORDER ||
			(functionKeywords[tok.Type] && p.peekN(1).Type == token.LPAREN) {
			return p.parseName()
		}
		p.advance()
		kw := p.leaf(KindKeyword, tok)
		kw.Text = strings.ToUpper(tok.Literal)
		return kw, nil
	default:
		p.advance()
		return p.leaf(KindOperator, tok), nil
	}
}

// matchJoin consumes a keyword run such as LEFT OUTER JOIN.
func (p *Parser) matchJoin() *Node {
	n := 0
	if p.peekN(n).Type == token.NATURAL {
		n++
	}
	switch p.peekN(n).Type {
	case token.LEFT, token.RIGHT, token.FULL:
		n++
		if p.peekN(n).Type == token.OUTER {
			n++
		}
	case token.INNER, token.CROSS:
		n++
	}
	if p.peekN(n).Type != token.JOIN {
		return nil
	}

	first := p.cur()
	last := p.peekN(n)
	words := make([]string, 0, n+1)
	for k := 0; k <= n; k++ {
		words = append(words, strings.ToUpper(p.cur().Literal))
		p.advance()
	}
	return &Node{
		Kind:  KindKeyword,
		Text:  strings.Join(words, " "),
		Raw:   p.src[first.Pos.Offset:last.End()],
		Pos:   first.Pos,
		Token: first.Type,
		Join:  true,
	}
}

// parseName parses an identifier with any trailing .member accesses and an
// optional argument list.
func (p *Parser) parseName() (*Node, error) {
	tok := p.cur()
	p.advance()
	node := p.leaf(KindIdentifier, tok)

	for p.cur().Type == token.DOT {
		dot := p.cur()
		p.advance()

		next := p.cur()
		var prop *Node
		switch {
		case next.Type == token.IDENT || token.IsKeyword(next.Type):
			p.advance()
			prop = p.leaf(KindIdentifier, next)
		case next.Type == token.STAR:
			p.advance()
			prop = p.leaf(KindAllColumns, next)
		default:
			// Dangling dot, e.g. "schema." with nothing typed yet.
			prop = &Node{Kind: KindIdentifier, Pos: token.Position{
				Line: dot.Pos.Line, Column: dot.Pos.Column + 1, Offset: dot.End(),
			}}
		}
		node = &Node{Kind: KindPropertyAccess, Pos: node.Pos, Object: node, Property: prop}
	}

	if p.cur().Type == token.LPAREN {
		paren, err := p.parseParen()
		if err != nil {
			return nil, err
		}
		node = &Node{Kind: KindFunctionCall, Pos: node.Pos, NameKw: node, Paren: paren}
	}
	return node, nil
}

func (p *Parser) parseParen() (*Node, error) {
	open := p.cur()
	p.advance()

	children, err := p.parseBody(&open)
	if err != nil {
		return nil, err
	}
	p.advance() // consume ')'
	return &Node{Kind: KindParenthesis, Pos: open.Pos, Children: children}, nil
}

func (p *Parser) leaf(kind Kind, tok token.Token) *Node {
	return &Node{Kind: kind, Text: tok.Literal, Raw: tok.Literal, Pos: tok.Pos, Token: tok.Type}
}
