package parser

import "github.com/leapstack-labs/sqlcomplete/pkg/token"

// Kind classifies a node of the loose clause tree.
type Kind int

// Node kinds.
const (
	KindProgram Kind = iota
	KindStatement
	KindClause
	KindPropertyAccess
	KindFunctionCall
	KindParenthesis
	KindKeyword
	KindComma
	KindIdentifier
	KindLiteral
	KindOperator
	KindAllColumns
)

var kindNames = map[Kind]string{
	KindProgram:        "program",
	KindStatement:      "statement",
	KindClause:         "clause",
	KindPropertyAccess: "property_access",
	KindFunctionCall:   "function_call",
	KindParenthesis:    "parenthesis",
	KindKeyword:        "keyword",
	KindComma:          "comma",
	KindIdentifier:     "identifier",
	KindLiteral:        "literal",
	KindOperator:       "operator",
	KindAllColumns:     "all_columns",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsLeaf reports whether nodes of this kind carry source text and no children.
func (k Kind) IsLeaf() bool {
	switch k {
	case KindKeyword, KindComma, KindIdentifier, KindLiteral, KindOperator, KindAllColumns:
		return true
	default:
		return false
	}
}

// Node is a node of the loose clause tree.
//
// Statement, clause and parenthesis nodes hold Children. A clause names its
// opener in NameKw; a function call names its callee in NameKw and its
// arguments in Paren. A property access links Object and Property, so a.b.c
// is ((a . b) . c).
type Node struct {
	Kind Kind
	Text string // canonical text: keywords upper-case, everything else as written
	Raw  string // exact source text of leaves
	Pos  token.Position

	Children []*Node
	NameKw   *Node
	Object   *Node
	Property *Node
	Paren    *Node

	Token token.TokenType // leaf token type; first token of a keyword run
	Join  bool            // keyword run ending in JOIN
}

// Tree is the parse result: one node per non-empty statement.
type Tree struct {
	Statements []*Node
}
