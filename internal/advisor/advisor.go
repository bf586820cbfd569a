// Package advisor classifies a cursor position in SQL text into the kind of
// completion that is valid there.
//
// The advisor is pure: it reads a decorated AST and returns an Advice value.
// It performs no I/O and never touches the metadata cache.
package advisor

import (
	"github.com/leapstack-labs/sqlcomplete/internal/ast"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
	"github.com/leapstack-labs/sqlcomplete/pkg/dialect"
	"github.com/leapstack-labs/sqlcomplete/pkg/parser"
)

// Kind is the kind of completion valid at the cursor.
type Kind int

// Advice kinds.
const (
	None Kind = iota
	Keyword
	Table
	ColumnOrKeyword
)

func (k Kind) String() string {
	switch k {
	case Keyword:
		return "KEYWORD"
	case Table:
		return "TABLE"
	case ColumnOrKeyword:
		return "COLUMN_OR_KEYWORD"
	default:
		return "NONE"
	}
}

// Advice is the classified completion context at a cursor position.
type Advice struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// InputPrefix holds the dotted segments typed before the cursor; the last
	// one is the partial word being completed.
	InputPrefix     []string                `json:"inputPrefix" yaml:"input_prefix"`
	CandidateTables []core.TableCoordinator `json:"candidateTables,omitempty" yaml:"candidate_tables,omitempty"`
}

// Partial returns the word being completed, the last prefix segment.
func (a Advice) Partial() string {
	if len(a.InputPrefix) == 0 {
		return ""
	}
	return a.InputPrefix[len(a.InputPrefix)-1]
}

// Qualifiers returns the prefix segments before the partial word.
func (a Advice) Qualifiers() []string {
	if len(a.InputPrefix) <= 1 {
		return nil
	}
	return a.InputPrefix[:len(a.InputPrefix)-1]
}

var noAdvice = Advice{Kind: None}

// AdviseText joins the text around the caret with the cursor sentinel and advises on it.
func AdviseText(before, after string, d *dialect.Dialect) Advice {
	return Advise(ast.New(before+ast.Cursor+after, d))
}

// Advise classifies the cursor position of a.
func Advise(a *ast.AST) Advice {
	if !a.Valid() {
		return noAdvice
	}
	cursor := a.FindCursorNode()
	if cursor == ast.NoNode {
		return noAdvice
	}
	if a.Node(cursor).Kind == parser.KindLiteral {
		return noAdvice
	}

	node := a.ChainRoot(cursor)
	prefix := a.Tokens(node, true)

	// typing an alias
	if a.IsAs(a.PrevSibling(node)) {
		return Advice{Kind: Keyword, InputPrefix: prefix}
	}

	clause := a.Parent(node)
	switch a.ShapeOf(clause) {
	case ast.ShapeSingleTable:
		if a.IsTableNameInSingleTableClause(node) {
			return Advice{Kind: Table, InputPrefix: prefix}
		}
		return Advice{Kind: Keyword, InputPrefix: prefix}

	case ast.ShapeCreateView:
		return noAdvice

	case ast.ShapeFrom:
		if a.IsTableNameInFromClause(node) {
			return Advice{Kind: Table, InputPrefix: prefix}
		}
		children := a.Children(clause)
		for i := a.Node(node).Index - 1; i >= 0; i-- {
			prev := children[i]
			if a.IsOn(prev) {
				return columnOrKeyword(a, node, prefix)
			}
			if a.IsJoin(prev) {
				break
			}
		}
		return Advice{Kind: Keyword, InputPrefix: prefix}

	case ast.ShapeCreateIndex:
		if a.IsOn(a.PrevSibling(node)) {
			return Advice{Kind: Table, InputPrefix: prefix}
		}
		return noAdvice

	case ast.ShapeOther:
		return columnOrKeyword(a, node, prefix)
	}
	return noAdvice
}

// columnOrKeyword collects candidate tables walking up from node: at each
// enclosing clause, every sibling clause contributes its tables, and the
// walk continues through enclosing subqueries up to the statement.
func columnOrKeyword(a *ast.AST, node ast.NodeID, prefix []string) Advice {
	var tables []core.TableCoordinator
	for {
		clause := a.NearestClause(node)
		if clause == ast.NoNode {
			break
		}
		parent := a.Parent(clause)
		for _, sibling := range a.Children(parent) {
			tables = append(tables, a.TablesInClause(sibling)...)
		}
		node = parent
		if a.IsStatement(node) {
			break
		}
	}
	return Advice{Kind: ColumnOrKeyword, InputPrefix: prefix, CandidateTables: tables}
}
