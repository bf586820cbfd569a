package ast

import (
	"github.com/leapstack-labs/sqlcomplete/pkg/parser"
	"github.com/leapstack-labs/sqlcomplete/pkg/token"
)

// Clause names as produced by the parser.
const (
	ClauseSelect            = "SELECT"
	ClauseFrom              = "FROM"
	ClauseInsertInto        = "INSERT INTO"
	ClauseInsertIgnoreInto  = "INSERT IGNORE INTO"
	ClauseReplaceInto       = "REPLACE INTO"
	ClauseUpdate            = "UPDATE"
	ClauseDeleteFrom        = "DELETE FROM"
	ClauseDropTable         = "DROP TABLE"
	ClauseDropView          = "DROP VIEW"
	ClauseTruncateTable     = "TRUNCATE TABLE"
	ClauseAlterTable        = "ALTER TABLE"
	ClauseCreateView        = "CREATE VIEW"
	ClauseCreateIndex       = "CREATE INDEX"
	ClauseCreateUniqueIndex = "CREATE UNIQUE INDEX"
)

// Shape is the closed set of clause shapes the advisor distinguishes.
type Shape int

// Clause shapes.
const (
	ShapeOther       Shape = iota // SELECT list, WHERE, GROUP BY, ORDER BY, HAVING, SET, ...
	ShapeSingleTable              // clauses naming exactly one table
	ShapeCreateView
	ShapeFrom
	ShapeCreateIndex
)

func (s Shape) String() string {
	switch s {
	case ShapeSingleTable:
		return "single-table"
	case ShapeCreateView:
		return "create-view"
	case ShapeFrom:
		return "from"
	case ShapeCreateIndex:
		return "create-index"
	default:
		return "other"
	}
}

var shapes = map[string]Shape{
	ClauseInsertInto:        ShapeSingleTable,
	ClauseInsertIgnoreInto:  ShapeSingleTable,
	ClauseReplaceInto:       ShapeSingleTable,
	ClauseUpdate:            ShapeSingleTable,
	ClauseDeleteFrom:        ShapeSingleTable,
	ClauseDropTable:         ShapeSingleTable,
	ClauseDropView:          ShapeSingleTable,
	ClauseTruncateTable:     ShapeSingleTable,
	ClauseAlterTable:        ShapeSingleTable,
	ClauseCreateView:        ShapeCreateView,
	ClauseFrom:              ShapeFrom,
	ClauseCreateIndex:       ShapeCreateIndex,
	ClauseCreateUniqueIndex: ShapeCreateIndex,
}

// ShapeOf returns the shape of a clause node. Non-clause nodes are ShapeOther.
func (a *AST) ShapeOf(id NodeID) Shape {
	n := a.Node(id)
	if n.Kind != parser.KindClause {
		return ShapeOther
	}
	return shapes[n.Text]
}

// IsClause reports whether id is a clause with one of the given names.
// With no names it reports whether id is any clause.
func (a *AST) IsClause(id NodeID, names ...string) bool {
	n := a.Node(id)
	if n.Kind != parser.KindClause {
		return false
	}
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if n.Text == name {
			return true
		}
	}
	return false
}

// IsStatement reports whether id is a statement node.
func (a *AST) IsStatement(id NodeID) bool {
	return a.Node(id).Kind == parser.KindStatement
}

// IsComma reports whether id is a comma.
func (a *AST) IsComma(id NodeID) bool {
	return a.Node(id).Kind == parser.KindComma
}

// IsJoin reports whether id is a JOIN keyword run such as LEFT OUTER JOIN.
func (a *AST) IsJoin(id NodeID) bool {
	n := a.Node(id)
	return n.Kind == parser.KindKeyword && n.Join
}

// IsOn reports whether id is the ON keyword.
func (a *AST) IsOn(id NodeID) bool {
	return a.isKeyword(id, token.ON)
}

// IsUsing reports whether id is the USING keyword.
func (a *AST) IsUsing(id NodeID) bool {
	return a.isKeyword(id, token.USING)
}

// IsAs reports whether id is the AS keyword.
func (a *AST) IsAs(id NodeID) bool {
	return a.isKeyword(id, token.AS)
}

func (a *AST) isKeyword(id NodeID, t token.TokenType) bool {
	n := a.Node(id)
	return n.Kind == parser.KindKeyword && !n.Join && n.Token == t
}

// IsDirectChildOfClause reports whether the chain containing id sits
// directly in a clause with one of the given names, as opposed to being
// nested in a parenthesis or function call inside it.
func (a *AST) IsDirectChildOfClause(id NodeID, names ...string) bool {
	return a.IsClause(a.Parent(a.ChainRoot(id)), names...)
}

// IsTableNameInFromClause reports whether id is in table-name position of a
// FROM clause: first in the clause, or right after a comma or JOIN.
func (a *AST) IsTableNameInFromClause(id NodeID) bool {
	id = a.ChainRoot(id)
	if !a.IsDirectChildOfClause(id, ClauseFrom) {
		return false
	}
	if a.Node(id).Index == 0 {
		return true
	}
	prev := a.PrevSibling(id)
	return a.IsComma(prev) || a.IsJoin(prev)
}

// IsTableNameInSingleTableClause reports whether id is in table-name
// position of its clause: first in the clause, or right after a comma.
func (a *AST) IsTableNameInSingleTableClause(id NodeID) bool {
	id = a.ChainRoot(id)
	if !a.IsClause(a.Parent(id)) {
		return false
	}
	if a.Node(id).Index == 0 {
		return true
	}
	return a.IsComma(a.PrevSibling(id))
}
