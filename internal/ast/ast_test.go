package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
	"github.com/leapstack-labs/sqlcomplete/pkg/dialect"
	"github.com/leapstack-labs/sqlcomplete/pkg/parser"
)

func newAST(t *testing.T, sql string) *AST {
	t.Helper()
	a := New(sql, dialect.GetOrDefault("mysql"))
	require.True(t, a.Valid(), "parse failed: %v", a.Err())
	return a
}

// firstClause returns the first clause with the given name in the arena.
func firstClause(t *testing.T, a *AST, name string) NodeID {
	t.Helper()
	found := NoNode
	a.Walk(a.Root(), func(id NodeID) bool {
		if a.IsClause(id, name) {
			found = id
			return false
		}
		return true
	})
	require.NotEqual(t, NoNode, found, "clause %s not found", name)
	return found
}

func TestDecorationLinks(t *testing.T) {
	a := newAST(t, "SELECT a.b, c FROM t")

	a.Walk(a.Root(), func(id NodeID) bool {
		n := a.Node(id)
		assert.Equal(t, id, n.ID)
		if id == a.Root() {
			assert.Equal(t, NoNode, n.Parent)
			return true
		}
		p := a.Node(n.Parent)
		if n.Index >= 0 {
			require.Less(t, n.Index, len(p.Children))
			assert.Equal(t, id, p.Children[n.Index])
		} else {
			assert.Contains(t, []NodeID{p.NameKw, p.Object, p.Property, p.Paren}, id)
		}
		return true
	})
}

func TestFieldsNeverIncludeParent(t *testing.T) {
	a := newAST(t, "SELECT s.t.c, f(x) FROM s.t")
	for id := NodeID(0); int(id) < a.Len(); id++ {
		parent := a.Parent(id)
		if parent == NoNode {
			continue
		}
		assert.NotContains(t, a.Fields(id), parent)
	}

	// Every node is reachable exactly once from the root.
	seen := make(map[NodeID]int)
	a.Walk(a.Root(), func(id NodeID) bool {
		seen[id]++
		return true
	})
	assert.Len(t, seen, a.Len())
	for id, n := range seen {
		assert.Equal(t, 1, n, "node %d visited more than once", id)
	}
}

func TestInvalidAST(t *testing.T) {
	a := New("SELECT (a FROM __cursor__", nil)
	assert.False(t, a.Valid())
	assert.Error(t, a.Err())
	assert.Equal(t, NoNode, a.Root())
	assert.Equal(t, NoNode, a.FindCursorNode())
	assert.Nil(t, a.Tokens(NoNode, true))
	assert.Nil(t, a.TablesInClause(NoNode))
	assert.False(t, a.IsTableNameInFromClause(NoNode))
}

func TestFindCursorNode(t *testing.T) {
	a := newAST(t, "SELECT id FROM us__cursor__er")
	id := a.FindCursorNode()
	require.NotEqual(t, NoNode, id)
	assert.Equal(t, "us__cursor__er", a.Node(id).Raw)
	assert.True(t, a.IsClause(a.Parent(id), ClauseFrom))

	a = newAST(t, "SELECT id FROM user")
	assert.Equal(t, NoNode, a.FindCursorNode())
}

func TestChainRootAndTokens(t *testing.T) {
	tests := []struct {
		name         string
		sql          string
		beforeCursor bool
		want         []string
	}{
		{"cursor mid segment", "SELECT schema.tab__cursor__", true, []string{"schema", "tab"}},
		{"cursor mid chain", "SELECT schema.tab__cursor__le.column", true, []string{"schema", "tab"}},
		{"cursor at chain end", "SELECT schema.table.column__cursor__", true, []string{"schema", "table", "column"}},
		{"dangling dot", "SELECT schema.__cursor__", true, []string{"schema", ""}},
		{"full chain", "SELECT schema.tab__cursor__le.column", false, []string{"schema", "table", "column"}},
		{"quoted", "SELECT `my schema`.\"tbl\".__cursor__", true, []string{"my schema", "tbl", ""}},
		{"function name", "SELECT cou__cursor__(x)", true, []string{"cou"}},
		{"qualified function", "SELECT pkg.fn__cursor__(x)", true, []string{"pkg", "fn"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAST(t, tt.sql)
			cur := a.FindCursorNode()
			require.NotEqual(t, NoNode, cur)

			root := a.ChainRoot(cur)
			assert.True(t, a.IsClause(a.Parent(root), ClauseSelect), "chain root should sit in SELECT")
			assert.Equal(t, tt.want, a.Tokens(cur, tt.beforeCursor))
		})
	}
}

func TestTokensOfLiteral(t *testing.T) {
	a := newAST(t, "SELECT * FROM t WHERE name = 'ab__cursor__c'")
	cur := a.FindCursorNode()
	require.Equal(t, parser.KindLiteral, a.Node(cur).Kind)
	assert.Nil(t, a.Tokens(cur, true))
}

func TestNearestClause(t *testing.T) {
	a := newAST(t, "SELECT * FROM a WHERE id IN (SELECT aid FROM b WHERE x__cursor__)")
	cur := a.FindCursorNode()

	inner := a.NearestClause(cur)
	require.True(t, a.IsClause(inner, "WHERE"))
	assert.Equal(t, parser.KindParenthesis, a.Node(a.Parent(inner)).Kind)

	outer := a.NearestClause(a.Parent(inner))
	require.True(t, a.IsClause(outer, "WHERE"))
	assert.True(t, a.IsStatement(a.Parent(outer)))
}

func TestShapeOf(t *testing.T) {
	a := newAST(t, "CREATE VIEW v AS SELECT * FROM t")
	assert.Equal(t, ShapeCreateView, a.ShapeOf(firstClause(t, a, ClauseCreateView)))
	assert.Equal(t, ShapeFrom, a.ShapeOf(firstClause(t, a, ClauseFrom)))
	assert.Equal(t, ShapeOther, a.ShapeOf(firstClause(t, a, ClauseSelect)))
	assert.Equal(t, ShapeOther, a.ShapeOf(a.Root()))

	a = newAST(t, "REPLACE INTO t VALUES (1)")
	assert.Equal(t, ShapeSingleTable, a.ShapeOf(firstClause(t, a, ClauseReplaceInto)))
}

func TestTablesInFromClause(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []core.TableCoordinator
	}{
		{
			name: "commas and aliases",
			sql:  "SELECT * FROM a, b c, d AS e",
			want: []core.TableCoordinator{
				{Table: "a"},
				{Table: "b", Alias: "c"},
				{Table: "d", Alias: "e"},
			},
		},
		{
			name: "joins",
			sql:  "SELECT * FROM user, person p LEFT JOIN student AS s ON s.id = user.id JOIN db.klass k ON k.id = s.kid",
			want: []core.TableCoordinator{
				{Table: "user"},
				{Table: "person", Alias: "p"},
				{Table: "student", Alias: "s"},
				{Schema: "db", Table: "klass", Alias: "k"},
			},
		},
		{
			name: "trailing join without on",
			sql:  "SELECT * FROM user u LEFT JOIN order o",
			want: []core.TableCoordinator{
				{Table: "user", Alias: "u"},
				{Table: "order", Alias: "o"},
			},
		},
		{
			name: "using closes join",
			sql:  "SELECT * FROM a JOIN b USING (id)",
			want: []core.TableCoordinator{{Table: "a"}, {Table: "b"}},
		},
		{
			name: "three segments dropped",
			sql:  "SELECT * FROM x.y.z, good g",
			want: []core.TableCoordinator{{Table: "good", Alias: "g"}},
		},
		{
			name: "cursor slot is not a table",
			sql:  "SELECT * FROM user, __cursor__",
			want: []core.TableCoordinator{{Table: "user"}},
		},
		{
			name: "quoted names",
			sql:  "SELECT * FROM `sales`.`order` AS `o`",
			want: []core.TableCoordinator{{Schema: "sales", Table: "order", Alias: "o"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAST(t, tt.sql)
			assert.Equal(t, tt.want, a.TablesInClause(firstClause(t, a, ClauseFrom)))
		})
	}
}

func TestTablesInSingleTableClause(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		clause string
		want   []core.TableCoordinator
	}{
		{"insert with columns", "INSERT INTO user(id, name) VALUES (1, 'a')", ClauseInsertInto, []core.TableCoordinator{{Table: "user"}}},
		{"insert qualified", "INSERT INTO s.user (id) VALUES (1)", ClauseInsertInto, []core.TableCoordinator{{Schema: "s", Table: "user"}}},
		{"insert ignore", "INSERT IGNORE INTO t VALUES (1)", ClauseInsertIgnoreInto, []core.TableCoordinator{{Table: "t"}}},
		{"update alias", "UPDATE user u SET u.name = 'x'", ClauseUpdate, []core.TableCoordinator{{Table: "user", Alias: "u"}}},
		{"delete as alias", "DELETE FROM user AS u WHERE u.id = 1", ClauseDeleteFrom, []core.TableCoordinator{{Table: "user", Alias: "u"}}},
		{"drop table", "DROP TABLE s.t", ClauseDropTable, []core.TableCoordinator{{Schema: "s", Table: "t"}}},
		{"truncate", "TRUNCATE TABLE t", ClauseTruncateTable, []core.TableCoordinator{{Table: "t"}}},
		{"too many segments", "DROP TABLE a.b.c", ClauseDropTable, nil},
		{"empty", "INSERT INTO", ClauseInsertInto, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAST(t, tt.sql)
			assert.Equal(t, tt.want, a.TablesInClause(firstClause(t, a, tt.clause)))
		})
	}
}

func TestTablesInCreateIndex(t *testing.T) {
	a := newAST(t, "CREATE INDEX idx_name ON s.user (id, name)")
	assert.Equal(t, []core.TableCoordinator{{Schema: "s", Table: "user"}},
		a.TablesInClause(firstClause(t, a, ClauseCreateIndex)))

	a = newAST(t, "CREATE INDEX idx_name")
	assert.Nil(t, a.TablesInClause(firstClause(t, a, ClauseCreateIndex)))
}

func TestCursorPositionPredicates(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		fromTable bool
		single    bool
	}{
		{"first in from", "SELECT * FROM __cursor__", true, true},
		{"after comma", "SELECT * FROM a, __cursor__", true, true},
		{"after join", "SELECT * FROM a LEFT JOIN __cursor__", true, false},
		{"alias slot", "SELECT * FROM a __cursor__", false, false},
		{"qualified", "SELECT * FROM s.__cursor__", true, true},
		{"insert table", "INSERT INTO __cursor__", false, true},
		{"insert column list", "INSERT INTO t (a, __cursor__)", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAST(t, tt.sql)
			cur := a.FindCursorNode()
			require.NotEqual(t, NoNode, cur)
			assert.Equal(t, tt.fromTable, a.IsTableNameInFromClause(cur))
			assert.Equal(t, tt.single, a.IsTableNameInSingleTableClause(cur))
		})
	}
}

func TestIsDirectChildOfClause(t *testing.T) {
	a := newAST(t, "INSERT INTO user (id, na__cursor__)")
	cur := a.FindCursorNode()
	assert.False(t, a.IsDirectChildOfClause(cur, ClauseInsertInto))

	a = newAST(t, "INSERT INTO us__cursor__ (id, name)")
	cur = a.FindCursorNode()
	assert.True(t, a.IsDirectChildOfClause(cur, ClauseInsertInto))
	assert.Equal(t, parser.KindFunctionCall, a.Node(a.ChainRoot(cur)).Kind)
}
