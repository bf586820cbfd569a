package ast

import (
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
	"github.com/leapstack-labs/sqlcomplete/pkg/parser"
)

// TablesInClause returns the tables a clause references, in source order.
// Malformed references (three or more dotted segments) are dropped without
// affecting their siblings.
func (a *AST) TablesInClause(clause NodeID) []core.TableCoordinator {
	switch a.ShapeOf(clause) {
	case ShapeSingleTable:
		return a.tablesInSingleTableClause(clause)
	case ShapeCreateIndex:
		return a.tablesInCreateIndex(clause)
	case ShapeFrom:
		return a.tablesInFromClause(clause)
	case ShapeCreateView, ShapeOther:
		return nil
	}
	return nil
}

// tablesInSingleTableClause handles INSERT INTO t(...), UPDATE t u, DELETE
// FROM t AS x and friends. Only UPDATE and DELETE FROM take an alias.
func (a *AST) tablesInSingleTableClause(clause NodeID) []core.TableCoordinator {
	children := a.Children(clause)
	if len(children) == 0 {
		return nil
	}

	end := 1
	if a.IsClause(clause, ClauseUpdate, ClauseDeleteFrom) {
		end = len(children)
	}
	if coord, ok := a.coordinatorInRange(children, 0, end); ok {
		return []core.TableCoordinator{coord}
	}
	return nil
}

// tablesInCreateIndex returns the table right after ON.
func (a *AST) tablesInCreateIndex(clause NodeID) []core.TableCoordinator {
	children := a.Children(clause)
	for i, c := range children {
		if a.IsOn(c) && i+1 < len(children) {
			if coord, ok := buildCoordinator(a.Tokens(children[i+1], false)); ok {
				return []core.TableCoordinator{coord}
			}
			return nil
		}
	}
	return nil
}

// tablesInFromClause splits FROM into table windows.
//
//	FROM user, person p LEFT JOIN student AS s ON s.id = user.id
//	     ----  --------           ------------
//
// Before the first JOIN, a comma or JOIN closes the current window. After
// it, ON (or USING) closes the window opened by the preceding JOIN, and a
// trailing JOIN window without ON is captured at the end. Joins nested in
// parentheses are not unpacked.
func (a *AST) tablesInFromClause(clause NodeID) []core.TableCoordinator {
	children := a.Children(clause)
	n := len(children)
	var coords []core.TableCoordinator
	push := func(start, end int) {
		if coord, ok := a.coordinatorInRange(children, start, end); ok {
			coords = append(coords, coord)
		}
	}

	start, end := 0, 1
	for ; end < n; end++ {
		c := children[end]
		if a.IsComma(c) || a.IsJoin(c) {
			push(start, end)
			start = end + 1
		}
		if a.IsJoin(c) {
			break
		}
	}

	joinMatched := false
	for ; end < n; end++ {
		c := children[end]
		if a.IsJoin(c) {
			start = end + 1
			joinMatched = false
		}
		if a.IsOn(c) || a.IsUsing(c) {
			if !joinMatched {
				push(start, end)
			}
			joinMatched = true
		}
	}

	if !joinMatched {
		push(start, end)
	}
	return coords
}

// coordinatorInRange builds a coordinator from children[start:end]: one name
// node optionally followed by a bare alias or AS alias.
func (a *AST) coordinatorInRange(children []NodeID, start, end int) (core.TableCoordinator, bool) {
	if start < 0 || start >= len(children) {
		return core.TableCoordinator{}, false
	}
	coord, ok := buildCoordinator(a.Tokens(children[start], false))
	if !ok {
		return coord, false
	}

	switch {
	case end == start+1:
	case end == start+2 && start+1 < len(children):
		coord.Alias = a.alias(children[start+1])
	case end >= start+3 && start+2 < len(children) && a.IsAs(children[start+1]):
		coord.Alias = a.alias(children[start+2])
	}
	return coord, true
}

func (a *AST) alias(id NodeID) string {
	if a.Node(id).Kind != parser.KindIdentifier {
		return ""
	}
	return a.Name(id)
}

// buildCoordinator maps [table] or [schema table] to a coordinator. Any
// other segment count, or an empty table name, is rejected.
func buildCoordinator(tokens []string) (core.TableCoordinator, bool) {
	var c core.TableCoordinator
	switch len(tokens) {
	case 1:
		c.Table = tokens[0]
	case 2:
		c.Schema, c.Table = tokens[0], tokens[1]
	default:
		return c, false
	}
	return c, c.Table != ""
}
