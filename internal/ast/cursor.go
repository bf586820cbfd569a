package ast

import (
	"strings"

	"github.com/leapstack-labs/sqlcomplete/pkg/parser"
)

// FindCursorNode returns the leaf whose source text contains the Cursor
// sentinel, or NoNode.
func (a *AST) FindCursorNode() NodeID {
	found := NoNode
	a.Walk(a.Root(), func(id NodeID) bool {
		n := a.Node(id)
		if n.Kind.IsLeaf() && strings.Contains(n.Raw, Cursor) {
			found = id
			return false
		}
		return true
	})
	return found
}

// ChainRoot returns the outermost node of the dotted reference id belongs
// to, so a.b.c is handled as one unit. A function name lifts to the call.
func (a *AST) ChainRoot(id NodeID) NodeID {
	for {
		n := a.Node(id)
		p := a.Node(n.Parent)
		switch {
		case p.Kind == parser.KindPropertyAccess:
			id = p.ID
		case p.Kind == parser.KindFunctionCall && p.NameKw == id:
			id = p.ID
		default:
			return id
		}
	}
}

// NearestClause returns the closest clause above id, or NoNode.
func (a *AST) NearestClause(id NodeID) NodeID {
	for p := a.Parent(id); p != NoNode; p = a.Parent(p) {
		if a.Node(p).Kind == parser.KindClause {
			return p
		}
	}
	return NoNode
}

// Tokens returns the name segments of the reference at id with quotes
// removed. A function call yields the segments of its name and a literal
// yields none.
//
// With beforeCursor set, only segments up to the one holding the Cursor
// sentinel are returned and that segment is cut at the sentinel, so
// schema.tab|le.column gives [schema tab]. Without it, the sentinel is
// dropped from every segment.
func (a *AST) Tokens(id NodeID, beforeCursor bool) []string {
	id = a.ChainRoot(id)
	n := a.Node(id)

	switch n.Kind {
	case parser.KindLiteral:
		return nil
	case parser.KindFunctionCall:
		n = a.Node(n.NameKw)
	}

	var segs []string
	for n.Kind == parser.KindPropertyAccess {
		segs = append(segs, a.segment(n.Property))
		n = a.Node(n.Object)
	}
	segs = append(segs, a.segment(n.ID))

	// collected innermost-last; reverse into source order
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}

	if beforeCursor {
		for i, s := range segs {
			if k := strings.Index(s, Cursor); k >= 0 {
				segs[i] = s[:k]
				return segs[:i+1]
			}
		}
		return nil
	}

	for i, s := range segs {
		segs[i] = strings.ReplaceAll(s, Cursor, "")
	}
	return segs
}

func (a *AST) segment(id NodeID) string {
	n := a.Node(id)
	s := n.Raw
	if s == "" {
		s = n.Text
	}
	return a.dialect.Unquote(s)
}

// Name returns the unquoted text of a single node with the sentinel removed.
func (a *AST) Name(id NodeID) string {
	return strings.ReplaceAll(a.segment(id), Cursor, "")
}
