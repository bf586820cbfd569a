// Package ast wraps the loose clause tree with an id-indexed node arena.
//
// Every node gets an id, a parent id and, when it sits in a Children list,
// its index there. That is enough for the advisor to look at siblings and
// enclosing clauses. Parent links are never followed by generic traversal
// (see Fields), so walking the arena cannot loop.
//
// The text handed to New carries the Cursor sentinel at the caret; the node
// whose source text contains it is the cursor node.
package ast

import (
	"github.com/leapstack-labs/sqlcomplete/pkg/dialect"
	"github.com/leapstack-labs/sqlcomplete/pkg/parser"
	"github.com/leapstack-labs/sqlcomplete/pkg/token"
)

// Cursor is the sentinel inserted at the caret before parsing.
const Cursor = "__cursor__"

// NodeID indexes a node in the arena.
type NodeID int

// NoNode is the id of a missing node.
const NoNode NodeID = -1

const kindNone parser.Kind = -1

// Node is one arena node. Link fields hold NoNode when unused.
type Node struct {
	ID     NodeID
	Kind   parser.Kind
	Parent NodeID
	Index  int // position in the parent's Children, -1 for link slots
	Text   string
	Raw    string
	Token  token.TokenType
	Join   bool

	Children []NodeID
	NameKw   NodeID
	Object   NodeID
	Property NodeID
	Paren    NodeID
}

var missing = Node{
	ID: NoNode, Kind: kindNone, Parent: NoNode, Index: -1,
	NameKw: NoNode, Object: NoNode, Property: NoNode, Paren: NoNode,
}

// AST is a decorated parse of one SQL text.
type AST struct {
	sql     string
	dialect *dialect.Dialect
	nodes   []Node
	err     error
}

// New parses sql and decorates the result. A parse failure does not return
// an error; the AST is marked invalid and every query on it comes back empty.
func New(sql string, d *dialect.Dialect) *AST {
	if d == nil {
		d = dialect.GetOrDefault(dialect.DefaultName)
	}
	a := &AST{sql: sql, dialect: d}

	tree, err := parser.Parse(sql, d)
	if err != nil {
		a.err = err
		return a
	}

	root := a.add(&parser.Node{Kind: parser.KindProgram}, NoNode, -1)
	for i, stmt := range tree.Statements {
		id := a.add(stmt, root, i)
		a.nodes[root].Children = append(a.nodes[root].Children, id)
	}
	return a
}

// add appends n and everything below it, returning n's id.
func (a *AST) add(n *parser.Node, parent NodeID, index int) NodeID {
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, Node{
		ID:       id,
		Kind:     n.Kind,
		Parent:   parent,
		Index:    index,
		Text:     n.Text,
		Raw:      n.Raw,
		Token:    n.Token,
		Join:     n.Join,
		NameKw:   NoNode,
		Object:   NoNode,
		Property: NoNode,
		Paren:    NoNode,
	})

	if n.Kind == parser.KindProgram {
		return id
	}

	for i, c := range n.Children {
		cid := a.add(c, id, i)
		a.nodes[id].Children = append(a.nodes[id].Children, cid)
	}
	if n.NameKw != nil {
		cid := a.add(n.NameKw, id, -1)
		a.nodes[id].NameKw = cid
	}
	if n.Object != nil {
		cid := a.add(n.Object, id, -1)
		a.nodes[id].Object = cid
	}
	if n.Property != nil {
		cid := a.add(n.Property, id, -1)
		a.nodes[id].Property = cid
	}
	if n.Paren != nil {
		cid := a.add(n.Paren, id, -1)
		a.nodes[id].Paren = cid
	}
	return id
}

// Valid reports whether the text parsed.
func (a *AST) Valid() bool {
	return a.err == nil
}

// Err returns the parse error of an invalid AST.
func (a *AST) Err() error {
	return a.err
}

// Dialect returns the dialect the text was parsed with.
func (a *AST) Dialect() *dialect.Dialect {
	return a.dialect
}

// Root returns the synthetic root above all statements, or NoNode if invalid.
func (a *AST) Root() NodeID {
	if len(a.nodes) == 0 {
		return NoNode
	}
	return 0
}

// Len returns the number of nodes in the arena.
func (a *AST) Len() int {
	return len(a.nodes)
}

// Node returns the node with the given id. Unknown ids yield a node of no
// kind whose links are all NoNode. The result must not be modified.
func (a *AST) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(a.nodes) {
		m := missing
		return &m
	}
	return &a.nodes[id]
}

// Parent returns the parent id of id.
func (a *AST) Parent(id NodeID) NodeID {
	return a.Node(id).Parent
}

// Children returns the child ids of id.
func (a *AST) Children(id NodeID) []NodeID {
	return a.Node(id).Children
}

// Fields returns every node id referenced by id: its children followed by
// its link slots. The parent is never included.
func (a *AST) Fields(id NodeID) []NodeID {
	n := a.Node(id)
	out := make([]NodeID, 0, len(n.Children)+4)
	out = append(out, n.Children...)
	for _, link := range []NodeID{n.NameKw, n.Object, n.Property, n.Paren} {
		if link != NoNode {
			out = append(out, link)
		}
	}
	return out
}

// Walk visits id and its descendants depth-first. Returning false from fn
// stops the walk.
func (a *AST) Walk(id NodeID, fn func(NodeID) bool) bool {
	if id == NoNode {
		return true
	}
	if !fn(id) {
		return false
	}
	for _, f := range a.Fields(id) {
		if !a.Walk(f, fn) {
			return false
		}
	}
	return true
}

// PrevSibling returns the node before id in its parent's Children.
func (a *AST) PrevSibling(id NodeID) NodeID {
	n := a.Node(id)
	if n.Index <= 0 {
		return NoNode
	}
	return a.Node(n.Parent).Children[n.Index-1]
}
