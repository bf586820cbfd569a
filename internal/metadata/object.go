package metadata

import (
	"strings"
	"sync/atomic"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// LoadState is the load status of an object's children.
type LoadState int32

// Load states. A node goes Init -> Loading -> Success, or back to Init when
// its fetch fails.
const (
	Init LoadState = iota
	Loading
	Success
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "LOADING"
	case Success:
		return "SUCCESS"
	default:
		return "INIT"
	}
}

// Object is a node of the metadata tree: a root, catalog, schema, table,
// view or column. Its children are loaded lazily.
type Object struct {
	Kind     core.ObjectKind
	Name     string
	TypeName string // columns only

	slot atomic.Pointer[loadSlot]
}

// loadSlot holds one generation of an object's children. Invalidation
// replaces the whole slot, so a fetch that started before it writes into a
// slot nobody reads any more.
type loadSlot struct {
	state    atomic.Int32
	children []*Object // written before state becomes Success
}

func newObject(kind core.ObjectKind, name, typeName string) *Object {
	o := &Object{Kind: kind, Name: name, TypeName: typeName}
	o.slot.Store(&loadSlot{})
	return o
}

// State returns the load state of the object's children.
func (o *Object) State() LoadState {
	return LoadState(o.slot.Load().state.Load())
}

// Children returns the loaded children, or nil unless State is Success.
func (o *Object) Children() []*Object {
	slot := o.slot.Load()
	if LoadState(slot.state.Load()) != Success {
		return nil
	}
	return slot.children
}

// reset drops the children and returns the object to Init.
func (o *Object) reset() {
	o.slot.Store(&loadSlot{})
}

// beginLoad moves the current slot from Init to Loading. It returns the slot
// on success; only the holder of that slot may finish or abort the load.
func (o *Object) beginLoad() (*loadSlot, bool) {
	slot := o.slot.Load()
	if !slot.state.CompareAndSwap(int32(Init), int32(Loading)) {
		return nil, false
	}
	return slot, true
}

func (s *loadSlot) finish(children []*Object) {
	s.children = children
	s.state.Store(int32(Success))
}

func (s *loadSlot) abort() {
	s.state.Store(int32(Init))
}

// findChild returns the child named name, preferring an exact match over a
// case-insensitive one. With kinds set, only children of those kinds match.
func findChild(children []*Object, name string, kinds ...core.ObjectKind) *Object {
	var folded *Object
	for _, c := range children {
		if len(kinds) > 0 && !hasKind(c, kinds) {
			continue
		}
		if c.Name == name {
			return c
		}
		if folded == nil && strings.EqualFold(c.Name, name) {
			folded = c
		}
	}
	return folded
}

func hasKind(o *Object, kinds []core.ObjectKind) bool {
	for _, k := range kinds {
		if o.Kind == k {
			return true
		}
	}
	return false
}

func filterKind(objects []*Object, kinds ...core.ObjectKind) []*Object {
	out := make([]*Object, 0, len(objects))
	for _, o := range objects {
		if hasKind(o, kinds) {
			out = append(out, o)
		}
	}
	return out
}

// Columns converts column objects to their wire form.
func Columns(objects []*Object) []core.Column {
	out := make([]core.Column, 0, len(objects))
	for _, o := range objects {
		out = append(out, core.Column{Name: o.Name, TypeName: o.TypeName})
	}
	return out
}
