package metadata

import (
	"strings"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// RemoveInstanceData drops the whole cached tree of one instance. A fetch
// still in flight for it completes into the detached tree and is discarded.
func (s *Store) RemoveInstanceData(dbType string, id int64) {
	s.mu.Lock()
	delete(s.roots, rootKey(dbType, id))
	s.mu.Unlock()
	s.logger.Debug("instance data removed", "type", dbType, "id", id)
}

// RemoveInstances drops the cached instance list of a database type.
func (s *Store) RemoveInstances(dbType string) {
	key := typeKey(dbType)
	s.mu.Lock()
	delete(s.instances, key)
	s.mu.Unlock()
	s.group.Forget("instances-" + key)
	s.logger.Debug("instances removed", "type", dbType)
}

// ClearChildren resets the node at path below an instance root to Init, so
// its children are fetched again on next use. An empty path clears the
// root. It reports whether the node was found in the cache.
func (s *Store) ClearChildren(dbType string, id int64, path []core.PathElement) bool {
	node := s.peekRoot(dbType, id)
	if node == nil {
		return false
	}
	for _, el := range path {
		var next *Object
		for _, c := range node.Children() {
			if sameKind(c.Kind, el.Kind) && c.Name == el.Name {
				next = c
				break
			}
		}
		if next == nil {
			next = findChild(node.Children(), el.Name)
			if next == nil || (el.Kind != "" && !sameKind(next.Kind, el.Kind)) {
				return false
			}
		}
		node = next
	}
	node.reset()
	s.logger.Debug("metadata cleared", "type", dbType, "id", id, "path", path)
	return true
}

func sameKind(a, b core.ObjectKind) bool {
	return b == "" || strings.EqualFold(string(a), string(b))
}
