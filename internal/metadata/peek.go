package metadata

import (
	"context"
	"errors"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// The Peek methods read the cache only. They never call the transport and
// never change a load state, so they are safe to use from a completion pass
// that must not wait. A level that does not exist yet reports Init; a level
// being fetched reports Loading.

// PeekCatalogs returns the cached catalogs of an instance.
func (s *Store) PeekCatalogs(dbType string, id int64) ([]*Object, LoadState) {
	cfg, ok := s.PeekDatabaseConfig(dbType)
	if !ok || !cfg.UseCatalog {
		return nil, Init
	}
	r := s.peekRoot(cfg.Type, id)
	if r == nil {
		return nil, Init
	}
	return r.Children(), r.State()
}

// PeekSchemas returns the cached schemas of an instance.
func (s *Store) PeekSchemas(dbType string, id int64, catalog string) ([]*Object, LoadState) {
	cfg, ok := s.PeekDatabaseConfig(dbType)
	if !ok || !cfg.UseSchema {
		return nil, Init
	}
	var path []string
	if cfg.UseCatalog {
		path = []string{catalog}
	}
	return s.peek(cfg, id, path)
}

// PeekTablesAndViews returns the cached tables and views of a catalog and schema.
func (s *Store) PeekTablesAndViews(dbType string, id int64, catalog, schema string) ([]*Object, LoadState) {
	cfg, ok := s.PeekDatabaseConfig(dbType)
	if !ok {
		return nil, Init
	}
	path, err := cfg.ParentPath(catalog, schema)
	if err != nil {
		return nil, Init
	}
	return s.peek(cfg, id, path)
}

// PeekTableColumns returns the cached columns of a table. A table missing
// from a loaded table list reports Success with no columns.
func (s *Store) PeekTableColumns(dbType string, id int64, table core.TableCoordinator) ([]*Object, LoadState) {
	tables, state := s.PeekTablesAndViews(dbType, id, table.Catalog, table.Schema)
	if state != Success {
		return nil, state
	}
	obj := findChild(tables, table.Table, core.KindTable, core.KindView)
	if obj == nil {
		return nil, Success
	}
	return obj.Children(), obj.State()
}

func (s *Store) peek(cfg core.DatabaseConfig, id int64, path []string) ([]*Object, LoadState) {
	pos, err := s.descend(context.Background(), cfg, id, path, false)
	switch {
	case err == nil:
		return pos.obj.Children(), pos.obj.State()
	case errors.Is(err, ErrLoading):
		return nil, Loading
	case errors.Is(err, ErrNotFound):
		return nil, Success
	default:
		return nil, Init
	}
}
