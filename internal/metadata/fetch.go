package metadata

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

type loader func(ctx context.Context) ([]*Object, error)

// load returns the children of o, fetching them if o is Init.
//
// Success returns the cached children and Loading fails fast with
// ErrLoading. Only the caller that wins the Init -> Loading swap runs fetch;
// a failed fetch puts the node back to Init.
func (s *Store) load(ctx context.Context, o *Object, what string, fetch loader) ([]*Object, error) {
	slot := o.slot.Load()
	switch LoadState(slot.state.Load()) {
	case Success:
		return slot.children, nil
	case Loading:
		return nil, fmt.Errorf("%s of %s: %w", what, o.Name, ErrLoading)
	}

	slot, ok := o.beginLoad()
	if !ok {
		if o.State() == Success {
			return o.Children(), nil
		}
		return nil, fmt.Errorf("%s of %s: %w", what, o.Name, ErrLoading)
	}

	children, err := fetch(ctx)
	if err != nil {
		slot.abort()
		s.logger.Warn("metadata fetch failed", "what", what, "parent", o.Name, "error", err)
		return nil, fmt.Errorf("failed to load %s of %s: %w", what, o.Name, err)
	}
	slot.finish(children)
	s.logger.Debug("metadata fetched", "what", what, "parent", o.Name, "count", len(children))
	return children, nil
}

// position is a node of the tree together with the canonical catalog and
// schema names on the way to it.
type position struct {
	obj     *Object
	catalog string
	schema  string
}

// descend walks from the instance root along names, one name per parent
// level of cfg. With fetch set, missing levels are loaded on the way;
// otherwise the walk stops with errNotLoaded or ErrLoading at the first
// level that is not Success.
func (s *Store) descend(ctx context.Context, cfg core.DatabaseConfig, id int64, names []string, fetch bool) (position, error) {
	var r *Object
	if fetch {
		r = s.root(cfg.Type, id)
	} else if r = s.peekRoot(cfg.Type, id); r == nil {
		return position{}, errNotLoaded
	}

	pos := position{obj: r}
	levels := cfg.ParentLevels()
	for i, name := range names {
		if i >= len(levels) {
			return position{}, fmt.Errorf("too many path names %v for %s: %w", names, cfg.Type, ErrInvalidContext)
		}
		kind := levels[i]

		var children []*Object
		if fetch {
			var err error
			children, err = s.load(ctx, pos.obj, levelName(kind), s.childLoader(cfg, id, pos.obj, pos.catalog, pos.schema))
			if err != nil {
				return position{}, err
			}
		} else {
			switch pos.obj.State() {
			case Loading:
				return position{}, ErrLoading
			case Init:
				return position{}, errNotLoaded
			}
			children = pos.obj.Children()
		}

		child := findChild(children, name, kind)
		if child == nil {
			return position{}, fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
		}
		pos.obj = child
		switch kind {
		case core.KindCatalog:
			pos.catalog = child.Name
		case core.KindSchema:
			pos.schema = child.Name
		}
	}
	return pos, nil
}

// tableParent resolves the node whose children are the tables and views of
// catalog and schema.
func (s *Store) tableParent(ctx context.Context, cfg core.DatabaseConfig, id int64, catalog, schema string, fetch bool) (position, error) {
	path, err := cfg.ParentPath(catalog, schema)
	if err != nil {
		return position{}, fmt.Errorf("%w: %w", ErrInvalidContext, err)
	}
	return s.descend(ctx, cfg, id, path, fetch)
}

func levelName(kind core.ObjectKind) string {
	switch kind {
	case core.KindCatalog:
		return "catalogs"
	case core.KindSchema:
		return "schemas"
	default:
		return "tables"
	}
}

// childLoader returns the transport call that fills the children of o.
func (s *Store) childLoader(cfg core.DatabaseConfig, id int64, o *Object, catalog, schema string) loader {
	switch o.Kind {
	case core.KindRoot:
		switch {
		case cfg.UseCatalog:
			return s.catalogLoader(cfg.Type, id)
		case cfg.UseSchema:
			return s.schemaLoader(cfg.Type, id, "")
		default:
			return s.tableLoader(cfg.Type, id, "", "")
		}
	case core.KindCatalog:
		if cfg.UseSchema {
			return s.schemaLoader(cfg.Type, id, o.Name)
		}
		return s.tableLoader(cfg.Type, id, o.Name, "")
	case core.KindSchema:
		return s.tableLoader(cfg.Type, id, catalog, o.Name)
	case core.KindTable, core.KindView:
		coord := core.TableCoordinator{Catalog: catalog, Schema: schema, Table: o.Name}
		return s.columnLoader(cfg.Type, id, coord)
	}
	return func(context.Context) ([]*Object, error) { return nil, nil }
}

func (s *Store) catalogLoader(dbType string, id int64) loader {
	return func(ctx context.Context) ([]*Object, error) {
		names, err := s.transport.ListCatalogNames(ctx, dbType, id)
		if err != nil {
			return nil, err
		}
		return namedObjects(core.KindCatalog, names), nil
	}
}

func (s *Store) schemaLoader(dbType string, id int64, catalog string) loader {
	return func(ctx context.Context) ([]*Object, error) {
		names, err := s.transport.ListSchemaNames(ctx, dbType, id, catalog)
		if err != nil {
			return nil, err
		}
		return namedObjects(core.KindSchema, names), nil
	}
}

func (s *Store) tableLoader(dbType string, id int64, catalog, schema string) loader {
	return func(ctx context.Context) ([]*Object, error) {
		list, err := s.transport.ListTableAndViewNames(ctx, dbType, id, catalog, schema)
		if err != nil {
			return nil, err
		}
		out := make([]*Object, 0, len(list))
		for _, nk := range list {
			kind := nk.Kind
			if kind != core.KindView {
				kind = core.KindTable
			}
			out = append(out, newObject(kind, nk.Name, ""))
		}
		return out, nil
	}
}

func (s *Store) columnLoader(dbType string, id int64, coord core.TableCoordinator) loader {
	return func(ctx context.Context) ([]*Object, error) {
		cols, err := s.transport.ListTableColumns(ctx, dbType, id, coord)
		if err != nil {
			return nil, err
		}
		return columnObjects(cols), nil
	}
}

func namedObjects(kind core.ObjectKind, names []string) []*Object {
	out := make([]*Object, 0, len(names))
	for _, n := range names {
		out = append(out, newObject(kind, n, ""))
	}
	return out
}

func columnObjects(cols []core.Column) []*Object {
	out := make([]*Object, 0, len(cols))
	for _, c := range cols {
		out = append(out, newObject(core.KindColumn, c.Name, c.TypeName))
	}
	return out
}
