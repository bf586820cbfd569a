package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// FindTableColumns returns the columns of one table or view.
func (s *Store) FindTableColumns(ctx context.Context, dbType string, id int64, table core.TableCoordinator) ([]*Object, error) {
	cfg, err := s.DatabaseConfig(ctx, dbType)
	if err != nil {
		return nil, err
	}
	tbl, err := s.findTable(ctx, cfg, id, table)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, tbl.obj, "columns", s.childLoader(cfg, id, tbl.obj, tbl.catalog, tbl.schema))
}

func (s *Store) findTable(ctx context.Context, cfg core.DatabaseConfig, id int64, table core.TableCoordinator) (position, error) {
	parent, err := s.tableParent(ctx, cfg, id, table.Catalog, table.Schema, true)
	if err != nil {
		return position{}, err
	}
	tables, err := s.load(ctx, parent.obj, "tables", s.childLoader(cfg, id, parent.obj, parent.catalog, parent.schema))
	if err != nil {
		return position{}, err
	}
	obj := findChild(tables, table.Table, core.KindTable, core.KindView)
	if obj == nil {
		return position{}, fmt.Errorf("table %q: %w", table.Table, ErrNotFound)
	}
	return position{obj: obj, catalog: parent.catalog, schema: parent.schema}, nil
}

type pendingTable struct {
	indexes []int
	slot    *loadSlot
	coord   core.TableCoordinator // canonical names
}

func foldKey(catalog, schema, table string) string {
	return strings.ToLower(catalog) + "\x00" + strings.ToLower(schema) + "\x00" + strings.ToLower(table)
}

// FindTableColumnsList returns the columns of several tables, which may live
// in different catalogs and schemas. Tables already loaded are served from
// the cache; all tables still in Init are fetched with a single batched
// transport call.
//
// Tables that do not exist are left out of the result. Tables whose parent
// level or own columns are being loaded by someone else are skipped too, and
// the partial result is returned together with an error wrapping ErrLoading.
// Results carry the requested coordinates in request order.
func (s *Store) FindTableColumnsList(ctx context.Context, dbType string, id int64, tables []core.TableCoordinator) ([]core.TableColumns, error) {
	cfg, err := s.DatabaseConfig(ctx, dbType)
	if err != nil {
		return nil, err
	}

	results := make([]*core.TableColumns, len(tables))
	var pending []pendingTable
	pendingByObj := make(map[*Object]int)
	loading := false

	for i, coord := range tables {
		tbl, err := s.findTable(ctx, cfg, id, coord)
		switch {
		case errors.Is(err, ErrLoading):
			loading = true
			continue
		case errors.Is(err, ErrNotFound):
			continue
		case err != nil:
			s.abortPending(pending)
			return nil, err
		}

		if j, ok := pendingByObj[tbl.obj]; ok {
			pending[j].indexes = append(pending[j].indexes, i)
			continue
		}
		switch tbl.obj.State() {
		case Success:
			results[i] = tableColumns(coord, tbl.obj.Children())
			continue
		case Loading:
			loading = true
			continue
		}
		slot, ok := tbl.obj.beginLoad()
		if !ok {
			if tbl.obj.State() == Success {
				results[i] = tableColumns(coord, tbl.obj.Children())
			} else {
				loading = true
			}
			continue
		}
		pendingByObj[tbl.obj] = len(pending)
		pending = append(pending, pendingTable{
			indexes: []int{i},
			slot:    slot,
			coord:   core.TableCoordinator{Catalog: tbl.catalog, Schema: tbl.schema, Table: tbl.obj.Name},
		})
	}

	if len(pending) > 0 {
		coords := make([]core.TableCoordinator, len(pending))
		for i, p := range pending {
			coords[i] = p.coord
		}
		fetched, err := s.transport.ListTablesColumns(ctx, cfg.Type, id, coords)
		if err != nil {
			s.abortPending(pending)
			s.logger.Warn("batched column fetch failed", "type", cfg.Type, "id", id, "tables", len(coords), "error", err)
			return nil, fmt.Errorf("failed to load columns of %d tables: %w", len(coords), err)
		}

		byKey := make(map[string][]core.Column, len(fetched))
		for _, tc := range fetched {
			byKey[foldKey(tc.Catalog, tc.Schema, tc.Table)] = tc.Columns
		}
		for _, p := range pending {
			children := columnObjects(byKey[foldKey(p.coord.Catalog, p.coord.Schema, p.coord.Table)])
			p.slot.finish(children)
			for _, i := range p.indexes {
				results[i] = tableColumns(tables[i], children)
			}
		}
		s.logger.Debug("batched columns fetched", "type", cfg.Type, "id", id, "tables", len(coords))
	}

	out := make([]core.TableColumns, 0, len(tables))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if loading {
		return out, fmt.Errorf("columns of some tables: %w", ErrLoading)
	}
	return out, nil
}

func (s *Store) abortPending(pending []pendingTable) {
	for _, p := range pending {
		p.slot.abort()
	}
}

func tableColumns(coord core.TableCoordinator, children []*Object) *core.TableColumns {
	return &core.TableColumns{
		Catalog: coord.Catalog,
		Schema:  coord.Schema,
		Table:   coord.Table,
		Columns: Columns(children),
	}
}
