package completion

import (
	"context"
	"strings"

	"github.com/leapstack-labs/sqlcomplete/internal/advisor"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// correct maps a table reference from the advisor onto the levels of the
// connection's database type. The advisor reports a single qualifier as the
// schema; depending on the type it names a schema or a catalog. Missing
// levels default to the connection context.
func correct(s *session, c core.TableCoordinator) core.TableCoordinator {
	qualifier := c.Schema
	out := core.TableCoordinator{Table: c.Table, Alias: c.Alias}
	switch {
	case s.cfg.UseCatalog && s.cfg.UseSchema:
		out.Catalog = s.ctx.Catalog
		out.Schema = orDefault(qualifier, s.ctx.Schema)
	case s.cfg.UseCatalog:
		out.Catalog = orDefault(qualifier, s.ctx.Catalog)
	case s.cfg.UseSchema:
		out.Schema = orDefault(qualifier, s.ctx.Schema)
	}
	return out
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func parentLabel(catalog, schema string) string {
	var parts []string
	for _, p := range []string{catalog, schema} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// tables suggests tables and views for the TABLE advice, plus the grouping
// names (schemas or catalogs) a qualified name could start with.
func (p *Provider) tables(s *session, advice advisor.Advice, m *matcher) []Suggestion {
	quals := advice.Qualifiers()
	var parent core.TableCoordinator
	switch len(quals) {
	case 0:
		parent = correct(s, core.TableCoordinator{})
	case 1:
		parent = correct(s, core.TableCoordinator{Schema: quals[0]})
	case 2:
		if !s.cfg.UseCatalog || !s.cfg.UseSchema {
			return nil
		}
		parent = core.TableCoordinator{Catalog: quals[0], Schema: quals[1]}
	default:
		return nil
	}

	out := p.tablesOf(s, parent.Catalog, parent.Schema, m)
	switch {
	case len(quals) == 0:
		out = append(out, p.groupings(s, s.ctx.Catalog, m)...)
	case len(quals) == 1 && s.cfg.UseCatalog && s.cfg.UseSchema:
		// catalog.schema is being typed
		out = append(out, p.schemasOf(s, quals[0], m, false)...)
	}
	return out
}

func (p *Provider) tablesOf(s *session, catalog, schema string, m *matcher) []Suggestion {
	dbType, id := s.cfg.Type, s.ctx.InstanceID
	objects, state := p.store.PeekTablesAndViews(dbType, id, catalog, schema)
	if state == metadata.Init {
		p.fetch("tables", func(ctx context.Context) error {
			_, err := p.store.FindTablesAndViews(ctx, dbType, id, catalog, schema)
			return err
		})
	}
	if state != metadata.Success {
		return nil
	}
	return m.objects(objects, parentLabel(catalog, schema))
}

// groupings suggests the namespace one level above tables: schemas when the
// type has them, catalogs for catalog-only types.
func (p *Provider) groupings(s *session, catalog string, m *matcher) []Suggestion {
	switch {
	case s.cfg.UseSchema:
		return p.schemasOf(s, catalog, m, true)
	case s.cfg.UseCatalog:
		dbType, id := s.cfg.Type, s.ctx.InstanceID
		objects, state := p.store.PeekCatalogs(dbType, id)
		if state == metadata.Init {
			p.fetch("catalogs", func(ctx context.Context) error {
				_, err := p.store.FindCatalogs(ctx, dbType, id)
				return err
			})
		}
		if state != metadata.Success {
			return nil
		}
		return m.objects(objects, "")
	}
	return nil
}

// schemasOf suggests the schemas of a catalog. With load unset a missing
// list is not fetched, as the catalog name is only a guess.
func (p *Provider) schemasOf(s *session, catalog string, m *matcher, load bool) []Suggestion {
	dbType, id := s.cfg.Type, s.ctx.InstanceID
	objects, state := p.store.PeekSchemas(dbType, id, catalog)
	if state == metadata.Init && load {
		p.fetch("schemas", func(ctx context.Context) error {
			_, err := p.store.FindSchemas(ctx, dbType, id, catalog)
			return err
		})
	}
	if state != metadata.Success {
		return nil
	}
	return m.objects(objects, catalog)
}

// columns suggests the columns of the candidate tables. A qualifier such as
// alias. or table. narrows the candidates to that table. Columns of tables
// already loaded are returned even while other tables are still loading.
func (p *Provider) columns(s *session, advice advisor.Advice, m *matcher) []Suggestion {
	coords := make([]core.TableCoordinator, 0, len(advice.CandidateTables))
	for _, c := range advice.CandidateTables {
		coords = append(coords, correct(s, c))
	}

	if quals := advice.Qualifiers(); len(quals) > 0 {
		coords = p.qualified(s, coords, quals, m)
	}
	if len(coords) == 0 {
		return nil
	}

	dbType, id := s.cfg.Type, s.ctx.InstanceID
	var out []Suggestion
	seen := make(map[string]bool)
	var missing []core.TableCoordinator
	for _, c := range coords {
		cols, state := p.store.PeekTableColumns(dbType, id, c)
		switch state {
		case metadata.Init:
			missing = append(missing, c)
		case metadata.Success:
			for _, sug := range m.objects(cols, "") {
				key := m.fold.String(sug.Label)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, sug)
			}
		}
	}

	if len(missing) > 0 {
		p.fetch("columns", func(ctx context.Context) error {
			_, err := p.store.FindTableColumnsList(ctx, dbType, id, missing)
			return err
		})
	}
	return out
}

// qualified picks the candidates named by the qualifiers typed before the
// partial word. A qualifier that names no candidate is taken as a table of
// the connection context.
func (p *Provider) qualified(s *session, coords []core.TableCoordinator, quals []string, m *matcher) []core.TableCoordinator {
	if len(quals) > 2 {
		return nil
	}
	name := quals[len(quals)-1]
	var picked []core.TableCoordinator
	for _, c := range coords {
		if !c.Matches(name) {
			continue
		}
		if len(quals) == 2 && !m.equal(quals[0], c.Schema) && !m.equal(quals[0], c.Catalog) {
			continue
		}
		picked = append(picked, c)
	}
	if len(picked) > 0 {
		return picked
	}

	ref := core.TableCoordinator{Table: name}
	if len(quals) == 2 {
		ref.Schema = quals[0]
	}
	return []core.TableCoordinator{correct(s, ref)}
}
