// Package sqlsource implements the metadata transport by querying the system
// catalogs of live databases through database/sql. Each supported database
// type is a Flavor registered at init; instances and their DSNs come from
// configuration and are connected lazily on first use.
package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// DefaultBatchLimit bounds the concurrent queries of one batched column fetch.
const DefaultBatchLimit = 4

// Instance is one configured database instance.
type Instance struct {
	ID     int64  `koanf:"id" yaml:"id"`
	Type   string `koanf:"type" yaml:"type"`
	Name   string `koanf:"name" yaml:"name,omitempty"`
	Driver string `koanf:"driver" yaml:"driver,omitempty"` // overrides the flavor's driver
	DSN    string `koanf:"dsn" yaml:"dsn"`
}

// Opener opens a connection pool for an instance.
type Opener func(f *Flavor, inst Instance) (*sql.DB, error)

// Option configures a Source.
type Option func(*Source)

// WithOpener replaces how connections are opened.
func WithOpener(open Opener) Option {
	return func(s *Source) { s.open = open }
}

// WithBatchLimit sets how many parent groups of a batched column fetch are
// queried at once.
func WithBatchLimit(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithDatabases restricts the advertised database types to the given
// descriptors. Labels are taken from them; level flags always come from the
// flavor, since the catalog queries depend on them.
func WithDatabases(dbs []core.DatabaseConfig) Option {
	return func(s *Source) { s.databases = dbs }
}

// Source is a metadata.Transport over live database connections.
type Source struct {
	instances  []Instance
	databases  []core.DatabaseConfig
	logger     *slog.Logger
	open       Opener
	batchLimit int

	mu  sync.Mutex
	dbs map[int64]*sql.DB
}

var _ metadata.Transport = (*Source)(nil)

// New creates a source for the configured instances.
// A nil logger discards all log output.
func New(instances []Instance, logger *slog.Logger, opts ...Option) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Source{
		instances:  instances,
		logger:     logger,
		open:       defaultOpen,
		batchLimit: DefaultBatchLimit,
		dbs:        make(map[int64]*sql.DB),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultOpen(f *Flavor, inst Instance) (*sql.DB, error) {
	if inst.Driver != "" {
		return sql.Open(inst.Driver, inst.DSN)
	}
	return f.open(inst.DSN)
}

// Close closes every connection pool opened so far.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for id, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close instance %d: %w", id, err))
		}
		delete(s.dbs, id)
	}
	return errors.Join(errs...)
}

func flavorFor(dbType string) (*Flavor, error) {
	f, ok := Get(dbType)
	if !ok {
		return nil, &UnknownFlavorError{Type: dbType, Available: List()}
	}
	return f, nil
}

// conn returns the flavor and the (lazily opened) pool of an instance.
func (s *Source) conn(dbType string, id int64) (*Flavor, *sql.DB, error) {
	f, err := flavorFor(dbType)
	if err != nil {
		return nil, nil, err
	}

	var inst *Instance
	for i := range s.instances {
		if s.instances[i].ID == id && strings.EqualFold(s.instances[i].Type, dbType) {
			inst = &s.instances[i]
			break
		}
	}
	if inst == nil {
		return nil, nil, fmt.Errorf("instance %d of type %s is not configured", id, dbType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[id]; ok {
		return f, db, nil
	}
	s.logger.Debug("opening database connection", slog.String("type", f.Config.Type), slog.Int64("id", id), slog.String("name", inst.Name))
	db, err := s.open(f, *inst)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open instance %d: %w", id, err)
	}
	s.dbs[id] = db
	return f, db, nil
}

// ListDatabaseConfigs returns the capabilities of every supported type, or
// of the types configured with WithDatabases.
func (s *Source) ListDatabaseConfigs(_ context.Context) ([]core.DatabaseConfig, error) {
	if len(s.databases) == 0 {
		types := List()
		out := make([]core.DatabaseConfig, 0, len(types))
		for _, t := range types {
			f, _ := Get(t)
			out = append(out, f.Config)
		}
		return out, nil
	}

	out := make([]core.DatabaseConfig, 0, len(s.databases))
	for _, db := range s.databases {
		f, err := flavorFor(db.Type)
		if err != nil {
			return nil, err
		}
		cfg := f.Config
		if db.Label != "" {
			cfg.Label = db.Label
		}
		out = append(out, cfg)
	}
	return out, nil
}

// ListInstances returns the configured instances of a type.
func (s *Source) ListInstances(_ context.Context, dbType string) ([]core.Instance, error) {
	var out []core.Instance
	for _, inst := range s.instances {
		if strings.EqualFold(inst.Type, dbType) {
			out = append(out, core.Instance{Type: strings.ToUpper(inst.Type), ID: inst.ID, Name: inst.Name})
		}
	}
	return out, nil
}

func (s *Source) ListCatalogNames(ctx context.Context, dbType string, id int64) ([]string, error) {
	f, db, err := s.conn(dbType, id)
	if err != nil {
		return nil, err
	}
	if !f.Config.UseCatalog {
		return nil, fmt.Errorf("catalogs of %s: %w", f.Config.Type, metadata.ErrUnsupportedLevel)
	}
	return queryNames(ctx, db, f.Catalogs)
}

func (s *Source) ListSchemaNames(ctx context.Context, dbType string, id int64, catalog string) ([]string, error) {
	f, db, err := s.conn(dbType, id)
	if err != nil {
		return nil, err
	}
	if !f.Config.UseSchema {
		return nil, fmt.Errorf("schemas of %s: %w", f.Config.Type, metadata.ErrUnsupportedLevel)
	}
	var args []any
	if f.Config.UseCatalog {
		args = append(args, catalog)
	}
	return queryNames(ctx, db, f.Schemas, args...)
}

func (s *Source) ListTableAndViewNames(ctx context.Context, dbType string, id int64, catalog, schema string) ([]core.NameKind, error) {
	f, db, err := s.conn(dbType, id)
	if err != nil {
		return nil, err
	}
	return queryNameKinds(ctx, db, f.Tables, f.parentArgs(catalog, schema)...)
}

func (s *Source) ListTableColumns(ctx context.Context, dbType string, id int64, table core.TableCoordinator) ([]core.Column, error) {
	f, db, err := s.conn(dbType, id)
	if err != nil {
		return nil, err
	}
	args := append(f.parentArgs(table.Catalog, table.Schema), table.Table)
	return queryColumns(ctx, db, f.Columns, args...)
}

type tableGroup struct {
	catalog string
	schema  string
	tables  []string
}

// ListTablesColumns groups the tables by parent and runs one query per group,
// up to the batch limit at a time.
func (s *Source) ListTablesColumns(ctx context.Context, dbType string, id int64, tables []core.TableCoordinator) ([]core.TableColumns, error) {
	f, db, err := s.conn(dbType, id)
	if err != nil {
		return nil, err
	}

	var groups []*tableGroup
	byParent := make(map[[2]string]*tableGroup)
	for _, t := range tables {
		key := [2]string{t.Catalog, t.Schema}
		g, ok := byParent[key]
		if !ok {
			g = &tableGroup{catalog: t.Catalog, schema: t.Schema}
			byParent[key] = g
			groups = append(groups, g)
		}
		g.tables = append(g.tables, t.Table)
	}

	results := make([][]core.TableColumns, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.batchLimit)
	for i, g := range groups {
		eg.Go(func() error {
			args := f.parentArgs(g.catalog, g.schema)
			query := fmt.Sprintf(f.BatchColumns, f.placeholders(len(args)+1, len(g.tables)))
			for _, t := range g.tables {
				args = append(args, t)
			}
			cols, err := queryTableColumns(egCtx, db, g.catalog, g.schema, query, args...)
			if err != nil {
				return fmt.Errorf("failed to list columns of %d tables in %s.%s: %w", len(g.tables), g.catalog, g.schema, err)
			}
			results[i] = cols
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []core.TableColumns
	for _, r := range results {
		out = append(out, r...)
	}
	s.logger.Debug("batched columns listed", slog.String("type", f.Config.Type), slog.Int64("id", id), slog.Int("groups", len(groups)), slog.Int("tables", len(tables)))
	return out, nil
}
