// Package metadata keeps a lazily loaded, per-instance tree of database
// metadata: catalogs, schemas, tables, views and columns.
//
// Every node carries a load state. A fetch moves a node from Init to Loading
// with a compare-and-swap before the transport is called, so at most one
// request is ever in flight per node. Callers that find a node Loading get
// ErrLoading back immediately and are expected to retry later; nothing in
// this package waits for another caller's fetch.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// Store is the metadata cache shared by every completion pass of a process.
type Store struct {
	transport Transport
	logger    *slog.Logger
	group     singleflight.Group

	mu        sync.Mutex
	configs   map[string]core.DatabaseConfig // nil until loaded
	instances map[string][]core.Instance
	roots     map[string]*Object
}

// NewStore creates a store backed by transport.
// A nil logger discards all log output.
func NewStore(transport Transport, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		transport: transport,
		logger:    logger,
		instances: make(map[string][]core.Instance),
		roots:     make(map[string]*Object),
	}
}

func typeKey(dbType string) string {
	return strings.ToUpper(dbType)
}

func rootKey(dbType string, id int64) string {
	return fmt.Sprintf("%s-%d", typeKey(dbType), id)
}

// FindDatabaseConfigs returns the capability descriptors of all database
// types, loading them once.
func (s *Store) FindDatabaseConfigs(ctx context.Context) ([]core.DatabaseConfig, error) {
	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.DatabaseConfig, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// DatabaseConfig returns the capability descriptor of one database type.
func (s *Store) DatabaseConfig(ctx context.Context, dbType string) (core.DatabaseConfig, error) {
	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return core.DatabaseConfig{}, err
	}
	cfg, ok := configs[typeKey(dbType)]
	if !ok {
		available := make([]string, 0, len(configs))
		for _, c := range configs {
			available = append(available, c.Type)
		}
		sort.Strings(available)
		return core.DatabaseConfig{}, &UnknownDatabaseTypeError{Type: dbType, Available: available}
	}
	return cfg, nil
}

// PeekDatabaseConfig returns a cached capability descriptor without loading.
func (s *Store) PeekDatabaseConfig(dbType string) (core.DatabaseConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[typeKey(dbType)]
	return cfg, ok
}

func (s *Store) loadConfigs(ctx context.Context) (map[string]core.DatabaseConfig, error) {
	s.mu.Lock()
	configs := s.configs
	s.mu.Unlock()
	if configs != nil {
		return configs, nil
	}

	v, err, _ := s.group.Do("configs", func() (any, error) {
		list, err := s.transport.ListDatabaseConfigs(ctx)
		if err != nil {
			return nil, err
		}
		loaded := make(map[string]core.DatabaseConfig, len(list))
		for _, cfg := range list {
			loaded[typeKey(cfg.Type)] = cfg
		}
		s.mu.Lock()
		s.configs = loaded
		s.mu.Unlock()
		s.logger.Debug("database configs loaded", "count", len(loaded))
		return loaded, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load database configs: %w", err)
	}
	return v.(map[string]core.DatabaseConfig), nil
}

// FindInstances returns the instances of a database type, loading them once.
func (s *Store) FindInstances(ctx context.Context, dbType string) ([]core.Instance, error) {
	key := typeKey(dbType)
	s.mu.Lock()
	cached, ok := s.instances[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.group.Do("instances-"+key, func() (any, error) {
		list, err := s.transport.ListInstances(ctx, dbType)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.instances[key] = list
		s.mu.Unlock()
		s.logger.Debug("instances loaded", "type", dbType, "count", len(list))
		return list, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load instances of %s: %w", dbType, err)
	}
	return v.([]core.Instance), nil
}

// root returns the tree root of an instance, creating it on first use.
func (s *Store) root(dbType string, id int64) *Object {
	key := rootKey(dbType, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roots[key]
	if !ok {
		r = newObject(core.KindRoot, key, "")
		s.roots[key] = r
	}
	return r
}

// peekRoot returns the tree root of an instance if it exists.
func (s *Store) peekRoot(dbType string, id int64) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roots[rootKey(dbType, id)]
}

// FindCatalogs returns the catalogs of an instance.
func (s *Store) FindCatalogs(ctx context.Context, dbType string, id int64) ([]*Object, error) {
	cfg, err := s.DatabaseConfig(ctx, dbType)
	if err != nil {
		return nil, err
	}
	if !cfg.UseCatalog {
		return nil, fmt.Errorf("catalogs of %s: %w", cfg.Type, ErrUnsupportedLevel)
	}
	r := s.root(cfg.Type, id)
	return s.load(ctx, r, "catalogs", s.childLoader(cfg, id, r, "", ""))
}

// FindSchemas returns the schemas of an instance. catalog is required when
// the type uses catalogs and ignored otherwise.
func (s *Store) FindSchemas(ctx context.Context, dbType string, id int64, catalog string) ([]*Object, error) {
	cfg, err := s.DatabaseConfig(ctx, dbType)
	if err != nil {
		return nil, err
	}
	if !cfg.UseSchema {
		return nil, fmt.Errorf("schemas of %s: %w", cfg.Type, ErrUnsupportedLevel)
	}
	var path []string
	if cfg.UseCatalog {
		if catalog == "" {
			return nil, fmt.Errorf("database type %s requires a catalog: %w", cfg.Type, ErrInvalidContext)
		}
		path = []string{catalog}
	}
	parent, err := s.descend(ctx, cfg, id, path, true)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, parent.obj, "schemas", s.childLoader(cfg, id, parent.obj, parent.catalog, parent.schema))
}

// FindTablesAndViews returns the tables and views under a catalog and schema.
func (s *Store) FindTablesAndViews(ctx context.Context, dbType string, id int64, catalog, schema string) ([]*Object, error) {
	cfg, err := s.DatabaseConfig(ctx, dbType)
	if err != nil {
		return nil, err
	}
	parent, err := s.tableParent(ctx, cfg, id, catalog, schema, true)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, parent.obj, "tables", s.childLoader(cfg, id, parent.obj, parent.catalog, parent.schema))
}

// FindTables is FindTablesAndViews without views.
func (s *Store) FindTables(ctx context.Context, dbType string, id int64, catalog, schema string) ([]*Object, error) {
	objects, err := s.FindTablesAndViews(ctx, dbType, id, catalog, schema)
	if err != nil {
		return nil, err
	}
	return filterKind(objects, core.KindTable), nil
}

// FindViews is FindTablesAndViews without tables.
func (s *Store) FindViews(ctx context.Context, dbType string, id int64, catalog, schema string) ([]*Object, error) {
	objects, err := s.FindTablesAndViews(ctx, dbType, id, catalog, schema)
	if err != nil {
		return nil, err
	}
	return filterKind(objects, core.KindView), nil
}
