package sqlsource

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// Flavor describes how to read metadata from one database type through its
// system catalog. Query arguments are the parent path of the level being
// listed, in the order of Config.ParentLevels, followed by table names.
type Flavor struct {
	Config core.DatabaseConfig
	Driver string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	Catalogs string // -> name
	Schemas  string // (catalog?) -> name
	Tables   string // (path...) -> name, type
	Columns  string // (path..., table) -> name, type

	// BatchColumns lists the columns of several tables of one parent. Its %s
	// verb is replaced by the placeholder list of the table names.
	// (path..., tables...) -> table, name, type
	BatchColumns string

	// Open opens a connection pool for a DSN. Nil means sql.Open(Driver, dsn).
	Open func(dsn string) (*sql.DB, error)
}

// parentArgs returns the query arguments naming the parent of a table level.
func (f *Flavor) parentArgs(catalog, schema string) []any {
	var args []any
	if f.Config.UseCatalog {
		args = append(args, catalog)
	}
	if f.Config.UseSchema {
		args = append(args, schema)
	}
	return args
}

// placeholders renders count bind parameters starting at position from.
func (f *Flavor) placeholders(from, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = f.Placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

func (f *Flavor) open(dsn string) (*sql.DB, error) {
	if f.Open != nil {
		return f.Open(dsn)
	}
	return sql.Open(f.Driver, dsn)
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Flavor)
)

// Register adds a flavor under its database type. Called from init functions
// of the flavor files.
func Register(f *Flavor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToUpper(f.Config.Type)] = f
}

// Get retrieves a flavor by database type.
func Get(dbType string) (*Flavor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[strings.ToUpper(dbType)]
	return f, ok
}

// List returns all registered database types (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownFlavorError is returned for a database type no flavor handles.
type UnknownFlavorError struct {
	Type      string
	Available []string
}

func (e *UnknownFlavorError) Error() string {
	return fmt.Sprintf("unsupported database type %q\nAvailable types: %v\nHint: Check the type of your instances in sqlcomplete.yaml", e.Type, e.Available)
}
