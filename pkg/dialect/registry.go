package dialect

import (
	"sort"
	"strings"
	"sync"
)

// Dialect registry
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
	aliases    = make(map[string]string)
)

// DefaultName is the dialect used when a name is unknown.
const DefaultName = "sql"

// Get returns a dialect by name or alias.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	key := strings.ToLower(name)
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	d, ok := dialects[key]
	return d, ok
}

// GetOrDefault returns the named dialect, or the generic dialect if the
// name is not registered.
func GetOrDefault(name string) *Dialect {
	if d, ok := Get(name); ok {
		return d
	}
	d, _ := Get(DefaultName)
	return d
}

// Register registers a dialect in the global registry.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[d.Name] = d
	for _, a := range d.Aliases {
		aliases[a] = d.Name
	}
}

// List returns all registered dialect names (sorted).
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// databaseTypes maps metadata database types to dialect names.
var databaseTypes = map[string]string{
	"MYSQL":      "mysql",
	"MARIADB":    "mariadb",
	"POSTGRESQL": "postgresql",
	"POSTGRES":   "postgresql",
	"ORACLE":     "plsql",
	"DB2":        "db2",
	"SQLITE":     "sqlite",
	"DUCKDB":     "duckdb",
}

// ForDatabaseType returns the dialect for a metadata database type such as
// MYSQL or POSTGRESQL. Unknown types get the generic dialect.
func ForDatabaseType(dbType string) *Dialect {
	if name, ok := databaseTypes[strings.ToUpper(dbType)]; ok {
		return GetOrDefault(name)
	}
	return GetOrDefault(DefaultName)
}
