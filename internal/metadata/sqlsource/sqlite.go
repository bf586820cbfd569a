package sqlsource

import (
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// SQLite has neither catalogs nor schemas: tables hang off the root.
const (
	sqliteTables = `
		SELECT name, type
		FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
	sqliteColumns = `
		SELECT name, type
		FROM pragma_table_info(?)
		ORDER BY cid`
	sqliteBatchColumns = `
		SELECT m.name, p.name, p.type
		FROM sqlite_master AS m
		JOIN pragma_table_info(m.name) AS p
		WHERE m.name IN (%s)
		ORDER BY m.name, p.cid`
)

func init() {
	Register(&Flavor{
		Config:       core.DatabaseConfig{Type: "SQLITE", Label: "SQLite"},
		Driver:       "sqlite",
		Placeholder:  questionMark,
		Tables:       sqliteTables,
		Columns:      sqliteColumns,
		BatchColumns: sqliteBatchColumns,
	})
}
