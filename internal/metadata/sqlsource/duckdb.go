package sqlsource

import (
	_ "github.com/marcboeker/go-duckdb" // registers the "duckdb" driver

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

const (
	duckdbCatalogs = `
		SELECT DISTINCT catalog_name
		FROM information_schema.schemata
		WHERE catalog_name NOT IN ('system', 'temp')
		ORDER BY catalog_name`
	duckdbSchemas = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE catalog_name = ?
		ORDER BY schema_name`
	duckdbTables = `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_catalog = ? AND table_schema = ?
		ORDER BY table_name`
	duckdbColumns = `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_catalog = ? AND table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`
	duckdbBatchColumns = `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_catalog = ? AND table_schema = ? AND table_name IN (%s)
		ORDER BY table_name, ordinal_position`
)

func init() {
	Register(&Flavor{
		Config:       core.DatabaseConfig{Type: "DUCKDB", Label: "DuckDB", UseCatalog: true, UseSchema: true, UseFunction: true},
		Driver:       "duckdb",
		Placeholder:  questionMark,
		Catalogs:     duckdbCatalogs,
		Schemas:      duckdbSchemas,
		Tables:       duckdbTables,
		Columns:      duckdbColumns,
		BatchColumns: duckdbBatchColumns,
	})
}
