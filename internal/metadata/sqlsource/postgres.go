package sqlsource

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// information_schema in PostgreSQL only describes the connected database, so
// catalogs other than the current one list no schemas.
const (
	postgresCatalogs = `
		SELECT datname
		FROM pg_database
		WHERE NOT datistemplate
		ORDER BY datname`
	postgresSchemas = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE catalog_name = $1
		  AND schema_name NOT IN ('pg_catalog', 'information_schema')
		  AND schema_name NOT LIKE 'pg_toast%'
		ORDER BY schema_name`
	postgresTables = `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_catalog = $1 AND table_schema = $2
		ORDER BY table_name`
	postgresColumns = `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_catalog = $1 AND table_schema = $2 AND table_name = $3
		ORDER BY ordinal_position`
	postgresBatchColumns = `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_catalog = $1 AND table_schema = $2 AND table_name IN (%s)
		ORDER BY table_name, ordinal_position`
)

func openPostgres(dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	return stdlib.OpenDB(*cfg), nil
}

func init() {
	Register(&Flavor{
		Config:       core.DatabaseConfig{Type: "POSTGRESQL", Label: "PostgreSQL", UseCatalog: true, UseSchema: true, UseProcedure: true, UseFunction: true},
		Driver:       "pgx",
		Placeholder:  dollar,
		Catalogs:     postgresCatalogs,
		Schemas:      postgresSchemas,
		Tables:       postgresTables,
		Columns:      postgresColumns,
		BatchColumns: postgresBatchColumns,
		Open:         openPostgres,
	})
}
