package sqlsource

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// MySQL calls its databases schemas; they are catalogs in the metadata tree.
const (
	mysqlCatalogs = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')
		ORDER BY schema_name`
	mysqlTables = `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = ?
		ORDER BY table_name`
	mysqlColumns = `
		SELECT column_name, column_type
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`
	mysqlBatchColumns = `
		SELECT table_name, column_name, column_type
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name IN (%s)
		ORDER BY table_name, ordinal_position`
)

func openMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func mysqlFlavor(dbType, label string) *Flavor {
	return &Flavor{
		Config:       core.DatabaseConfig{Type: dbType, Label: label, UseCatalog: true, UseProcedure: true, UseFunction: true},
		Driver:       "mysql",
		Placeholder:  questionMark,
		Catalogs:     mysqlCatalogs,
		Tables:       mysqlTables,
		Columns:      mysqlColumns,
		BatchColumns: mysqlBatchColumns,
		Open:         openMySQL,
	}
}

func init() {
	Register(mysqlFlavor("MYSQL", "MySQL"))
	Register(mysqlFlavor("MARIADB", "MariaDB"))
}
