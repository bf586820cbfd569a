package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// queryNames runs a query returning one name per row.
func queryNames(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating names: %w", err)
	}
	return names, nil
}

// queryNameKinds runs a query returning (name, table type) rows.
func queryNameKinds(ctx context.Context, db *sql.DB, query string, args ...any) ([]core.NameKind, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.NameKind
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		out = append(out, core.NameKind{Name: name, Kind: tableKind(tableType)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return out, nil
}

// tableKind maps information_schema table types ("BASE TABLE", "VIEW",
// "LOCAL TEMPORARY") and sqlite_master types ("table", "view").
func tableKind(tableType string) core.ObjectKind {
	if strings.Contains(strings.ToUpper(tableType), "VIEW") {
		return core.KindView
	}
	return core.KindTable
}

// queryColumns runs a query returning (name, type) rows.
func queryColumns(ctx context.Context, db *sql.DB, query string, args ...any) ([]core.Column, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var typeName sql.NullString
		if err := rows.Scan(&col.Name, &typeName); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.TypeName = typeName.String
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

// queryTableColumns runs a query returning (table, name, type) rows and
// groups them per table in first-seen order.
func queryTableColumns(ctx context.Context, db *sql.DB, catalog, schema, query string, args ...any) ([]core.TableColumns, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.TableColumns
	index := make(map[string]int)
	for rows.Next() {
		var table string
		var col core.Column
		var typeName sql.NullString
		if err := rows.Scan(&table, &col.Name, &typeName); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.TypeName = typeName.String
		i, ok := index[table]
		if !ok {
			i = len(out)
			index[table] = i
			out = append(out, core.TableColumns{Catalog: catalog, Schema: schema, Table: table})
		}
		out[i].Columns = append(out[i].Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return out, nil
}
