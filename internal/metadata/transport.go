package metadata

import (
	"context"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// Transport fetches metadata from wherever it lives: a REST service, a live
// database, or a test fake. Every call is keyed by database type and
// instance id; catalog and schema are empty when the type has no such level.
type Transport interface {
	ListDatabaseConfigs(ctx context.Context) ([]core.DatabaseConfig, error)
	ListInstances(ctx context.Context, dbType string) ([]core.Instance, error)
	ListCatalogNames(ctx context.Context, dbType string, id int64) ([]string, error)
	ListSchemaNames(ctx context.Context, dbType string, id int64, catalog string) ([]string, error)
	ListTableAndViewNames(ctx context.Context, dbType string, id int64, catalog, schema string) ([]core.NameKind, error)
	ListTableColumns(ctx context.Context, dbType string, id int64, table core.TableCoordinator) ([]core.Column, error)
	ListTablesColumns(ctx context.Context, dbType string, id int64, tables []core.TableCoordinator) ([]core.TableColumns, error)
}
