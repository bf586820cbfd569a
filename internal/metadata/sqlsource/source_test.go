package sqlsource

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
	"github.com/leapstack-labs/sqlcomplete/internal/testutil"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

var testInstances = []Instance{
	{ID: 1, Type: "mysql", Name: "shop", DSN: "root@tcp(localhost:3306)/"},
	{ID: 2, Type: "POSTGRESQL", Name: "warehouse", DSN: "postgres://localhost/warehouse"},
	{ID: 3, Type: "SQLITE", Name: "notes", DSN: "file:notes.db"},
}

// newMockSource returns a source whose every instance shares one sqlmock pool.
func newMockSource(t *testing.T, opts ...Option) (*Source, sqlmock.Sqlmock, *int) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opened := 0
	opener := WithOpener(func(_ *Flavor, _ Instance) (*sql.DB, error) {
		opened++
		return db, nil
	})
	s := New(testInstances, testutil.NewTestLogger(t), append([]Option{opener}, opts...)...)
	return s, mock, &opened
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"DUCKDB", "MARIADB", "MYSQL", "POSTGRESQL", "SQLITE"}, List())

	f, ok := Get("postgresql")
	require.True(t, ok)
	assert.Equal(t, "pgx", f.Driver)
	assert.Equal(t, "$1, $2, $3", f.placeholders(1, 3))

	f, ok = Get("MYSQL")
	require.True(t, ok)
	assert.Equal(t, "?, ?", f.placeholders(2, 2))

	_, err := flavorFor("MONGO")
	var unknown *UnknownFlavorError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "MONGO", unknown.Type)
}

func TestSource_ListDatabaseConfigsAndInstances(t *testing.T) {
	s, _, opened := newMockSource(t)
	ctx := context.Background()

	configs, err := s.ListDatabaseConfigs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 5)
	assert.Equal(t, "DUCKDB", configs[0].Type)

	instances, err := s.ListInstances(ctx, "MYSQL")
	require.NoError(t, err)
	assert.Equal(t, []core.Instance{{Type: "MYSQL", ID: 1, Name: "shop"}}, instances)
	assert.Zero(t, *opened, "listing instances must not connect")
}

func TestSource_WithDatabases(t *testing.T) {
	s, _, _ := newMockSource(t, WithDatabases([]core.DatabaseConfig{
		{Type: "mysql", Label: "MySQL 8"},
		// flags are ignored in favour of the flavor's
		{Type: "SQLITE", UseCatalog: true},
	}))

	configs, err := s.ListDatabaseConfigs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.DatabaseConfig{
		{Type: "MYSQL", Label: "MySQL 8", UseCatalog: true, UseProcedure: true, UseFunction: true},
		{Type: "SQLITE", Label: "SQLite"},
	}, configs)

	s, _, _ = newMockSource(t, WithDatabases([]core.DatabaseConfig{{Type: "MONGO"}}))
	_, err = s.ListDatabaseConfigs(context.Background())
	var unknown *UnknownFlavorError
	assert.ErrorAs(t, err, &unknown)
}

func TestSource_ListCatalogNames(t *testing.T) {
	s, mock, opened := newMockSource(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT schema_name FROM information_schema.schemata").
		WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).AddRow("crm").AddRow("shop"))

	names, err := s.ListCatalogNames(ctx, "MYSQL", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"crm", "shop"}, names)

	_, err = s.ListCatalogNames(ctx, "SQLITE", 3)
	assert.ErrorIs(t, err, metadata.ErrUnsupportedLevel)

	_, err = s.ListCatalogNames(ctx, "MYSQL", 42)
	assert.ErrorContains(t, err, "not configured")

	assert.Equal(t, 2, *opened)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_ListSchemaNames(t *testing.T) {
	s, mock, _ := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.schemata WHERE catalog_name = $1")).
		WithArgs("warehouse").
		WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).AddRow("public").AddRow("staging"))

	names, err := s.ListSchemaNames(context.Background(), "POSTGRESQL", 2, "warehouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"public", "staging"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_ListTableAndViewNames(t *testing.T) {
	tests := []struct {
		name      string
		dbType    string
		id        int64
		catalog   string
		schema    string
		setupMock func(mock sqlmock.Sqlmock)
		want      []core.NameKind
	}{
		{
			name:    "mysql by catalog",
			dbType:  "MYSQL",
			id:      1,
			catalog: "shop",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM information_schema.tables").
					WithArgs("shop").
					WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type"}).
						AddRow("orders", "BASE TABLE").
						AddRow("recent_orders", "VIEW"))
			},
			want: []core.NameKind{{Name: "orders", Kind: core.KindTable}, {Name: "recent_orders", Kind: core.KindView}},
		},
		{
			name:    "postgres by catalog and schema",
			dbType:  "POSTGRESQL",
			id:      2,
			catalog: "warehouse",
			schema:  "public",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("WHERE table_catalog = $1 AND table_schema = $2")).
					WithArgs("warehouse", "public").
					WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type"}).AddRow("facts", "BASE TABLE"))
			},
			want: []core.NameKind{{Name: "facts", Kind: core.KindTable}},
		},
		{
			name:   "sqlite without parents",
			dbType: "SQLITE",
			id:     3,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM sqlite_master").
					WithoutArgs().
					WillReturnRows(sqlmock.NewRows([]string{"name", "type"}).AddRow("notes", "table").AddRow("recent", "view"))
			},
			want: []core.NameKind{{Name: "notes", Kind: core.KindTable}, {Name: "recent", Kind: core.KindView}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock, _ := newMockSource(t)
			tt.setupMock(mock)

			got, err := s.ListTableAndViewNames(context.Background(), tt.dbType, tt.id, tt.catalog, tt.schema)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSource_ListTableColumns(t *testing.T) {
	s, mock, _ := newMockSource(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("shop", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "column_type"}).
			AddRow("id", "int(11)").
			AddRow("email", nil))

	cols, err := s.ListTableColumns(context.Background(), "MYSQL", 1, core.TableCoordinator{Catalog: "shop", Table: "users"})
	require.NoError(t, err)
	assert.Equal(t, []core.Column{{Name: "id", TypeName: "int(11)"}, {Name: "email"}}, cols)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_ListTableColumns_QueryError(t *testing.T) {
	s, mock, _ := newMockSource(t)

	mock.ExpectQuery("FROM information_schema.columns").WillReturnError(assert.AnError)

	_, err := s.ListTableColumns(context.Background(), "MYSQL", 1, core.TableCoordinator{Catalog: "shop", Table: "users"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query column metadata")
}

func TestSource_ListTablesColumns(t *testing.T) {
	s, mock, _ := newMockSource(t, WithBatchLimit(1))

	mock.ExpectQuery(regexp.QuoteMeta("table_schema = $2 AND table_name IN ($3, $4)")).
		WithArgs("warehouse", "public", "facts", "dims").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type"}).
			AddRow("dims", "id", "integer").
			AddRow("facts", "id", "integer").
			AddRow("facts", "amount", "numeric"))
	mock.ExpectQuery(regexp.QuoteMeta("table_schema = $2 AND table_name IN ($3)")).
		WithArgs("warehouse", "staging", "raw").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type"}).
			AddRow("raw", "payload", "jsonb"))

	got, err := s.ListTablesColumns(context.Background(), "POSTGRESQL", 2, []core.TableCoordinator{
		{Catalog: "warehouse", Schema: "public", Table: "facts"},
		{Catalog: "warehouse", Schema: "staging", Table: "raw"},
		{Catalog: "warehouse", Schema: "public", Table: "dims"},
	})
	require.NoError(t, err)
	assert.Equal(t, []core.TableColumns{
		{Catalog: "warehouse", Schema: "public", Table: "dims", Columns: []core.Column{{Name: "id", TypeName: "integer"}}},
		{Catalog: "warehouse", Schema: "public", Table: "facts", Columns: []core.Column{{Name: "id", TypeName: "integer"}, {Name: "amount", TypeName: "numeric"}}},
		{Catalog: "warehouse", Schema: "staging", Table: "raw", Columns: []core.Column{{Name: "payload", TypeName: "jsonb"}}},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_ListTablesColumns_GroupError(t *testing.T) {
	s, mock, _ := newMockSource(t, WithBatchLimit(1))

	mock.ExpectQuery("pragma_table_info").WillReturnError(assert.AnError)

	_, err := s.ListTablesColumns(context.Background(), "SQLITE", 3, []core.TableCoordinator{{Table: "notes"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSource_Close(t *testing.T) {
	s, mock, _ := newMockSource(t)
	mock.ExpectQuery("FROM sqlite_master").WillReturnRows(sqlmock.NewRows([]string{"name", "type"}))
	_, err := s.ListTableAndViewNames(context.Background(), "SQLITE", 3, "", "")
	require.NoError(t, err)

	mock.ExpectClose()
	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
