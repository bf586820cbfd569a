package metadata

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// fakeTransport serves a fixed metadata tree and counts calls. A method
// listed in gates blocks until its channel is closed, after signalling on
// started.
type fakeTransport struct {
	mu sync.Mutex

	configs   []core.DatabaseConfig
	instances map[string][]core.Instance
	catalogs  []string
	schemas   map[string][]string        // catalog -> schemas
	tables    map[string][]core.NameKind // "catalog/schema" -> tables
	columns   map[string][]core.Column   // "catalog/schema/table" -> columns

	calls   map[string]int
	batches [][]core.TableCoordinator
	fail    error
	gates   map[string]chan struct{}
	started chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		configs: []core.DatabaseConfig{
			{Type: "MYSQL", UseCatalog: true},
			{Type: "POSTGRESQL", UseCatalog: true, UseSchema: true},
			{Type: "ORACLE", UseSchema: true},
			{Type: "SQLITE"},
		},
		instances: map[string][]core.Instance{
			"MYSQL": {{Type: "MYSQL", ID: 1, Name: "local"}},
		},
		catalogs: []string{"shop", "crm"},
		schemas: map[string][]string{
			"shop": {"public", "sales"},
			"":     {"HR"},
		},
		tables: map[string][]core.NameKind{
			"shop/":       {{Name: "users", Kind: core.KindTable}, {Name: "orders", Kind: core.KindTable}, {Name: "active_users", Kind: core.KindView}},
			"shop/public": {{Name: "users", Kind: core.KindTable}, {Name: "orders", Kind: core.KindTable}},
			"shop/sales":  {{Name: "invoices", Kind: core.KindTable}},
			"/HR":         {{Name: "EMPLOYEES", Kind: core.KindTable}},
			"/":           {{Name: "notes", Kind: core.KindTable}},
		},
		columns: map[string][]core.Column{
			"shop//users":         {{Name: "id", TypeName: "int"}, {Name: "name", TypeName: "varchar"}},
			"shop/public/users":   {{Name: "id", TypeName: "int4"}, {Name: "email", TypeName: "text"}},
			"shop/public/orders":  {{Name: "id", TypeName: "int4"}, {Name: "user_id", TypeName: "int4"}},
			"shop/sales/invoices": {{Name: "id", TypeName: "int4"}, {Name: "total", TypeName: "numeric"}},
			"//notes":             {{Name: "body", TypeName: "TEXT"}},
		},
		calls:   make(map[string]int),
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

func (f *fakeTransport) enter(method string) error {
	f.mu.Lock()
	f.calls[method]++
	gate := f.gates[method]
	err := f.fail
	f.mu.Unlock()
	if gate != nil {
		f.started <- method
		<-gate
	}
	return err
}

func (f *fakeTransport) gate(method string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[method] = ch
	return ch
}

func (f *fakeTransport) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeTransport) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeTransport) ListDatabaseConfigs(_ context.Context) ([]core.DatabaseConfig, error) {
	if err := f.enter("configs"); err != nil {
		return nil, err
	}
	return f.configs, nil
}

func (f *fakeTransport) ListInstances(_ context.Context, dbType string) ([]core.Instance, error) {
	if err := f.enter("instances"); err != nil {
		return nil, err
	}
	return f.instances[dbType], nil
}

func (f *fakeTransport) ListCatalogNames(_ context.Context, _ string, _ int64) ([]string, error) {
	if err := f.enter("catalogs"); err != nil {
		return nil, err
	}
	return f.catalogs, nil
}

func (f *fakeTransport) ListSchemaNames(_ context.Context, _ string, _ int64, catalog string) ([]string, error) {
	if err := f.enter("schemas"); err != nil {
		return nil, err
	}
	return f.schemas[catalog], nil
}

func (f *fakeTransport) ListTableAndViewNames(_ context.Context, _ string, _ int64, catalog, schema string) ([]core.NameKind, error) {
	if err := f.enter("tables"); err != nil {
		return nil, err
	}
	return f.tables[catalog+"/"+schema], nil
}

func (f *fakeTransport) ListTableColumns(_ context.Context, _ string, _ int64, t core.TableCoordinator) ([]core.Column, error) {
	if err := f.enter("columns"); err != nil {
		return nil, err
	}
	cols, ok := f.columns[t.Catalog+"/"+t.Schema+"/"+t.Table]
	if !ok {
		return nil, fmt.Errorf("no table %s", t)
	}
	return cols, nil
}

func (f *fakeTransport) ListTablesColumns(_ context.Context, _ string, _ int64, tables []core.TableCoordinator) ([]core.TableColumns, error) {
	f.mu.Lock()
	f.batches = append(f.batches, tables)
	f.mu.Unlock()
	if err := f.enter("batch"); err != nil {
		return nil, err
	}
	var out []core.TableColumns
	for _, t := range tables {
		cols, ok := f.columns[t.Catalog+"/"+t.Schema+"/"+t.Table]
		if !ok {
			continue
		}
		// the service answers in upper case; matching must fold
		out = append(out, core.TableColumns{
			Catalog: strings.ToUpper(t.Catalog),
			Schema:  strings.ToUpper(t.Schema),
			Table:   strings.ToUpper(t.Table),
			Columns: cols,
		})
	}
	return out, nil
}
