package core

import "fmt"

// ObjectKind is the kind of a node in the metadata tree.
type ObjectKind string

// Object kinds.
const (
	KindRoot      ObjectKind = "ROOT"
	KindCatalog   ObjectKind = "CATALOG"
	KindSchema    ObjectKind = "SCHEMA"
	KindTable     ObjectKind = "TABLE"
	KindView      ObjectKind = "VIEW"
	KindColumn    ObjectKind = "COLUMN"
	KindProcedure ObjectKind = "PROCEDURE"
	KindFunction  ObjectKind = "FUNCTION"
)

// DatabaseConfig is the capability descriptor of one database type. Its flags
// fix which tree levels exist for that type.
type DatabaseConfig struct {
	Type         string `json:"type" koanf:"type" yaml:"type"`
	Label        string `json:"label,omitempty" koanf:"label" yaml:"label,omitempty"`
	UseCatalog   bool   `json:"useCatalog" koanf:"use_catalog" yaml:"use_catalog"`
	UseSchema    bool   `json:"useSchema" koanf:"use_schema" yaml:"use_schema"`
	UseProcedure bool   `json:"useProcedure" koanf:"use_procedure" yaml:"use_procedure"`
	UseFunction  bool   `json:"useFunction" koanf:"use_function" yaml:"use_function"`
}

// ParentLevels returns the namespace levels above tables for this type, top first.
func (c DatabaseConfig) ParentLevels() []ObjectKind {
	var levels []ObjectKind
	if c.UseCatalog {
		levels = append(levels, KindCatalog)
	}
	if c.UseSchema {
		levels = append(levels, KindSchema)
	}
	return levels
}

// ParentPath returns the names of the table parent for a catalog and schema,
// keeping only the levels this type uses.
func (c DatabaseConfig) ParentPath(catalog, schema string) ([]string, error) {
	var path []string
	if c.UseCatalog {
		if catalog == "" {
			return nil, fmt.Errorf("database type %s requires a catalog", c.Type)
		}
		path = append(path, catalog)
	}
	if c.UseSchema {
		if schema == "" {
			return nil, fmt.Errorf("database type %s requires a schema", c.Type)
		}
		path = append(path, schema)
	}
	return path, nil
}

// Instance is one database instance of a type.
type Instance struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// NameKind is a table or view name together with its kind.
type NameKind struct {
	Name string     `json:"name"`
	Kind ObjectKind `json:"type"`
}

// Column is one column of a table or view.
type Column struct {
	Name     string `json:"name"`
	TypeName string `json:"typeName,omitempty"`
}

// TableColumns is the column list of one table.
type TableColumns struct {
	Catalog string   `json:"catalog"`
	Schema  string   `json:"schema"`
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

// Coordinator returns the table coordinate of this column list.
func (t TableColumns) Coordinator() TableCoordinator {
	return TableCoordinator{Catalog: t.Catalog, Schema: t.Schema, Table: t.Table}
}

// PathElement names one node on the way from an instance root to a subtree.
type PathElement struct {
	Kind ObjectKind `json:"type"`
	Name string     `json:"name"`
}
