package core

import "strings"

// TableCoordinator identifies one table reference independent of which
// namespace levels the database type actually uses.
type TableCoordinator struct {
	Catalog string `json:"catalog"`
	Schema  string `json:"schema"`
	Table   string `json:"table"`
	Alias   string `json:"alias,omitempty"`
}

// String renders the coordinator as a dotted name with an optional alias.
func (c TableCoordinator) String() string {
	parts := make([]string, 0, 3)
	if c.Catalog != "" {
		parts = append(parts, c.Catalog)
	}
	if c.Schema != "" {
		parts = append(parts, c.Schema)
	}
	parts = append(parts, c.Table)
	s := strings.Join(parts, ".")
	if c.Alias != "" {
		s += " " + c.Alias
	}
	return s
}

// SameTable reports whether two coordinators name the same table, ignoring aliases.
func (c TableCoordinator) SameTable(o TableCoordinator) bool {
	return c.Catalog == o.Catalog && c.Schema == o.Schema && c.Table == o.Table
}

// Matches reports whether name refers to this table by alias or table name.
// Comparison is case-insensitive.
func (c TableCoordinator) Matches(name string) bool {
	if c.Alias != "" && strings.EqualFold(c.Alias, name) {
		return true
	}
	return strings.EqualFold(c.Table, name)
}
