package metadata

import (
	"errors"
	"fmt"
)

// ErrLoading is returned when the requested children are being fetched by
// another caller. It means "retry shortly", never "absent".
var ErrLoading = errors.New("metadata is loading")

// ErrUnsupportedLevel is returned when asking for a tree level the database
// type does not have, e.g. catalogs of a schema-only type.
var ErrUnsupportedLevel = errors.New("database type has no such level")

// ErrInvalidContext is returned when catalog or schema names required by the
// database type are missing.
var ErrInvalidContext = errors.New("invalid connection context")

// errNotLoaded marks an Init node met by a cache-only lookup.
var errNotLoaded = errors.New("metadata not loaded")

// UnknownDatabaseTypeError is returned when no capability config exists for a type.
type UnknownDatabaseTypeError struct {
	Type      string
	Available []string
}

func (e *UnknownDatabaseTypeError) Error() string {
	return fmt.Sprintf("unknown database type %q\nAvailable types: %v", e.Type, e.Available)
}

// ErrNotFound is returned when a named catalog, schema or table does not
// exist in a loaded level.
var ErrNotFound = errors.New("metadata object not found")
