// Package core holds the domain types shared by the completion engine, the
// metadata store and the metadata transports.
//
// It has no dependencies beyond the standard library so that every other
// package can import it without cycles.
package core
