package ledger

import "errors"

var (
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrNotFound is returned when a shift, attempt or plan lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument flags caller input the store refuses to persist.
	ErrInvalidArgument = errors.New("invalid argument")
)
