package storage

import "github.com/c360studio/semtype/instance"

// Common storage errors.
var (
	// ErrNotFound is returned when an instance is not stored. It matches
	// instance.ErrNotFound so callers need not know the backend.
	ErrNotFound = instance.ErrNotFound
)
