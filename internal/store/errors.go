package store

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a mutation would violate a consistency
	// invariant: a transition on an already-terminal transaction, an anchor
	// consumed by a different pairing, or a duplicate decision.
	ErrConflict = errors.New("conflict")
)
