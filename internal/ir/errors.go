package ir

import "errors"

var (
	// ErrNotFound is returned when a release, snapshot, repository or flow
	// does not exist (or belongs to another project).
	ErrNotFound = errors.New("not found")

	// ErrMappingConflict is returned when the stored mapping revision moved
	// between read and write.
	ErrMappingConflict = errors.New("mapping modified concurrently")

	// ErrInvalidCursor is returned when a listing cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")
)
