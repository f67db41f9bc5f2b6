package storage

import "errors"

// Storage errors for append-only archive stores.
var (
	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Fetched events are immutable, so
	// stores never update in place; a re-run hitting this error skips
	// the batch instead of rewriting it.
	ErrDuplicateKey = errors.New("duplicate key: event archive is append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
