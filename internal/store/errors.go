package store

import "errors"

var (
	// ErrNotFound means no row matched the requested id.
	ErrNotFound = errors.New("not found")

	// ErrProtected means the row is reserved and may not be deleted.
	ErrProtected = errors.New("protected")
)
