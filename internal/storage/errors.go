package storage

import "errors"

// Domain-specific errors for storage operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("storage: store closed")

	// ErrWriteFailed is returned when a put operation fails.
	ErrWriteFailed = errors.New("storage: write failed")

	// ErrCapacityExceeded is returned when a put would exceed the entry budget.
	ErrCapacityExceeded = errors.New("storage: capacity exceeded")
)
