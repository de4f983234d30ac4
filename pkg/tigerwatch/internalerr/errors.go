// Package internalerr holds the sentinel errors shared by tigerwatch packages.
// Callers wrap them with fmt.Errorf("...: %w", err) and test with errors.Is.
package internalerr

import "errors"

var (
	// ErrNotFound is returned when a video, comment set or report does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks a record that fails validation before it reaches a store.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable wraps driver failures while opening a store.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	// ErrUnknownTiger is returned when an operation names a tiger missing from the roster.
	ErrUnknownTiger = errors.New("unknown tiger")
)
