package model

import (
	"errors"
	"fmt"
)

// The engine distinguishes three failure kinds so the HTTP layer can map them
// to 404 / 400 / 500 without parsing messages.

// NotFoundError reports a referenced item, store or category that does not
// exist. Safe to retry after creating the resource.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.Key)
}

// NewNotFound builds a NotFoundError for the given resource kind and key.
func NewNotFound(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

// ValidationError reports a caller-supplied value that violates an invariant
// (negative quantity, insufficient stock, deleting the last store, ...).
// Surfaced verbatim to the caller, never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidation builds a ValidationError with the given message.
func NewValidation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps an I/O failure during load or persist. The atomic rename
// strategy guarantees no partial state was left behind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// NewStorage wraps err as a StorageError for the given operation.
func NewStorage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
