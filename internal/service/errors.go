package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized     = errors.New("not authenticated")
	ErrItemNotFound     = errors.New("item not found")
	ErrItemNotInOrder   = errors.New("item not found in order")
	ErrNotFoundOrLocked = errors.New("order not found or cannot be modified")
	ErrNotFound         = errors.New("order not found")
	ErrForbidden        = errors.New("operation not allowed")
	ErrConflict         = errors.New("order was modified concurrently")
)

// ValidationError reports a missing or invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a failure of a store collaborator, message kept as-is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
