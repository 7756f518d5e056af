// Package apperr holds the error taxonomy shared by the pin pipeline and the HTTP layer.
//
// ValidationError is raised before anything is persisted. StorageError wraps a failed
// read or write. DispatchFailure describes one failed push and is only ever logged.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrZoneLimit       = errors.New("watch zone limit reached")
	ErrAlreadyEndorsed = errors.New("pin already endorsed")
	ErrConflict        = errors.New("already exists")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a persistence failure with the operation that caused it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a *StorageError. It returns nil for a nil err and leaves
// the sentinels in this package untouched so callers can still match them.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrZoneLimit) || errors.Is(err, ErrAlreadyEndorsed) ||
		errors.Is(err, ErrConflict) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// DispatchFailure is a failed notification for a single recipient.
type DispatchFailure struct {
	ZoneID uint
	UserID uint
	Err    error
}

func (e *DispatchFailure) Error() string {
	return fmt.Sprintf("dispatch to user %d (zone %d): %v", e.UserID, e.ZoneID, e.Err)
}

func (e *DispatchFailure) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err is or wraps a *StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
