// Package apperr defines the error kinds shared across the planner.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidDate   = errors.New("invalid date")
	ErrConflict      = errors.New("conflict")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Validation constraints reported by ValidationError.
const (
	ConstraintRequired  = "required"
	ConstraintMaxLength = "max_length"
)

// ValidationError reports user input that violates a constraint.
type ValidationError struct {
	Field      string
	Constraint string
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PersistenceReadError means stored data could not be parsed.
// Callers recover by treating storage as empty.
type PersistenceReadError struct {
	Key string
	Err error
}

func (e *PersistenceReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Key, e.Err)
}

func (e *PersistenceReadError) Unwrap() error { return e.Err }

// PersistenceWriteError means the storage provider rejected a write.
type PersistenceWriteError struct {
	Key string
	Err error
}

func (e *PersistenceWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Key, e.Err)
}

func (e *PersistenceWriteError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsReadFailure reports whether err carries a PersistenceReadError.
func IsReadFailure(err error) bool {
	var re *PersistenceReadError
	return errors.As(err, &re)
}

// IsWriteFailure reports whether err carries a PersistenceWriteError.
func IsWriteFailure(err error) bool {
	var we *PersistenceWriteError
	return errors.As(err, &we)
}
