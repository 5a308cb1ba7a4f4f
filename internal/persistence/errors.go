package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrIO is matched by every Error produced by a failed file or database operation.
	ErrIO = errors.New("persistence: i/o failure")
	// ErrInvalidDocument is returned when a document fails schema validation.
	ErrInvalidDocument = errors.New("persistence: invalid document")
)

// Error wraps an I/O failure with the operation and path involved.
type Error struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIO.
func (e *Error) Is(target error) bool {
	return target == ErrIO
}

// Wrap returns nil when err is nil and an *Error otherwise.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Path: path, Err: err}
}

// DocumentError reports a document rejected by validation.
type DocumentError struct {
	File    string
	Details string
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	return fmt.Sprintf("persistence: invalid %s: %s", e.File, e.Details)
}

// Is reports whether target is ErrInvalidDocument.
func (e *DocumentError) Is(target error) bool {
	return target == ErrInvalidDocument
}
