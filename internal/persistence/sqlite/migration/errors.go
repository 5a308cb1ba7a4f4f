package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMigrationFile reports a file that does not follow the naming
	// convention or holds no statements.
	ErrInvalidMigrationFile = errors.New("invalid migration file")
	// ErrDuplicateVersion reports two files sharing a version.
	ErrDuplicateVersion = errors.New("duplicate migration version")
	// ErrChecksumMismatch reports an applied file whose content changed.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
	// ErrMigrationFailed wraps a statement that failed to execute.
	ErrMigrationFailed = errors.New("migration execution failed")
)

// MigrationError adds the version, file and step to a failure.
type MigrationError struct {
	Version   string
	Path      string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.Path, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration (%s): %s: %v", e.Path, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

func newMigrationError(version, path, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, Path: path, Operation: operation, Err: err}
}
