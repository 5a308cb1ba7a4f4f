package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/resource-calendar/internal/persistence"
)

// withTransaction runs fn in a transaction, committing when it returns nil.
func withTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// mapError translates driver errors into persistence errors.
func mapError(op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, persistence.ErrNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case containsAny(err.Error(), "UNIQUE constraint failed", "PRIMARY KEY"):
		return persistence.Wrap(op, path, fmt.Errorf("duplicate record: %w", err))
	}
	return persistence.Wrap(op, path, err)
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isRetryable(err error) bool {
	return err != nil && containsAny(err.Error(), "database is locked", "SQLITE_BUSY", "database is busy")
}

// RetryPolicy controls how busy or locked databases are retried.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy retries three times starting at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// do calls fn until it succeeds, fails with a non-retryable error or the
// retries run out.
func (p RetryPolicy) do(ctx context.Context, fn func() error) error {
	delay := p.InitialDelay
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * p.BackoffFactor)
			if delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
		if err = fn(); !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("gave up after %d retries: %w", p.MaxRetries, err)
}
