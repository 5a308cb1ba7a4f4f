package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/resource-calendar/internal/persistence"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func TestRetryPolicy_RetriesBusyErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy().do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_GivesUp(t *testing.T) {
	t.Parallel()

	calls := 0
	err := fastPolicy().do(context.Background(), func() error {
		calls++
		return errors.New("database is locked")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gave up after 2 retries")
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	boom := errors.New("syntax error")
	calls := 0
	err := fastPolicy().do(context.Background(), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_HonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := fastPolicy()
	policy.InitialDelay = time.Hour
	err := policy.do(ctx, func() error { return errors.New("database is locked") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapError("op", "db", nil))
	assert.ErrorIs(t, mapError("load", "db", sql.ErrNoRows), persistence.ErrNotFound)
	assert.ErrorIs(t, mapError("load", "db", context.Canceled), context.Canceled)

	dup := mapError("insert", "db", errors.New("UNIQUE constraint failed: snapshots.id"))
	assert.ErrorIs(t, dup, persistence.ErrIO)
	assert.Contains(t, dup.Error(), "duplicate record")

	other := mapError("query", "db", errors.New("disk I/O error"))
	assert.ErrorIs(t, other, persistence.ErrIO)
	assert.NotErrorIs(t, other, persistence.ErrNotFound)
}
