package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/resource-calendar/internal/logging"
	"github.com/example/resource-calendar/internal/persistence/sqlite"
)

// NewArchive opens a migrated snapshot archive in a temporary directory. Ids
// come from an IDGenerator and timestamps from clock, so listings are
// predictable. The archive is closed when the test ends.
func NewArchive(tb testing.TB, clock *Clock, opts ...sqlite.Option) *sqlite.Archive {
	tb.Helper()

	if clock == nil {
		clock = NewClock(ReferenceTime())
	}
	ids := NewIDGenerator("")
	defaults := []sqlite.Option{
		sqlite.WithLogger(logging.Discard()),
		sqlite.WithClock(clock.Now),
		sqlite.WithIDGenerator(ids.Next),
	}

	path := filepath.Join(tb.TempDir(), "archive.db")
	archive, err := sqlite.Open(context.Background(), path, append(defaults, opts...)...)
	if err != nil {
		tb.Fatalf("open archive: %v", err)
	}
	tb.Cleanup(func() {
		if err := archive.Close(); err != nil {
			tb.Errorf("close archive: %v", err)
		}
	})
	return archive
}
