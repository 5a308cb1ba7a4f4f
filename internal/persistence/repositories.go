package persistence

import (
	"context"

	"github.com/example/resource-calendar/internal/scheduler"
)

// EventRepository stores the full event list as one document.
type EventRepository interface {
	SaveEvents(ctx context.Context, events []scheduler.Event) error
	LoadEvents(ctx context.Context) ([]scheduler.Event, error)
}

// ResourceRepository stores the registry document.
type ResourceRepository interface {
	SaveResources(ctx context.Context, doc ResourceDocument) error
	LoadResources(ctx context.Context) (ResourceDocument, error)
}

// DataDirectory exposes maintenance operations over the stored documents.
type DataDirectory interface {
	Export(ctx context.Context, destination string) ([]string, error)
	Import(ctx context.Context, source string) ([]string, error)
	Wipe(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
}

// SnapshotArchive keeps point-in-time copies of both documents.
type SnapshotArchive interface {
	CreateSnapshot(ctx context.Context, label string, events []scheduler.Event, resources ResourceDocument) (SnapshotInfo, error)
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
	LoadSnapshot(ctx context.Context, id string) (Snapshot, error)
}
