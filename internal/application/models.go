package application

import (
	"log/slog"
	"time"

	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/scheduler"
)

// Options wires the collaborators of an EventStore. When DataDir is set, any
// missing repository is served by a JSON document store in that directory.
type Options struct {
	DataDir string

	Events    persistence.EventRepository
	Resources persistence.ResourceRepository
	Directory persistence.DataDirectory
	Archive   persistence.SnapshotArchive

	Constraints  *scheduler.Constraints
	UpcomingDays int
	Now          func() time.Time
	Logger       *slog.Logger
}

// SortKey selects the ordering applied by EventStore.Sorted.
type SortKey string

const (
	SortByDate SortKey = "date"
	SortByName SortKey = "name"
)

// SearchCriteria combines the query filters. Empty fields are ignored; every
// set field narrows the result further. From and To must be given together.
type SearchCriteria struct {
	Name         string
	Resource     string
	Date         string
	From         string
	To           string
	MinResources int
	MaxResources *int
}

// RestoreResult reports what RestoreSnapshot replaced.
type RestoreResult struct {
	Snapshot persistence.SnapshotInfo `json:"snapshot"`
	Events   int                      `json:"events"`
}
