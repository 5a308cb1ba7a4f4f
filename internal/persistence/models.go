package persistence

import (
	"time"

	"github.com/example/resource-calendar/internal/scheduler"
)

// Document file names inside a data directory.
const (
	EventsFile    = "events.json"
	ResourcesFile = "recursos.json"
)

// DocumentFiles lists the documents managed by export, import and wipe, in
// the order they are processed.
var DocumentFiles = []string{EventsFile, ResourcesFile}

// EventRecord is the persisted form of an event.
type EventRecord struct {
	Name      string   `json:"name"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Resources []string `json:"resources"`
}

// ResourceDocument is the persisted registry state. Registered lists every
// known resource in registration order; Usage maps a resource to the events
// currently holding it.
type ResourceDocument struct {
	Registered []string            `json:"disponibles"`
	Usage      map[string][]string `json:"usados"`
}

// FileStat describes one file of the data directory.
type FileStat struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	SizeKB    float64   `json:"size_kb"`
	Size      string    `json:"size"`
	Digest    string    `json:"digest"`
	Modified  time.Time `json:"modified"`
}

// Stats summarises the data directory for display.
type Stats struct {
	Directory string     `json:"directory"`
	Exists    bool       `json:"exists"`
	Files     []FileStat `json:"files"`
}

// Snapshot is a point-in-time copy of both documents kept by an archive.
type Snapshot struct {
	ID        string
	Label     string
	CreatedAt time.Time
	Digest    string
	Events    []scheduler.Event
	Resources ResourceDocument
}

// SnapshotInfo is the listing form of a Snapshot.
type SnapshotInfo struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	CreatedAt  time.Time `json:"created_at"`
	Digest     string    `json:"digest"`
	EventCount int       `json:"event_count"`
}

// ToRecord converts a domain event to its persisted form.
func ToRecord(event scheduler.Event) EventRecord {
	resources := make([]string, len(event.Resources))
	copy(resources, event.Resources)
	return EventRecord{
		Name:      event.Name,
		Start:     event.Start,
		End:       event.End,
		Resources: resources,
	}
}

// FromRecord converts a persisted record to a domain event.
func FromRecord(record EventRecord) scheduler.Event {
	return scheduler.Event{
		Name:      record.Name,
		Start:     record.Start,
		End:       record.End,
		Resources: scheduler.NormalizeResources(record.Resources),
	}
}

// ToRecords converts events preserving order. The result is never nil so the
// document encodes as an empty array.
func ToRecords(events []scheduler.Event) []EventRecord {
	records := make([]EventRecord, 0, len(events))
	for _, event := range events {
		records = append(records, ToRecord(event))
	}
	return records
}

// FromRecords converts records preserving order.
func FromRecords(records []EventRecord) []scheduler.Event {
	events := make([]scheduler.Event, 0, len(records))
	for _, record := range records {
		events = append(events, FromRecord(record))
	}
	return events
}

// Clone deep copies the document and guarantees non-nil collections.
func (d ResourceDocument) Clone() ResourceDocument {
	out := ResourceDocument{
		Registered: make([]string, len(d.Registered)),
		Usage:      make(map[string][]string, len(d.Usage)),
	}
	copy(out.Registered, d.Registered)
	for name, holders := range d.Usage {
		copied := make([]string, len(holders))
		copy(copied, holders)
		out.Usage[name] = copied
	}
	return out
}
