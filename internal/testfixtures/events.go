package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/scheduler"
)

var eventCounter uint64

var referenceTime = time.Date(2025, time.December, 7, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline instant used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// EventOption configures a generated event.
type EventOption func(*scheduler.Event)

// NewEvent returns a deterministic single-day event on the reference day with
// a unique name. Options override any field.
func NewEvent(opts ...EventOption) scheduler.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	day := scheduler.FormatDate(referenceTime)
	event := scheduler.Event{
		Name:      fmt.Sprintf("Event %03d", idx),
		Start:     day,
		End:       day,
		Resources: []string{},
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithName overrides the event name.
func WithName(name string) EventOption {
	return func(e *scheduler.Event) {
		e.Name = name
	}
}

// WithDates overrides both bounds using DD/MM/YYYY text.
func WithDates(start, end string) EventOption {
	return func(e *scheduler.Event) {
		e.Start = start
		e.End = end
	}
}

// WithResources replaces the resource set.
func WithResources(resources ...string) EventOption {
	return func(e *scheduler.Event) {
		e.Resources = scheduler.NormalizeResources(resources)
	}
}

// Event builds an event from literal values.
func Event(name, start, end string, resources ...string) scheduler.Event {
	return scheduler.Event{
		Name:      name,
		Start:     start,
		End:       end,
		Resources: scheduler.NormalizeResources(resources),
	}
}

// RomanCampaign returns a small, valid and conflict-free set of events around
// the reference day.
func RomanCampaign() []scheduler.Event {
	return []scheduler.Event{
		Event("Battle", "07/12/2025", "07/12/2025", "legion1", "centurion"),
		Event("Council", "07/12/2025", "07/12/2025", "senators"),
		Event("Parade", "10/12/2025", "11/12/2025", "legion1", "eagle"),
		Event("Meeting", "01/12/2025", "03/12/2025"),
	}
}

// ResourceDocument builds a registry document from registered names and
// holder pairs given as resource, event, resource, event...
func ResourceDocument(registered []string, holders ...string) persistence.ResourceDocument {
	doc := persistence.ResourceDocument{Registered: registered}.Clone()
	for i := 0; i+1 < len(holders); i += 2 {
		doc.Usage[holders[i]] = append(doc.Usage[holders[i]], holders[i+1])
	}
	return doc
}
