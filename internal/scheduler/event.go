package scheduler

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Event is a named, date-bounded activity optionally holding a set of resources.
type Event struct {
	Name      string
	Start     string
	End       string
	Resources []string
}

// NewEvent builds an event spanning the calendar days of start and end.
func NewEvent(name string, start, end time.Time, resources ...string) Event {
	return Event{
		Name:      name,
		Start:     FormatDate(start),
		End:       FormatDate(end),
		Resources: NormalizeResources(resources),
	}
}

// Interval parses the event bounds. ok is false when either bound is not a
// valid date.
func (e Event) Interval() (start, end time.Time, ok bool) {
	var err error
	if start, err = ParseDate(e.Start); err != nil {
		return time.Time{}, time.Time{}, false
	}
	if end, err = ParseDate(e.End); err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// Overlaps reports whether both events have valid intervals sharing at least
// one day.
func (e Event) Overlaps(other Event) bool {
	aStart, aEnd, ok := e.Interval()
	if !ok {
		return false
	}
	bStart, bEnd, ok := other.Interval()
	if !ok {
		return false
	}
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// HasResource reports whether the event holds the named resource.
func (e Event) HasResource(name string) bool {
	return slices.Contains(e.Resources, name)
}

// HasResources reports whether at least one resource is assigned.
func (e Event) HasResources() bool {
	return len(e.Resources) > 0
}

// WithResource returns a copy holding name as well. The second result is false
// when the resource was already present.
func (e Event) WithResource(name string) (Event, bool) {
	clone := e.Clone()
	name = strings.TrimSpace(name)
	if name == "" || clone.HasResource(name) {
		return clone, false
	}
	clone.Resources = append(clone.Resources, name)
	return clone, true
}

// WithoutResource returns a copy that no longer holds name. The second result
// is false when the resource was not present.
func (e Event) WithoutResource(name string) (Event, bool) {
	clone := e.Clone()
	idx := slices.Index(clone.Resources, name)
	if idx < 0 {
		return clone, false
	}
	clone.Resources = slices.Delete(clone.Resources, idx, idx+1)
	return clone, true
}

// Clone returns a deep copy that does not share the resource slice.
func (e Event) Clone() Event {
	clone := e
	clone.Resources = make([]string, len(e.Resources))
	copy(clone.Resources, e.Resources)
	return clone
}

// String renders the event the way list views show it.
func (e Event) String() string {
	if len(e.Resources) == 0 {
		return fmt.Sprintf("%s (%s - %s)", e.Name, e.Start, e.End)
	}
	return fmt.Sprintf("%s (%s - %s, resources: %d)", e.Name, e.Start, e.End, len(e.Resources))
}

// NormalizeResources trims names, drops blanks and duplicates, and keeps the
// first-seen order. The result is never nil.
func NormalizeResources(resources []string) []string {
	out := make([]string, 0, len(resources))
	for _, name := range resources {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(out, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// CloneEvents deep copies a slice of events.
func CloneEvents(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	for i, event := range events {
		out[i] = event.Clone()
	}
	return out
}
