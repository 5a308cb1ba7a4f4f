// Package query provides read-only searches, orderings and classifications
// over a snapshot of events. Functions never modify their input and always
// return fresh slices.
package query

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/example/resource-calendar/internal/scheduler"
)

// Unbounded disables the upper limit of ByResourceCount.
const Unbounded = -1

func filter(events []scheduler.Event, keep func(scheduler.Event) bool) []scheduler.Event {
	out := make([]scheduler.Event, 0, len(events))
	for _, event := range events {
		if keep(event) {
			out = append(out, event.Clone())
		}
	}
	return out
}

func contains(haystack, needle string, folder cases.Caser) bool {
	return strings.Contains(folder.String(haystack), folder.String(needle))
}

// ByNameSubstring returns the events whose name contains text, ignoring case.
// An empty text matches everything.
func ByNameSubstring(events []scheduler.Event, text string) []scheduler.Event {
	if text == "" {
		return scheduler.CloneEvents(events)
	}
	folder := cases.Fold()
	return filter(events, func(e scheduler.Event) bool {
		return contains(e.Name, text, folder)
	})
}

// ByResource returns the events holding a resource whose name contains name,
// ignoring case. Each event appears at most once.
func ByResource(events []scheduler.Event, name string) []scheduler.Event {
	if name == "" {
		return scheduler.CloneEvents(events)
	}
	folder := cases.Fold()
	return filter(events, func(e scheduler.Event) bool {
		return slices.ContainsFunc(e.Resources, func(resource string) bool {
			return contains(resource, name, folder)
		})
	})
}

// ByDate returns the events active on date, bounds included. An empty date
// returns every event; an unparsable one is an error.
func ByDate(events []scheduler.Event, date string) ([]scheduler.Event, error) {
	if strings.TrimSpace(date) == "" {
		return scheduler.CloneEvents(events), nil
	}
	day, err := scheduler.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return filter(events, func(e scheduler.Event) bool {
		return activeOn(e, day)
	}), nil
}

// ByDateRange returns the events whose interval overlaps [from, to].
func ByDateRange(events []scheduler.Event, from, to string) ([]scheduler.Event, error) {
	lo, err := scheduler.ParseDate(from)
	if err != nil {
		return nil, err
	}
	hi, err := scheduler.ParseDate(to)
	if err != nil {
		return nil, err
	}
	return filter(events, func(e scheduler.Event) bool {
		start, end, ok := e.Interval()
		return ok && !start.After(hi) && !end.Before(lo)
	}), nil
}

// SortByDate orders events by start date. Unparsable starts sort as the
// earliest date. Equal keys keep their input order.
func SortByDate(events []scheduler.Event, ascending bool) []scheduler.Event {
	out := scheduler.CloneEvents(events)
	key := func(e scheduler.Event) time.Time {
		start, err := scheduler.ParseDate(e.Start)
		if err != nil {
			return time.Time{}
		}
		return start
	}
	slices.SortStableFunc(out, func(a, b scheduler.Event) int {
		c := key(a).Compare(key(b))
		if !ascending {
			c = -c
		}
		return c
	})
	return out
}

// SortByName orders events by case-folded name. Equal keys keep their input
// order.
func SortByName(events []scheduler.Event, ascending bool) []scheduler.Event {
	out := scheduler.CloneEvents(events)
	folder := cases.Fold()
	slices.SortStableFunc(out, func(a, b scheduler.Event) int {
		c := strings.Compare(folder.String(a.Name), folder.String(b.Name))
		if !ascending {
			c = -c
		}
		return c
	})
	return out
}

// Upcoming returns the events starting between today and today+days
// inclusive, nearest first.
func Upcoming(events []scheduler.Event, today time.Time, days int) []scheduler.Event {
	today = scheduler.Day(today)
	type candidate struct {
		event scheduler.Event
		until int
	}
	var found []candidate
	for _, event := range events {
		start, err := scheduler.ParseDate(event.Start)
		if err != nil {
			continue
		}
		until := scheduler.DaysBetween(today, start)
		if until >= 0 && until <= days {
			found = append(found, candidate{event: event.Clone(), until: until})
		}
	}
	slices.SortStableFunc(found, func(a, b candidate) int {
		return a.until - b.until
	})

	out := make([]scheduler.Event, 0, len(found))
	for _, c := range found {
		out = append(out, c.event)
	}
	return out
}

// Past returns the events that ended before today.
func Past(events []scheduler.Event, today time.Time) []scheduler.Event {
	today = scheduler.Day(today)
	return filter(events, func(e scheduler.Event) bool {
		end, err := scheduler.ParseDate(e.End)
		return err == nil && end.Before(today)
	})
}

// Ongoing returns the events active today.
func Ongoing(events []scheduler.Event, today time.Time) []scheduler.Event {
	today = scheduler.Day(today)
	return filter(events, func(e scheduler.Event) bool {
		return activeOn(e, today)
	})
}

// WithoutResources returns the events holding no resource.
func WithoutResources(events []scheduler.Event) []scheduler.Event {
	return filter(events, func(e scheduler.Event) bool {
		return !e.HasResources()
	})
}

// ByResourceCount returns the events holding between min and max resources.
// A max of Unbounded removes the upper limit.
func ByResourceCount(events []scheduler.Event, min, max int) []scheduler.Event {
	return filter(events, func(e scheduler.Event) bool {
		n := len(e.Resources)
		return n >= min && (max == Unbounded || n <= max)
	})
}

func activeOn(e scheduler.Event, day time.Time) bool {
	start, end, ok := e.Interval()
	return ok && !day.Before(start) && !day.After(end)
}
