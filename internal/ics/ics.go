// Package ics converts events to and from iCalendar. Every event becomes an
// all-day VEVENT whose DTEND is the day after its last day.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/example/resource-calendar/internal/scheduler"
)

// ProductID identifies the producer in exported calendars.
const ProductID = "-//resource-calendar//calendar 1.0//EN"

const dateLayout = "20060102"

var uidNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("resource-calendar"))

// UID returns the stable identifier exported for an event name.
func UID(name string) string {
	return uuid.NewSHA1(uidNamespace, []byte(name)).String()
}

type options struct {
	stamp time.Time
}

// Option configures Encode.
type Option func(*options)

// WithStamp sets DTSTAMP on every exported event.
func WithStamp(t time.Time) Option {
	return func(o *options) {
		o.stamp = t
	}
}

// Encode writes events as a published calendar. Events whose dates do not
// parse are left out; the number written is returned.
func Encode(w io.Writer, events []scheduler.Event, opts ...Option) (int, error) {
	o := options{stamp: time.Now()}
	for _, opt := range opts {
		opt(&o)
	}

	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	written := 0
	for _, event := range events {
		start, end, ok := event.Interval()
		if !ok {
			continue
		}
		vevent := cal.AddEvent(UID(event.Name))
		vevent.SetDtStampTime(o.stamp.UTC())
		vevent.SetSummary(event.Name)
		vevent.SetAllDayStartAt(start)
		vevent.SetAllDayEndAt(end.AddDate(0, 0, 1))
		for _, resource := range event.Resources {
			vevent.AddProperty(ical.ComponentPropertyResources, resource)
		}
		written++
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return 0, fmt.Errorf("ics: write calendar: %w", err)
	}
	return written, nil
}

// SkippedEvent describes a VEVENT Decode could not convert.
type SkippedEvent struct {
	UID    string
	Reason string
}

// DecodeError lists the VEVENTs left out by Decode.
type DecodeError struct {
	Skipped []SkippedEvent
}

func (e *DecodeError) Error() string {
	parts := make([]string, 0, len(e.Skipped))
	for _, s := range e.Skipped {
		parts = append(parts, fmt.Sprintf("%s: %s", s.UID, s.Reason))
	}
	return fmt.Sprintf("ics: %d event(s) skipped: %s", len(e.Skipped), strings.Join(parts, "; "))
}

// Decode reads the VEVENTs of a calendar. Date-time values keep only their
// date; an exclusive all-day DTEND is moved back one day. Each RESOURCES
// property holds one resource name. When some VEVENTs
// cannot be converted the others are still returned together with a
// *DecodeError.
func Decode(r io.Reader) ([]scheduler.Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	events := []scheduler.Event{}
	var skipped []SkippedEvent
	for _, vevent := range cal.Events() {
		event, err := decodeEvent(vevent)
		if err != nil {
			uid := ""
			if p := vevent.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
				uid = p.Value
			}
			skipped = append(skipped, SkippedEvent{UID: uid, Reason: err.Error()})
			continue
		}
		events = append(events, event)
	}
	if len(skipped) > 0 {
		return events, &DecodeError{Skipped: skipped}
	}
	return events, nil
}

func decodeEvent(vevent *ical.VEvent) (scheduler.Event, error) {
	summary := vevent.GetProperty(ical.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return scheduler.Event{}, errors.New("missing SUMMARY")
	}
	startProp := vevent.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return scheduler.Event{}, errors.New("missing DTSTART")
	}
	start, _, err := parseDay(startProp.Value)
	if err != nil {
		return scheduler.Event{}, fmt.Errorf("DTSTART: %w", err)
	}

	end := start
	if endProp := vevent.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		day, dateOnly, err := parseDay(endProp.Value)
		if err != nil {
			return scheduler.Event{}, fmt.Errorf("DTEND: %w", err)
		}
		if dateOnly {
			day = day.AddDate(0, 0, -1)
		}
		if day.After(start) {
			end = day
		}
	}

	var resources []string
	for _, p := range vevent.GetProperties(ical.ComponentPropertyResources) {
		resources = append(resources, p.Value)
	}
	return scheduler.NewEvent(strings.TrimSpace(summary.Value), start, end, resources...), nil
}

// parseDay reads the date part of a DATE or DATE-TIME value.
func parseDay(value string) (day time.Time, dateOnly bool, err error) {
	value = strings.TrimSpace(value)
	if len(value) < len(dateLayout) {
		return time.Time{}, false, fmt.Errorf("invalid date %q", value)
	}
	day, err = time.Parse(dateLayout, value[:len(dateLayout)])
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q", value)
	}
	return day, !strings.Contains(value, "T"), nil
}
