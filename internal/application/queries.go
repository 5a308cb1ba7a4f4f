package application

import (
	"errors"

	"github.com/example/resource-calendar/internal/query"
	"github.com/example/resource-calendar/internal/scheduler"
)

// dateError turns an unparsable search bound into a ValidationError on field.
func dateError(field string, err error) error {
	var dErr *scheduler.DateError
	if errors.As(err, &dErr) {
		return fieldError(field, dErr.Error())
	}
	return err
}

// ByName returns events whose name contains text, ignoring case.
func (s *EventStore) ByName(text string) []scheduler.Event {
	return query.ByNameSubstring(s.List(), text)
}

// ByResource returns events holding a resource whose name contains text.
func (s *EventStore) ByResource(text string) []scheduler.Event {
	return query.ByResource(s.List(), text)
}

// ByDate returns the events active on date.
func (s *EventStore) ByDate(date string) ([]scheduler.Event, error) {
	events, err := query.ByDate(s.List(), date)
	if err != nil {
		return nil, dateError("date", err)
	}
	return events, nil
}

// ByDateRange returns the events overlapping [from, to].
func (s *EventStore) ByDateRange(from, to string) ([]scheduler.Event, error) {
	if _, err := scheduler.ParseDate(from); err != nil {
		return nil, dateError("from", err)
	}
	events, err := query.ByDateRange(s.List(), from, to)
	if err != nil {
		return nil, dateError("to", err)
	}
	return events, nil
}

// Search applies every filter set in criteria.
func (s *EventStore) Search(criteria SearchCriteria) ([]scheduler.Event, error) {
	events := s.List()
	if criteria.Name != "" {
		events = query.ByNameSubstring(events, criteria.Name)
	}
	if criteria.Resource != "" {
		events = query.ByResource(events, criteria.Resource)
	}
	if criteria.Date != "" {
		var err error
		if events, err = query.ByDate(events, criteria.Date); err != nil {
			return nil, dateError("date", err)
		}
	}
	if criteria.From != "" || criteria.To != "" {
		vErr := &ValidationError{}
		if criteria.From == "" {
			vErr.add("from", "from is required with to")
		}
		if criteria.To == "" {
			vErr.add("to", "to is required with from")
		}
		if vErr.HasErrors() {
			return nil, vErr
		}
		if _, err := scheduler.ParseDate(criteria.From); err != nil {
			return nil, dateError("from", err)
		}
		var err error
		if events, err = query.ByDateRange(events, criteria.From, criteria.To); err != nil {
			return nil, dateError("to", err)
		}
	}
	upper := query.Unbounded
	if criteria.MaxResources != nil {
		upper = *criteria.MaxResources
	}
	if criteria.MinResources != 0 || upper != query.Unbounded {
		if criteria.MinResources < 0 || (upper != query.Unbounded && upper < criteria.MinResources) {
			return nil, fieldError("resources", "invalid resource count range")
		}
		events = query.ByResourceCount(events, criteria.MinResources, upper)
	}
	return events, nil
}

// Sorted returns every event ordered by key.
func (s *EventStore) Sorted(key SortKey, ascending bool) ([]scheduler.Event, error) {
	switch key {
	case SortByDate, "":
		return query.SortByDate(s.List(), ascending), nil
	case SortByName:
		return query.SortByName(s.List(), ascending), nil
	}
	return nil, fieldError("sort", "sort key must be date or name")
}

// Upcoming returns events starting within days from today, nearest first. Zero
// means today only; a negative days uses the configured window.
func (s *EventStore) Upcoming(days int) []scheduler.Event {
	if days < 0 {
		days = s.upcomingDays
	}
	return query.Upcoming(s.List(), s.today(), days)
}

// Past returns events that ended before today.
func (s *EventStore) Past() []scheduler.Event {
	return query.Past(s.List(), s.today())
}

// Ongoing returns events active today.
func (s *EventStore) Ongoing() []scheduler.Event {
	return query.Ongoing(s.List(), s.today())
}

// WithoutResources returns events holding no resource.
func (s *EventStore) WithoutResources() []scheduler.Event {
	return query.WithoutResources(s.List())
}

// ByResourceCount returns events holding between lower and upper resources;
// upper may be query.Unbounded.
func (s *EventStore) ByResourceCount(lower, upper int) []scheduler.Event {
	return query.ByResourceCount(s.List(), lower, upper)
}

// CountByMonth counts events per start month.
func (s *EventStore) CountByMonth() map[string]int {
	return query.CountByMonth(s.List())
}

// ResourceUsage returns the usage histogram.
func (s *EventStore) ResourceUsage() []query.ResourceUsage {
	return query.ResourceUsageHistogram(s.List())
}

// Report builds the dashboard figures from one snapshot.
func (s *EventStore) Report() query.Report {
	return query.BuildReport(s.List(), s.today(), s.upcomingDays)
}
