package query

import (
	"slices"
	"time"

	"github.com/example/resource-calendar/internal/scheduler"
)

// DefaultUpcomingDays is the window used by reports when none is given.
const DefaultUpcomingDays = 7

// ResourceUsage is one entry of the usage histogram.
type ResourceUsage struct {
	Resource string `json:"resource"`
	Count    int    `json:"count"`
}

// MonthKey formats the histogram key of t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// CountByMonth counts events per start month. Unparsable starts are skipped.
func CountByMonth(events []scheduler.Event) map[string]int {
	out := make(map[string]int)
	for _, event := range events {
		start, err := scheduler.ParseDate(event.Start)
		if err != nil {
			continue
		}
		out[MonthKey(start)]++
	}
	return out
}

// ResourceUsageHistogram counts events per resource, most used first. Ties
// keep first-seen order.
func ResourceUsageHistogram(events []scheduler.Event) []ResourceUsage {
	index := make(map[string]int)
	out := []ResourceUsage{}
	for _, event := range events {
		for _, resource := range event.Resources {
			i, ok := index[resource]
			if !ok {
				i = len(out)
				index[resource] = i
				out = append(out, ResourceUsage{Resource: resource})
			}
			out[i].Count++
		}
	}
	slices.SortStableFunc(out, func(a, b ResourceUsage) int {
		return b.Count - a.Count
	})
	return out
}

// Report aggregates the figures shown on a dashboard.
type Report struct {
	Today            string          `json:"today"`
	Total            int             `json:"total"`
	Ongoing          int             `json:"ongoing"`
	Upcoming         int             `json:"upcoming"`
	UpcomingDays     int             `json:"upcoming_days"`
	Past             int             `json:"past"`
	WithoutResources int             `json:"without_resources"`
	ResourceUsage    []ResourceUsage `json:"resource_usage"`
	ByMonth          map[string]int  `json:"by_month"`
}

// BuildReport derives a Report from a single snapshot of events. A
// non-positive upcomingDays uses DefaultUpcomingDays.
func BuildReport(events []scheduler.Event, today time.Time, upcomingDays int) Report {
	if upcomingDays <= 0 {
		upcomingDays = DefaultUpcomingDays
	}
	return Report{
		Today:            scheduler.FormatDate(today),
		Total:            len(events),
		Ongoing:          len(Ongoing(events, today)),
		Upcoming:         len(Upcoming(events, today, upcomingDays)),
		UpcomingDays:     upcomingDays,
		Past:             len(Past(events, today)),
		WithoutResources: len(WithoutResources(events)),
		ResourceUsage:    ResourceUsageHistogram(events),
		ByMonth:          CountByMonth(events),
	}
}
