package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/resource-calendar/internal/scheduler"
	"github.com/example/resource-calendar/internal/testfixtures"
)

func names(events []scheduler.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

var ev = testfixtures.Event

func TestByNameSubstring(t *testing.T) {
	events := []scheduler.Event{
		ev("Batalla de Zama", "07/12/2025", "07/12/2025"),
		ev("Reunión del SENADO", "08/12/2025", "08/12/2025"),
		ev("Desfile", "09/12/2025", "09/12/2025"),
	}

	assert.Equal(t, []string{"Batalla de Zama"}, names(ByNameSubstring(events, "zAMA")))
	assert.Equal(t, []string{"Reunión del SENADO"}, names(ByNameSubstring(events, "senado")))
	assert.Equal(t, []string{"Reunión del SENADO"}, names(ByNameSubstring(events, "REUNIÓN")))
	assert.Len(t, ByNameSubstring(events, ""), 3)
	assert.Empty(t, ByNameSubstring(events, "triumph"))
}

func TestByResourceMatchesOnce(t *testing.T) {
	events := []scheduler.Event{
		ev("Battle", "07/12/2025", "07/12/2025", "legion1", "legion2"),
		ev("Council", "07/12/2025", "07/12/2025", "senators"),
	}

	got := ByResource(events, "LEGION")
	assert.Equal(t, []string{"Battle"}, names(got))
}

func TestByDate(t *testing.T) {
	events := []scheduler.Event{
		ev("Siege", "05/12/2025", "09/12/2025"),
		ev("Feast", "10/12/2025", "10/12/2025"),
		ev("Broken", "xx/12/2025", "10/12/2025"),
	}

	got, err := ByDate(events, "09/12/2025")
	require.NoError(t, err)
	assert.Equal(t, []string{"Siege"}, names(got))

	got, err = ByDate(events, "05/12/2025")
	require.NoError(t, err)
	assert.Equal(t, []string{"Siege"}, names(got))

	got, err = ByDate(events, "")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = ByDate(events, "2025-12-09")
	assert.ErrorIs(t, err, scheduler.ErrInvalidDate)
}

func TestByDateRange(t *testing.T) {
	events := []scheduler.Event{
		ev("Early", "01/12/2025", "03/12/2025"),
		ev("Edge", "03/12/2025", "04/12/2025"),
		ev("Late", "10/12/2025", "12/12/2025"),
	}

	got, err := ByDateRange(events, "04/12/2025", "10/12/2025")
	require.NoError(t, err)
	assert.Equal(t, []string{"Edge", "Late"}, names(got))

	_, err = ByDateRange(events, "04/12/2025", "tomorrow")
	var dateErr *scheduler.DateError
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, "tomorrow", dateErr.Value)
}

func TestSortByDate(t *testing.T) {
	events := []scheduler.Event{
		ev("Second", "08/12/2025", "08/12/2025"),
		ev("First", "07/12/2025", "07/12/2025"),
	}

	assert.Equal(t, []string{"First", "Second"}, names(SortByDate(events, true)))
	assert.Equal(t, []string{"Second", "First"}, names(SortByDate(events, false)))
	assert.Equal(t, []string{"Second", "First"}, names(events), "input must stay untouched")
}

func TestSortByDateStableWithUnparsable(t *testing.T) {
	events := []scheduler.Event{
		ev("B", "07/12/2025", "07/12/2025"),
		ev("Unknown", "someday", "someday"),
		ev("A", "07/12/2025", "07/12/2025"),
	}

	assert.Equal(t, []string{"Unknown", "B", "A"}, names(SortByDate(events, true)))
	assert.Equal(t, []string{"B", "A", "Unknown"}, names(SortByDate(events, false)))
}

func TestSortByName(t *testing.T) {
	events := []scheduler.Event{
		ev("parade", "07/12/2025", "07/12/2025"),
		ev("Battle", "07/12/2025", "07/12/2025"),
		ev("council", "07/12/2025", "07/12/2025"),
	}

	assert.Equal(t, []string{"Battle", "council", "parade"}, names(SortByName(events, true)))
	assert.Equal(t, []string{"parade", "council", "Battle"}, names(SortByName(events, false)))
}

func TestTimeRelativeQueries(t *testing.T) {
	today := testfixtures.ReferenceTime()
	events := []scheduler.Event{
		ev("Yesterday", "06/12/2025", "06/12/2025"),
		ev("EndsToday", "01/12/2025", "07/12/2025"),
		ev("InWeek", "14/12/2025", "14/12/2025"),
		ev("Tomorrow", "08/12/2025", "09/12/2025"),
		ev("StartsToday", "07/12/2025", "10/12/2025"),
		ev("Later", "15/12/2025", "15/12/2025"),
		ev("Broken", "??", "??"),
	}

	assert.Equal(t, []string{"Yesterday"}, names(Past(events, today)))
	assert.Equal(t, []string{"EndsToday", "StartsToday"}, names(Ongoing(events, today)))
	assert.Equal(t, []string{"StartsToday", "Tomorrow", "InWeek"}, names(Upcoming(events, today, 7)))
	assert.Equal(t, []string{"StartsToday"}, names(Upcoming(events, today, 0)))
}

func TestWithoutResourcesAndCounts(t *testing.T) {
	events := []scheduler.Event{
		ev("Reunion", "07/12/2025", "09/12/2025"),
		ev("Battle", "07/12/2025", "07/12/2025", "legion1", "centurion"),
		ev("Council", "08/12/2025", "08/12/2025", "senators"),
	}

	assert.Equal(t, []string{"Reunion"}, names(WithoutResources(events)))
	assert.Equal(t, []string{"Battle", "Council"}, names(ByResourceCount(events, 1, Unbounded)))
	assert.Equal(t, []string{"Reunion", "Council"}, names(ByResourceCount(events, 0, 1)))
	assert.Empty(t, ByResourceCount(events, 3, Unbounded))
}

func TestCountByMonth(t *testing.T) {
	events := []scheduler.Event{
		ev("A", "07/12/2025", "07/12/2025"),
		ev("B", "15/12/2025", "16/12/2025"),
	}
	assert.Equal(t, map[string]int{"2025-12": 2}, CountByMonth(events))

	events = append(events, ev("C", "bad", "bad"), ev("D", "02/01/2026", "02/01/2026"))
	assert.Equal(t, map[string]int{"2025-12": 2, "2026-01": 1}, CountByMonth(events))
}

func TestResourceUsageHistogram(t *testing.T) {
	events := []scheduler.Event{
		ev("Battle", "07/12/2025", "07/12/2025", "centurion", "legion1"),
		ev("Parade", "10/12/2025", "10/12/2025", "legion1", "eagle"),
		ev("Triumph", "20/12/2025", "20/12/2025", "eagle", "legion1"),
	}

	assert.Equal(t, []ResourceUsage{
		{Resource: "legion1", Count: 3},
		{Resource: "eagle", Count: 2},
		{Resource: "centurion", Count: 1},
	}, ResourceUsageHistogram(events))
	assert.NotNil(t, ResourceUsageHistogram(nil))
}

func TestBuildReport(t *testing.T) {
	report := BuildReport(testfixtures.RomanCampaign(), testfixtures.ReferenceTime(), 0)

	assert.Equal(t, Report{
		Today:            "07/12/2025",
		Total:            4,
		Ongoing:          2,
		Upcoming:         3,
		UpcomingDays:     DefaultUpcomingDays,
		Past:             1,
		WithoutResources: 1,
		ResourceUsage: []ResourceUsage{
			{Resource: "legion1", Count: 2},
			{Resource: "centurion", Count: 1},
			{Resource: "senators", Count: 1},
			{Resource: "eagle", Count: 1},
		},
		ByMonth: map[string]int{"2025-12": 4},
	}, report)
}

func TestResultsDoNotAliasInput(t *testing.T) {
	events := []scheduler.Event{ev("Battle", "07/12/2025", "07/12/2025", "legion1")}

	got := ByResource(events, "legion")
	got[0].Resources[0] = "mutated"

	assert.Equal(t, "legion1", events[0].Resources[0])
}
