package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/example/resource-calendar/internal/logging"
	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/scheduler"
	"github.com/example/resource-calendar/internal/testfixtures"
)

type storeHarness struct {
	store *EventStore
	repo  *testfixtures.MemoryRepository
	clock *testfixtures.Clock
}

func newHarness(t *testing.T, constraints *scheduler.Constraints, seed ...scheduler.Event) storeHarness {
	t.Helper()

	repo := testfixtures.NewMemoryRepository(seed, persistence.ResourceDocument{})
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	store, err := Open(context.Background(), Options{
		Events:      repo,
		Resources:   repo,
		Constraints: constraints,
		Now:         clock.NowFunc(),
		Logger:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return storeHarness{store: store, repo: repo, clock: clock}
}

func eventNames(events []scheduler.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func TestEventStore_Add(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("disjoint resources coexist on overlapping dates", func(t *testing.T) {
		h := newHarness(t, nil)
		if _, err := h.store.Add(ctx, testfixtures.Event("Battle", "07/12/2025", "09/12/2025", "legion1")); err != nil {
			t.Fatalf("first add: %v", err)
		}
		if _, err := h.store.Add(ctx, testfixtures.Event("Council", "08/12/2025", "08/12/2025", "senators")); err != nil {
			t.Fatalf("second add: %v", err)
		}
		if h.store.Len() != 2 {
			t.Fatalf("expected two events, got %d", h.store.Len())
		}
	})

	t.Run("shared resource on overlapping dates conflicts", func(t *testing.T) {
		h := newHarness(t, nil)
		if _, err := h.store.Add(ctx, testfixtures.Event("Battle", "07/12/2025", "09/12/2025", "legion1", "centurion")); err != nil {
			t.Fatalf("first add: %v", err)
		}

		_, err := h.store.Add(ctx, testfixtures.Event("Parade", "09/12/2025", "10/12/2025", "eagle", "centurion"))
		var conflict *ResourceConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ResourceConflictError, got %v", err)
		}
		if conflict.Resource != "centurion" || conflict.ConflictingEvent != "Battle" {
			t.Fatalf("unexpected conflict details %+v", conflict)
		}
		if h.store.Len() != 1 {
			t.Fatalf("conflicting event must not be stored")
		}
		if len(h.store.Resources()) != 2 {
			t.Fatalf("conflicting event must not register its resources, got %v", h.store.Resources())
		}
	})

	t.Run("shared resource on separate dates coexists", func(t *testing.T) {
		h := newHarness(t, nil)
		if _, err := h.store.Add(ctx, testfixtures.Event("Battle", "07/12/2025", "07/12/2025", "legion1")); err != nil {
			t.Fatalf("first add: %v", err)
		}
		if _, err := h.store.Add(ctx, testfixtures.Event("Parade", "08/12/2025", "08/12/2025", "legion1")); err != nil {
			t.Fatalf("second add: %v", err)
		}
		if got := h.store.ResourceHolders("legion1"); !reflect.DeepEqual(got, []string{"Battle", "Parade"}) {
			t.Fatalf("expected both holders, got %v", got)
		}
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		h := newHarness(t, nil)
		if _, err := h.store.Add(ctx, testfixtures.Event("Battle", "07/12/2025", "07/12/2025")); err != nil {
			t.Fatalf("first add: %v", err)
		}
		_, err := h.store.Add(ctx, testfixtures.Event(" Battle ", "01/01/2026", "01/01/2026"))
		if !errors.Is(err, ErrDuplicateName) {
			t.Fatalf("expected duplicate error, got %v", err)
		}
	})

	t.Run("invalid fields rejected", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.store.Add(ctx, testfixtures.Event("  ", "2025-12-07", "06/12/2025"))
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "start"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}

		_, err = h.store.Add(ctx, testfixtures.Event("Backwards", "09/12/2025", "07/12/2025"))
		if !errors.As(err, &vErr) || vErr.FieldErrors["end"] == "" {
			t.Fatalf("expected end before start to be rejected, got %v", err)
		}
		if h.repo.EventSaves != 0 {
			t.Fatalf("rejected events must not be written")
		}
	})

	t.Run("event without resources listed as unassigned", func(t *testing.T) {
		h := newHarness(t, nil)
		added, err := h.store.Add(ctx, testfixtures.Event("Reunion", "07/12/2025", "09/12/2025"))
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if added.Resources == nil || len(added.Resources) != 0 {
			t.Fatalf("expected empty resource set, got %#v", added.Resources)
		}
		if got := eventNames(h.store.WithoutResources()); !reflect.DeepEqual(got, []string{"Reunion"}) {
			t.Fatalf("expected Reunion without resources, got %v", got)
		}
	})

	t.Run("constraints enforced", func(t *testing.T) {
		rules := &scheduler.Constraints{}
		rules.Require("ballista", "engineer")
		rules.Exclude("senate", "legion1")
		h := newHarness(t, rules)

		_, err := h.store.Add(ctx, testfixtures.Event("Siege", "07/12/2025", "07/12/2025", "ballista"))
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["resources"] == "" {
			t.Fatalf("expected missing co-requirement to be rejected, got %v", err)
		}
		_, err = h.store.Add(ctx, testfixtures.Event("Coup", "07/12/2025", "07/12/2025", "senate", "legion1"))
		if !errors.As(err, &vErr) {
			t.Fatalf("expected exclusion to be rejected, got %v", err)
		}
		if _, err := h.store.Add(ctx, testfixtures.Event("Siege", "07/12/2025", "07/12/2025", "ballista", "engineer")); err != nil {
			t.Fatalf("valid event rejected: %v", err)
		}
	})
}

func TestEventStore_AddIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, nil)
	boom := errors.New("disk full")

	h.repo.SaveEventsErr = boom
	if _, err := h.store.Add(ctx, testfixtures.Event("Battle", "07/12/2025", "07/12/2025", "legion1")); !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if h.store.Len() != 0 {
		t.Fatalf("failed add must leave memory untouched")
	}
	if len(h.store.Resources()) != 0 {
		t.Fatalf("failed add must not keep registered resources, got %v", h.store.Resources())
	}
	if got := h.repo.StoredResources(); len(got.Registered) != 0 {
		t.Fatalf("resource document must be rolled back, got %v", got.Registered)
	}

	h.repo.SaveEventsErr = nil
	h.repo.SaveResourcesErr = boom
	if _, err := h.store.Add(ctx, testfixtures.Event("Battle", "07/12/2025", "07/12/2025", "legion1")); !errors.Is(err, boom) {
		t.Fatalf("expected resource write error, got %v", err)
	}
	if h.store.Len() != 0 || h.repo.EventSaves != 0 {
		t.Fatalf("events must not be written when the registry write fails")
	}
}

func TestEventStore_Remove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, nil, testfixtures.RomanCampaign()...)

	removed, err := h.store.Remove(ctx, "Battle")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Name != "Battle" {
		t.Fatalf("expected removed Battle, got %v", removed)
	}
	if !h.store.IsResourceAvailable("centurion") {
		t.Fatalf("centurion must be released")
	}
	if got := h.store.ResourceHolders("legion1"); !reflect.DeepEqual(got, []string{"Parade"}) {
		t.Fatalf("expected Parade to keep legion1, got %v", got)
	}

	saves := h.repo.EventSaves
	_, err = h.store.Remove(ctx, "Battle")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if h.repo.EventSaves != saves || h.store.Len() != 3 {
		t.Fatalf("missing event removal must not mutate the store")
	}

	h.repo.SaveEventsErr = errors.New("disk full")
	if _, err := h.store.Remove(ctx, "Parade"); err == nil {
		t.Fatalf("expected write error")
	}
	if _, err := h.store.Get("Parade"); err != nil {
		t.Fatalf("failed remove must keep Parade: %v", err)
	}
	if h.store.IsResourceAvailable("eagle") {
		t.Fatalf("failed remove must keep eagle held")
	}
}

func TestEventStore_ListIsDefensiveCopy(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, testfixtures.RomanCampaign()...)

	listed := h.store.List()
	listed[0].Name = "Changed"
	listed[0].Resources[0] = "changed"

	got, err := h.store.Get("Battle")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Resources[0] != "legion1" {
		t.Fatalf("store mutated through List result: %v", got)
	}
}

func TestEventStore_AttachDetach(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, nil, testfixtures.RomanCampaign()...)

	updated, err := h.store.AttachResource(ctx, "Council", "eagle")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !reflect.DeepEqual(updated.Resources, []string{"senators", "eagle"}) {
		t.Fatalf("unexpected resources %v", updated.Resources)
	}

	_, err = h.store.AttachResource(ctx, "Council", "legion1")
	var conflict *ResourceConflictError
	if !errors.As(err, &conflict) || conflict.ConflictingEvent != "Battle" {
		t.Fatalf("expected conflict with Battle, got %v", err)
	}

	if _, err := h.store.DetachResource(ctx, "Council", "eagle"); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if got := h.store.ResourceHolders("eagle"); !reflect.DeepEqual(got, []string{"Parade"}) {
		t.Fatalf("expected only Parade to hold eagle, got %v", got)
	}

	_, err = h.store.DetachResource(ctx, "Council", "eagle")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error when detaching a missing resource, got %v", err)
	}
	if _, err := h.store.AttachResource(ctx, "Ghost", "eagle"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEventStore_DetachRespectsRequirements(t *testing.T) {
	t.Parallel()

	rules := &scheduler.Constraints{}
	rules.Require("ballista", "engineer")
	h := newHarness(t, rules, testfixtures.Event("Siege", "07/12/2025", "07/12/2025", "ballista", "engineer"))

	if _, err := h.store.DetachResource(context.Background(), "Siege", "engineer"); err == nil {
		t.Fatalf("expected detach to break the co-requirement")
	}
	if got, _ := h.store.Get("Siege"); len(got.Resources) != 2 {
		t.Fatalf("rejected detach must keep resources, got %v", got.Resources)
	}
}

func TestEventStore_LoadRebuildsLedgers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := append(testfixtures.RomanCampaign(), testfixtures.Event("Battle", "01/01/2026", "01/01/2026"))
	repo := testfixtures.NewMemoryRepository(events, testfixtures.ResourceDocument(
		[]string{"armory"},
		"legion1", "Ghost",
	))

	store, err := Open(ctx, Options{Events: repo, Resources: repo, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Len() != 4 {
		t.Fatalf("expected duplicate name to be dropped, got %d events", store.Len())
	}
	if got := store.ResourceHolders("legion1"); !reflect.DeepEqual(got, []string{"Battle", "Parade"}) {
		t.Fatalf("ledger must follow events, got %v", got)
	}
	want := []string{"armory", "legion1", "centurion", "senators", "eagle"}
	if got := store.Resources(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected registry %v", got)
	}

	repo.LoadEventsErr = errors.New("permission denied")
	if _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected load error")
	}
	if store.Len() != 4 {
		t.Fatalf("failed load must keep memory")
	}
}

func TestEventStore_LoadLogsConflictingEvents(t *testing.T) {
	t.Parallel()

	first := testfixtures.NewEvent(testfixtures.WithName("Siege"),
		testfixtures.WithDates("07/12/2025", "09/12/2025"), testfixtures.WithResources("ballista", "engineer"))
	second := testfixtures.NewEvent(testfixtures.WithName("Drill"),
		testfixtures.WithDates("09/12/2025", "09/12/2025"), testfixtures.WithResources("ballista"))
	apart := testfixtures.NewEvent(testfixtures.WithName("Repair"),
		testfixtures.WithDates("12/12/2025", "12/12/2025"), testfixtures.WithResources("ballista"))
	repo := testfixtures.NewMemoryRepository([]scheduler.Event{first, second, apart}, persistence.ResourceDocument{})

	var buf bytes.Buffer
	store, err := Open(context.Background(), Options{
		Events:    repo,
		Resources: repo,
		Logger:    logging.New(&buf, slog.LevelWarn, "json"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Len() != 3 {
		t.Fatalf("conflicting events must still load, got %d", store.Len())
	}
	if got := store.ResourceHolders("ballista"); !reflect.DeepEqual(got, []string{"Siege", "Drill", "Repair"}) {
		t.Fatalf("unexpected holders %v", got)
	}

	out := buf.String()
	if strings.Count(out, "share a resource on overlapping days") != 1 {
		t.Fatalf("expected one conflict warning, got %q", out)
	}
	if !strings.Contains(out, `"event":"Drill"`) || !strings.Contains(out, `"conflicting_event":"Siege"`) ||
		!strings.Contains(out, `"resource":"ballista"`) {
		t.Fatalf("warning lacks conflict details: %q", out)
	}
}

func TestEventStore_UpcomingWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, nil)
	h.clock.SetDate("20/03/2026")

	for _, offset := range []struct {
		name string
		days int
	}{
		{"Yesterday", -1},
		{"Today", 0},
		{"InThree", 3},
		{"InTen", 10},
	} {
		day := h.clock.DaysFromNow(offset.days)
		event := testfixtures.NewEvent(testfixtures.WithName(offset.name), testfixtures.WithDates(day, day))
		if _, err := h.store.Add(ctx, event); err != nil {
			t.Fatalf("add %s: %v", offset.name, err)
		}
	}

	if got := eventNames(h.store.Upcoming(0)); !reflect.DeepEqual(got, []string{"Today"}) {
		t.Fatalf("zero days must mean today only, got %v", got)
	}
	if got := eventNames(h.store.Upcoming(3)); !reflect.DeepEqual(got, []string{"Today", "InThree"}) {
		t.Fatalf("unexpected three day window %v", got)
	}
	if got := eventNames(h.store.Upcoming(-1)); !reflect.DeepEqual(got, []string{"Today", "InThree"}) {
		t.Fatalf("negative days must use the configured window, got %v", got)
	}
	if got := eventNames(h.store.Past()); !reflect.DeepEqual(got, []string{"Yesterday"}) {
		t.Fatalf("unexpected past %v", got)
	}
	onDay, err := h.store.ByDate(h.clock.Today())
	if err != nil {
		t.Fatalf("by date: %v", err)
	}
	if got := eventNames(onDay); !reflect.DeepEqual(got, []string{"Today"}) {
		t.Fatalf("unexpected events on %s: %v", h.clock.Today(), got)
	}
}

func TestEventStore_RegisterResource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, nil)

	added, err := h.store.RegisterResource(ctx, "legion1")
	if err != nil || !added {
		t.Fatalf("expected legion1 registered, got %v, %v", added, err)
	}
	if added, _ := h.store.RegisterResource(ctx, "legion1"); added {
		t.Fatalf("expected second registration to report existing")
	}
	var vErr *ValidationError
	if _, err := h.store.RegisterResource(ctx, " "); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !reflect.DeepEqual(h.store.AvailableResources(), []string{"legion1"}) {
		t.Fatalf("unexpected available resources %v", h.store.AvailableResources())
	}
}

func TestEventStore_SaveAndReopenRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t, nil)
	for _, event := range testfixtures.RomanCampaign() {
		if _, err := h.store.Add(ctx, event); err != nil {
			t.Fatalf("add %s: %v", event.Name, err)
		}
	}
	if err := h.store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := Open(ctx, Options{Events: h.repo, Resources: h.repo, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reflect.DeepEqual(reopened.List(), testfixtures.RomanCampaign()) {
		t.Fatalf("round trip mismatch: %v", reopened.List())
	}
	if !reflect.DeepEqual(reopened.ResourceLedger(), h.store.ResourceLedger()) {
		t.Fatalf("ledger mismatch after reopen")
	}
}

func TestEventStore_Queries(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, testfixtures.RomanCampaign()...)

	if got := eventNames(h.store.Ongoing()); !reflect.DeepEqual(got, []string{"Battle", "Council"}) {
		t.Fatalf("unexpected ongoing %v", got)
	}
	if got := eventNames(h.store.Past()); !reflect.DeepEqual(got, []string{"Meeting"}) {
		t.Fatalf("unexpected past %v", got)
	}
	if got := eventNames(h.store.Upcoming(2)); !reflect.DeepEqual(got, []string{"Battle", "Council"}) {
		t.Fatalf("unexpected upcoming %v", got)
	}

	h.clock.AdvanceDays(3)
	if got := eventNames(h.store.Past()); !reflect.DeepEqual(got, []string{"Battle", "Council", "Meeting"}) {
		t.Fatalf("clock change not honoured, past = %v", got)
	}

	sorted, err := h.store.Sorted(SortByName, true)
	if err != nil {
		t.Fatalf("sorted: %v", err)
	}
	if got := eventNames(sorted); !reflect.DeepEqual(got, []string{"Battle", "Council", "Meeting", "Parade"}) {
		t.Fatalf("unexpected name order %v", got)
	}
	if _, err := h.store.Sorted("size", true); err == nil {
		t.Fatalf("expected unknown sort key to be rejected")
	}

	if _, err := h.store.ByDate("31/02/2025"); err == nil {
		t.Fatalf("expected invalid date to be rejected")
	}
	var vErr *ValidationError
	if _, err := h.store.ByDateRange("01/12/2025", "soon"); !errors.As(err, &vErr) || vErr.FieldErrors["to"] == "" {
		t.Fatalf("expected to-bound validation error, got %v", err)
	}

	if got := h.store.CountByMonth(); !reflect.DeepEqual(got, map[string]int{"2025-12": 4}) {
		t.Fatalf("unexpected month counts %v", got)
	}
	if report := h.store.Report(); report.Total != 4 || report.Today != "10/12/2025" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestEventStore_Search(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, testfixtures.RomanCampaign()...)
	one := 1

	cases := []struct {
		name     string
		criteria SearchCriteria
		want     []string
	}{
		{"empty criteria", SearchCriteria{}, []string{"Battle", "Council", "Parade", "Meeting"}},
		{"name and resource", SearchCriteria{Name: "a", Resource: "LEGION"}, []string{"Battle", "Parade"}},
		{"date", SearchCriteria{Date: "11/12/2025"}, []string{"Parade"}},
		{"range", SearchCriteria{From: "03/12/2025", To: "07/12/2025"}, []string{"Battle", "Council", "Meeting"}},
		{"resource count", SearchCriteria{MinResources: 1, MaxResources: &one}, []string{"Council"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.store.Search(tc.criteria)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if names := eventNames(got); !reflect.DeepEqual(names, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, names)
			}
		})
	}

	if _, err := h.store.Search(SearchCriteria{From: "01/12/2025"}); err == nil {
		t.Fatalf("expected half-open range to be rejected")
	}
}
