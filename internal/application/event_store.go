package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/persistence/jsonfile"
	"github.com/example/resource-calendar/internal/persistence/schema"
	"github.com/example/resource-calendar/internal/query"
	"github.com/example/resource-calendar/internal/registry"
	"github.com/example/resource-calendar/internal/scheduler"
)

// EventStore owns the event list and the resource registry of one data
// directory. Operations are serialized; each one either applies completely,
// including its writes, or leaves memory and documents as they were.
type EventStore struct {
	mu sync.Mutex

	events   []scheduler.Event
	registry *registry.Registry

	repo        persistence.EventRepository
	resources   persistence.ResourceRepository
	directory   persistence.DataDirectory
	archive     persistence.SnapshotArchive
	constraints *scheduler.Constraints

	upcomingDays int
	now          func() time.Time
	logger       *slog.Logger
}

// Open builds a store from opts and loads the persisted documents.
func Open(ctx context.Context, opts Options) (*EventStore, error) {
	if opts.DataDir != "" && (opts.Events == nil || opts.Resources == nil || opts.Directory == nil) {
		validator, err := schema.New()
		if err != nil {
			return nil, err
		}
		files, err := jsonfile.Open(opts.DataDir,
			jsonfile.WithLogger(opts.Logger),
			jsonfile.WithValidator(validator),
		)
		if err != nil {
			return nil, err
		}
		if opts.Events == nil {
			opts.Events = files
		}
		if opts.Resources == nil {
			opts.Resources = files
		}
		if opts.Directory == nil {
			opts.Directory = files
		}
	}

	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// New builds an empty store without loading anything.
func New(opts Options) (*EventStore, error) {
	if opts.Events == nil || opts.Resources == nil {
		return nil, fmt.Errorf("%w: event and resource repositories are required", ErrNotConfigured)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.UpcomingDays <= 0 {
		opts.UpcomingDays = query.DefaultUpcomingDays
	}
	logger := defaultLogger(opts.Logger)
	return &EventStore{
		events:       []scheduler.Event{},
		registry:     registry.New(opts.Resources, registry.WithLogger(logger)),
		repo:         opts.Events,
		resources:    opts.Resources,
		directory:    opts.Directory,
		archive:      opts.Archive,
		constraints:  opts.Constraints,
		upcomingDays: opts.UpcomingDays,
		now:          opts.Now,
		logger:       logger,
	}, nil
}

func (s *EventStore) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventStore", operation, attrs...)
}

// Add validates event and inserts it, acquiring its resources.
func (s *EventStore) Add(ctx context.Context, event scheduler.Event) (added scheduler.Event, err error) {
	logger := s.loggerWith(ctx, "Add", "event", event.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resources", len(added.Resources)).InfoContext(ctx, "event added")
	}()

	candidate, vErr := normalizeEvent(event)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(candidate.Name) >= 0 {
		err = &DuplicateNameError{Name: candidate.Name}
		return
	}
	if err = s.admit(candidate); err != nil {
		return
	}

	next := append(scheduler.CloneEvents(s.events), candidate)
	err = s.commit(ctx, next, func() error {
		return s.registry.AcquireAll(ctx, candidate.Resources, candidate.Name)
	})
	if err != nil {
		return
	}
	added = candidate.Clone()
	return
}

// Remove deletes the named event and releases its resources.
func (s *EventStore) Remove(ctx context.Context, name string) (removed scheduler.Event, err error) {
	name = strings.TrimSpace(name)
	logger := s.loggerWith(ctx, "Remove", "event", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event removed")
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(name)
	if idx < 0 {
		err = &NotFoundError{Name: name}
		return
	}
	target := s.events[idx]

	next := slices.Delete(scheduler.CloneEvents(s.events), idx, idx+1)
	err = s.commit(ctx, next, func() error {
		return s.registry.ReleaseAll(ctx, target.Resources, target.Name)
	})
	if err != nil {
		return
	}
	removed = target.Clone()
	return
}

// Get returns the named event.
func (s *EventStore) Get(name string) (scheduler.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	idx := s.indexOf(name)
	if idx < 0 {
		return scheduler.Event{}, &NotFoundError{Name: name}
	}
	return s.events[idx].Clone(), nil
}

// List returns a copy of every event in insertion order.
func (s *EventStore) List() []scheduler.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Len returns the number of events.
func (s *EventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// AttachResource gives resource to an existing event under the same rules as
// Add. Attaching a resource the event already holds changes nothing.
func (s *EventStore) AttachResource(ctx context.Context, eventName, resource string) (updated scheduler.Event, err error) {
	eventName = strings.TrimSpace(eventName)
	resource = strings.TrimSpace(resource)
	logger := s.loggerWith(ctx, "AttachResource", "event", eventName, "resource", resource)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to attach resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource attached")
	}()

	if resource == "" {
		err = fieldError("resource", "resource name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(eventName)
	if idx < 0 {
		err = &NotFoundError{Name: eventName}
		return
	}
	candidate, changed := s.events[idx].WithResource(resource)
	if !changed {
		updated = candidate
		return
	}
	if err = s.admit(candidate); err != nil {
		return
	}

	next := scheduler.CloneEvents(s.events)
	next[idx] = candidate
	err = s.commit(ctx, next, func() error {
		return s.registry.Acquire(ctx, resource, candidate.Name)
	})
	if err != nil {
		return
	}
	updated = candidate.Clone()
	return
}

// DetachResource takes resource away from an existing event. The remaining
// resource set must still satisfy the constraints.
func (s *EventStore) DetachResource(ctx context.Context, eventName, resource string) (updated scheduler.Event, err error) {
	eventName = strings.TrimSpace(eventName)
	resource = strings.TrimSpace(resource)
	logger := s.loggerWith(ctx, "DetachResource", "event", eventName, "resource", resource)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to detach resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource detached")
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(eventName)
	if idx < 0 {
		err = &NotFoundError{Name: eventName}
		return
	}
	candidate, changed := s.events[idx].WithoutResource(resource)
	if !changed {
		err = fieldError("resource", fmt.Sprintf("event does not hold %q", resource))
		return
	}
	if ruleErr := s.constraints.Validate(candidate); ruleErr != nil {
		err = fieldError("resources", ruleErr.Error())
		return
	}

	next := scheduler.CloneEvents(s.events)
	next[idx] = candidate
	err = s.commit(ctx, next, func() error {
		return s.registry.Release(ctx, resource, candidate.Name)
	})
	if err != nil {
		return
	}
	updated = candidate.Clone()
	return
}

// Load replaces memory with the persisted documents and returns the number of
// events loaded. Ledgers are rebuilt from the events.
func (s *EventStore) Load(ctx context.Context) (count int, err error) {
	logger := s.loggerWith(ctx, "Load")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load data", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("events", count).InfoContext(ctx, "data loaded")
	}()

	events, err := s.repo.LoadEvents(ctx)
	if err != nil {
		return 0, err
	}
	doc, err := s.resources.LoadResources(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.replace(ctx, events, doc)
	return len(s.events), nil
}

// Save writes both documents from memory.
func (s *EventStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveEvents(ctx, s.events); err != nil {
		return err
	}
	return s.registry.Save(ctx)
}

// RegisterResource adds a resource to the registry. It reports false when the
// resource was already known.
func (s *EventStore) RegisterResource(ctx context.Context, name string) (bool, error) {
	added, err := s.registry.Register(ctx, name)
	if errors.Is(err, registry.ErrEmptyName) {
		return false, fieldError("resource", "resource name is required")
	}
	return added, err
}

// Resources returns every registered resource in registration order.
func (s *EventStore) Resources() []string {
	return s.registry.All()
}

// AvailableResources returns the resources no event holds.
func (s *EventStore) AvailableResources() []string {
	return s.registry.Available()
}

// IsResourceAvailable reports whether resource is registered and free.
func (s *EventStore) IsResourceAvailable(resource string) bool {
	return s.registry.IsAvailable(resource)
}

// ResourceHolders returns the events holding resource.
func (s *EventStore) ResourceHolders(resource string) []string {
	return s.registry.Holders(resource)
}

// ResourceLedger returns every non-empty ledger.
func (s *EventStore) ResourceLedger() map[string][]string {
	return s.registry.Ledger()
}

// Constraints returns the rules applied on insertion.
func (s *EventStore) Constraints() []scheduler.Rule {
	return s.constraints.Rules()
}

// admit checks the constraint set and the conflict rule for candidate.
func (s *EventStore) admit(candidate scheduler.Event) error {
	if err := s.constraints.Validate(candidate); err != nil {
		return fieldError("resources", err.Error())
	}
	if conflicts := scheduler.DetectConflicts(s.events, candidate); len(conflicts) > 0 {
		return &ResourceConflictError{
			Resource:         conflicts[0].Resource,
			ConflictingEvent: conflicts[0].WithEvent,
		}
	}
	return nil
}

// commit swaps in next, lets ledger update the registry and writes the events.
// Any failure restores the previous events and registry.
func (s *EventStore) commit(ctx context.Context, next []scheduler.Event, ledger func() error) error {
	previous := s.events
	before := s.registry.Document()

	if err := ledger(); err != nil {
		return err
	}
	s.events = next
	if err := s.repo.SaveEvents(ctx, s.events); err != nil {
		s.events = previous
		s.registry.Restore(before)
		if rErr := s.registry.Save(ctx); rErr != nil {
			s.loggerWith(ctx, "commit").WarnContext(ctx, "failed to rewrite resources after rollback",
				"error", rErr, "error_kind", ErrorKind(rErr))
		}
		return err
	}
	return nil
}

// replace installs events and derives the registry from them and doc. Later
// events reusing an earlier name are dropped. Conflicting events are kept and
// logged so the caller can repair them.
func (s *EventStore) replace(ctx context.Context, events []scheduler.Event, doc persistence.ResourceDocument) {
	logger := s.loggerWith(ctx, "Load")
	unique := make([]scheduler.Event, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, event := range events {
		if _, dup := seen[event.Name]; dup {
			logger.WarnContext(ctx, "duplicate event name dropped", "event", event.Name)
			continue
		}
		seen[event.Name] = struct{}{}
		event.Resources = scheduler.NormalizeResources(event.Resources)
		for _, c := range scheduler.DetectConflicts(unique, event) {
			logger.WarnContext(ctx, "loaded events share a resource on overlapping days",
				"event", event.Name, "conflicting_event", c.WithEvent, "resource", c.Resource)
		}
		unique = append(unique, event)
	}
	s.events = unique
	s.registry.Rebuild(doc, unique)
}

func (s *EventStore) snapshot() []scheduler.Event {
	if len(s.events) == 0 {
		return []scheduler.Event{}
	}
	return scheduler.CloneEvents(s.events)
}

func (s *EventStore) indexOf(name string) int {
	return slices.IndexFunc(s.events, func(e scheduler.Event) bool {
		return e.Name == name
	})
}

func (s *EventStore) today() time.Time {
	return scheduler.Day(s.now())
}

// normalizeEvent trims the name and dates, cleans the resource set and checks
// the required fields.
func normalizeEvent(event scheduler.Event) (scheduler.Event, *ValidationError) {
	vErr := &ValidationError{}
	out := scheduler.Event{
		Name:      strings.TrimSpace(event.Name),
		Start:     strings.TrimSpace(event.Start),
		End:       strings.TrimSpace(event.End),
		Resources: scheduler.NormalizeResources(event.Resources),
	}

	if out.Name == "" {
		vErr.add("name", "name is required")
	}
	start, startErr := scheduler.ParseDate(out.Start)
	if startErr != nil {
		vErr.add("start", startErr.Error())
	}
	end, endErr := scheduler.ParseDate(out.End)
	if endErr != nil {
		vErr.add("end", endErr.Error())
	}
	if startErr == nil && endErr == nil && start.After(end) {
		vErr.add("end", "end must not be before start")
	}
	return out, vErr
}
