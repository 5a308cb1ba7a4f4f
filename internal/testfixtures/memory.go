package testfixtures

import (
	"context"
	"sync"

	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/scheduler"
)

// MemoryRepository keeps both documents in memory and lets tests inject
// failures. It implements persistence.EventRepository and
// persistence.ResourceRepository.
type MemoryRepository struct {
	mu sync.Mutex

	events    []scheduler.Event
	resources persistence.ResourceDocument

	EventSaves    int
	ResourceSaves int

	SaveEventsErr    error
	SaveResourcesErr error
	LoadEventsErr    error
	LoadResourcesErr error
}

// NewMemoryRepository returns a repository preloaded with events and resources.
func NewMemoryRepository(events []scheduler.Event, resources persistence.ResourceDocument) *MemoryRepository {
	return &MemoryRepository{
		events:    scheduler.CloneEvents(events),
		resources: resources.Clone(),
	}
}

// SaveEvents stores a copy of events unless SaveEventsErr is set.
func (m *MemoryRepository) SaveEvents(ctx context.Context, events []scheduler.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveEventsErr != nil {
		return m.SaveEventsErr
	}
	m.EventSaves++
	m.events = scheduler.CloneEvents(events)
	return nil
}

// LoadEvents returns a copy of the stored events.
func (m *MemoryRepository) LoadEvents(ctx context.Context) ([]scheduler.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadEventsErr != nil {
		return nil, m.LoadEventsErr
	}
	if m.events == nil {
		return []scheduler.Event{}, nil
	}
	return scheduler.CloneEvents(m.events), nil
}

// SaveResources stores a copy of doc unless SaveResourcesErr is set.
func (m *MemoryRepository) SaveResources(ctx context.Context, doc persistence.ResourceDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveResourcesErr != nil {
		return m.SaveResourcesErr
	}
	m.ResourceSaves++
	m.resources = doc.Clone()
	return nil
}

// LoadResources returns a copy of the stored document.
func (m *MemoryRepository) LoadResources(ctx context.Context) (persistence.ResourceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadResourcesErr != nil {
		return persistence.ResourceDocument{}, m.LoadResourcesErr
	}
	return m.resources.Clone(), nil
}

// StoredEvents returns what the last successful SaveEvents wrote.
func (m *MemoryRepository) StoredEvents() []scheduler.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return scheduler.CloneEvents(m.events)
}

// StoredResources returns what the last successful SaveResources wrote.
func (m *MemoryRepository) StoredResources() persistence.ResourceDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resources.Clone()
}
