// Package registry tracks the known resources and, for each one, the events
// currently holding it.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/example/resource-calendar/internal/logging"
	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/scheduler"
)

// ErrEmptyName is returned when a resource name is blank.
var ErrEmptyName = errors.New("registry: resource name is empty")

// Registry holds resources in registration order together with their usage
// ledgers. Every mutation is written through the repository; a failed write
// leaves the registry as it was before the call.
type Registry struct {
	mu     sync.Mutex
	order  []string
	ledger map[string][]string

	repo   persistence.ResourceRepository
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the fallback logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New returns an empty registry persisting through repo. A nil repo keeps the
// registry in memory only.
func New(repo persistence.ResourceRepository, opts ...Option) *Registry {
	r := &Registry{
		ledger: make(map[string][]string),
		repo:   repo,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) log(ctx context.Context, operation string) *slog.Logger {
	return logging.Resolve(ctx, r.logger).With("component", "registry", "operation", operation)
}

// Register adds name with an empty ledger. It reports false when the resource
// already exists.
func (r *Registry) Register(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.knows(name) {
		return false, nil
	}
	err := r.commit(ctx, "register", func() bool {
		r.add(name)
		return true
	})
	if err != nil {
		return false, err
	}
	r.log(ctx, "register").InfoContext(ctx, "resource registered", "resource", name)
	return true, nil
}

// Acquire records event as a holder of resource. Unknown resources are
// registered on the way.
func (r *Registry) Acquire(ctx context.Context, resource, event string) error {
	return r.AcquireAll(ctx, []string{resource}, event)
}

// AcquireAll records event as a holder of every resource with one write.
func (r *Registry) AcquireAll(ctx context.Context, resources []string, event string) error {
	resources = scheduler.NormalizeResources(resources)
	if len(resources) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.commit(ctx, "acquire", func() bool {
		changed := false
		for _, name := range resources {
			if !r.knows(name) {
				r.add(name)
				changed = true
			}
			if !slices.Contains(r.ledger[name], event) {
				r.ledger[name] = append(r.ledger[name], event)
				changed = true
			}
		}
		return changed
	})
}

// Release removes event from the ledger of resource.
func (r *Registry) Release(ctx context.Context, resource, event string) error {
	return r.ReleaseAll(ctx, []string{resource}, event)
}

// ReleaseAll removes event from the ledger of every resource with one write.
func (r *Registry) ReleaseAll(ctx context.Context, resources []string, event string) error {
	resources = scheduler.NormalizeResources(resources)
	if len(resources) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.commit(ctx, "release", func() bool {
		changed := false
		for _, name := range resources {
			holders := r.ledger[name]
			idx := slices.Index(holders, event)
			if idx < 0 {
				continue
			}
			r.ledger[name] = slices.Delete(slices.Clone(holders), idx, idx+1)
			changed = true
		}
		return changed
	})
}

// IsAvailable reports whether resource is known and nobody holds it.
func (r *Registry) IsAvailable(resource string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	resource = strings.TrimSpace(resource)
	return r.knows(resource) && len(r.ledger[resource]) == 0
}

// All returns every registered resource in registration order.
func (r *Registry) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Available returns the resources nobody holds, in registration order.
func (r *Registry) Available() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if len(r.ledger[name]) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// Holders returns the events holding resource, in acquisition order.
func (r *Registry) Holders(resource string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	holders := r.ledger[strings.TrimSpace(resource)]
	if holders == nil {
		return []string{}
	}
	return slices.Clone(holders)
}

// Ledger returns a deep copy of the non-empty ledgers.
func (r *Registry) Ledger() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.document().Usage
}

// Document returns the persisted form of the registry.
func (r *Registry) Document() persistence.ResourceDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.document()
}

// Restore replaces the registry state with doc without writing it.
func (r *Registry) Restore(doc persistence.ResourceDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restore(doc)
}

// Rebuild derives the registry from stored names and events. Known names are
// the stored registration list, then any stored ledger keys, then resources
// first seen on events. Ledgers are taken from the events alone so they agree
// with the event list.
func (r *Registry) Rebuild(doc persistence.ResourceDocument, events []scheduler.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = nil
	r.ledger = make(map[string][]string)
	for _, name := range doc.Registered {
		if name = strings.TrimSpace(name); name != "" && !r.knows(name) {
			r.add(name)
		}
	}

	keys := make([]string, 0, len(doc.Usage))
	for name := range doc.Usage {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		if name = strings.TrimSpace(name); name != "" && !r.knows(name) {
			r.add(name)
		}
	}

	for _, event := range events {
		for _, name := range event.Resources {
			if !r.knows(name) {
				r.add(name)
			}
			if !slices.Contains(r.ledger[name], event.Name) {
				r.ledger[name] = append(r.ledger[name], event.Name)
			}
		}
	}
}

// Reset forgets every resource without writing.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.ledger = make(map[string][]string)
}

// Save writes the current state.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx)
}

func (r *Registry) knows(name string) bool {
	_, ok := r.ledger[name]
	return ok
}

func (r *Registry) add(name string) {
	r.order = append(r.order, name)
	r.ledger[name] = []string{}
}

func (r *Registry) document() persistence.ResourceDocument {
	doc := persistence.ResourceDocument{
		Registered: slices.Clone(r.order),
		Usage:      make(map[string][]string),
	}
	if doc.Registered == nil {
		doc.Registered = []string{}
	}
	for _, name := range r.order {
		if holders := r.ledger[name]; len(holders) > 0 {
			doc.Usage[name] = slices.Clone(holders)
		}
	}
	return doc
}

func (r *Registry) restore(doc persistence.ResourceDocument) {
	r.order = nil
	r.ledger = make(map[string][]string)
	for _, name := range doc.Registered {
		if !r.knows(name) {
			r.add(name)
		}
	}
	for name, holders := range doc.Usage {
		if !r.knows(name) {
			r.add(name)
		}
		r.ledger[name] = slices.Clone(holders)
	}
}

// commit applies mutate and writes the result. When mutate reports no change
// nothing is written; when the write fails the prior state comes back.
func (r *Registry) commit(ctx context.Context, operation string, mutate func() bool) error {
	before := r.document()
	if !mutate() {
		return nil
	}
	if err := r.save(ctx); err != nil {
		r.restore(before)
		r.log(ctx, operation).ErrorContext(ctx, "resource write failed, change reverted", "error", err)
		return err
	}
	return nil
}

func (r *Registry) save(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	return r.repo.SaveResources(ctx, r.document())
}
