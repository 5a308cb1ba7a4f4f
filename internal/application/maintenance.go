package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/scheduler"
)

func (s *EventStore) requireDirectory() error {
	if s.directory == nil {
		return fmt.Errorf("%w: data directory", ErrNotConfigured)
	}
	return nil
}

func (s *EventStore) requireArchive() error {
	if s.archive == nil {
		return fmt.Errorf("%w: snapshot archive", ErrNotConfigured)
	}
	return nil
}

// Export copies the stored documents into destination.
func (s *EventStore) Export(ctx context.Context, destination string) (files []string, err error) {
	logger := s.loggerWith(ctx, "Export", "destination", destination)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to export data", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if strings.TrimSpace(destination) == "" {
		return nil, fieldError("destination", "destination is required")
	}
	if err := s.requireDirectory(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directory.Export(ctx, destination)
}

// Import replaces the stored documents with those in source and reloads.
func (s *EventStore) Import(ctx context.Context, source string) (files []string, err error) {
	logger := s.loggerWith(ctx, "Import", "source", source)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to import data", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if strings.TrimSpace(source) == "" {
		return nil, fieldError("source", "source is required")
	}
	if err := s.requireDirectory(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	files, err = s.directory.Import(ctx, source)
	s.mu.Unlock()
	if err != nil {
		return files, err
	}
	if len(files) > 0 {
		if _, err = s.Load(ctx); err != nil {
			return files, err
		}
	}
	return files, nil
}

// Wipe deletes the stored documents and empties memory.
func (s *EventStore) Wipe(ctx context.Context) (deleted int, err error) {
	logger := s.loggerWith(ctx, "Wipe")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to wipe data", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("deleted", deleted).InfoContext(ctx, "data wiped")
	}()

	if err := s.requireDirectory(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err = s.directory.Wipe(ctx)
	if err != nil {
		return deleted, err
	}
	s.events = []scheduler.Event{}
	s.registry.Reset()
	return deleted, nil
}

// Stats describes the data directory.
func (s *EventStore) Stats(ctx context.Context) (persistence.Stats, error) {
	if err := s.requireDirectory(); err != nil {
		return persistence.Stats{}, err
	}
	return s.directory.Stats(ctx)
}

// Snapshot archives the current events and registry under label.
func (s *EventStore) Snapshot(ctx context.Context, label string) (info persistence.SnapshotInfo, err error) {
	logger := s.loggerWith(ctx, "Snapshot", "label", label)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create snapshot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("snapshot_id", info.ID).InfoContext(ctx, "snapshot created")
	}()

	if err = s.requireArchive(); err != nil {
		return
	}

	s.mu.Lock()
	events := s.snapshot()
	doc := s.registry.Document()
	s.mu.Unlock()

	return s.archive.CreateSnapshot(ctx, strings.TrimSpace(label), events, doc)
}

// Snapshots lists archived snapshots, newest first.
func (s *EventStore) Snapshots(ctx context.Context) ([]persistence.SnapshotInfo, error) {
	if err := s.requireArchive(); err != nil {
		return nil, err
	}
	return s.archive.ListSnapshots(ctx)
}

// RestoreSnapshot replaces memory and both documents with snapshot id.
func (s *EventStore) RestoreSnapshot(ctx context.Context, id string) (result RestoreResult, err error) {
	logger := s.loggerWith(ctx, "RestoreSnapshot", "snapshot_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to restore snapshot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("events", result.Events).InfoContext(ctx, "snapshot restored")
	}()

	if err = s.requireArchive(); err != nil {
		return
	}
	snap, err := s.archive.LoadSnapshot(ctx, strings.TrimSpace(id))
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.events
	before := s.registry.Document()
	s.replace(ctx, snap.Events, snap.Resources)

	if err = s.repo.SaveEvents(ctx, s.events); err == nil {
		err = s.registry.Save(ctx)
	}
	if err != nil {
		s.events = previous
		s.registry.Restore(before)
		if wErr := s.repo.SaveEvents(ctx, s.events); wErr != nil {
			logger.WarnContext(ctx, "failed to rewrite events after rollback", "error", wErr)
		}
		if wErr := s.registry.Save(ctx); wErr != nil {
			logger.WarnContext(ctx, "failed to rewrite resources after rollback", "error", wErr)
		}
		return
	}

	result = RestoreResult{
		Snapshot: persistence.SnapshotInfo{
			ID:         snap.ID,
			Label:      snap.Label,
			CreatedAt:  snap.CreatedAt,
			Digest:     snap.Digest,
			EventCount: len(snap.Events),
		},
		Events: len(s.events),
	}
	return
}
