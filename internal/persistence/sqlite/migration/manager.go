package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/resource-calendar/internal/logging"
)

// Manager applies the pending files of one directory.
type Manager struct {
	files    fs.FS
	dir      string
	executor *Executor
	logger   *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the fallback logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager reads migrations from dir inside files.
func NewManager(files fs.FS, dir string, executor *Executor, opts ...ManagerOption) *Manager {
	m := &Manager{files: files, dir: dir, executor: executor}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) log(ctx context.Context) *slog.Logger {
	return logging.Resolve(ctx, m.logger).With("component", "migration", "dir", m.dir)
}

// Run applies every pending migration in version order and returns how many
// ran. It stops at the first failure.
func (m *Manager) Run(ctx context.Context) (count int, err error) {
	logger := m.log(ctx)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "migration run failed", "error", err, "applied", count)
			return
		}
		if count > 0 {
			logger.InfoContext(ctx, "migrations applied", "applied", count)
		}
	}()

	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	for _, pending := range status.Pending {
		elapsed, err := m.executor.Apply(ctx, pending)
		if err != nil {
			return count, err
		}
		logger.DebugContext(ctx, "migration applied",
			"version", pending.Version,
			"description", pending.Description,
			"duration", elapsed,
		)
		count++
	}
	return count, nil
}

// Status compares the files with schema_migrations. An applied file whose
// checksum changed is an error.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}
	available, err := Scan(m.files, m.dir)
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	recorded := make(map[string]AppliedMigration, len(applied))
	for _, a := range applied {
		recorded[a.Version] = a
	}

	status := Status{Applied: applied}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	for _, mig := range available {
		a, ok := recorded[mig.Version]
		if !ok {
			status.Pending = append(status.Pending, mig)
			continue
		}
		if a.Checksum != mig.Checksum {
			return Status{}, newMigrationError(mig.Version, mig.Path, "verify checksum",
				fmt.Errorf("%w: recorded %s", ErrChecksumMismatch, a.Checksum))
		}
	}
	return status, nil
}
