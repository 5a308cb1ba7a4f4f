// Package sqlite keeps snapshots of the calendar documents in a SQLite
// database. The schema is created by the embedded migrations on Open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/example/resource-calendar/internal/logging"
	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/persistence/jsonfile"
	"github.com/example/resource-calendar/internal/persistence/sqlite/migration"
	"github.com/example/resource-calendar/internal/scheduler"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// createdAtLayout is fixed width so stored timestamps sort as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Archive implements persistence.SnapshotArchive.
type Archive struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
	retry  RetryPolicy
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator replaces the random UUID snapshot ids.
func WithIDGenerator(next func() string) Option {
	return func(a *Archive) {
		if next != nil {
			a.newID = next
		}
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(a *Archive) {
		a.retry = policy
	}
}

// Open connects to the database at path, creating and migrating it as needed.
// Use migration.MemoryDSN for a throwaway archive.
func Open(ctx context.Context, path string, opts ...Option) (*Archive, error) {
	a := &Archive{
		path:  path,
		now:   time.Now,
		newID: uuid.NewString,
		retry: DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}

	db, err := migration.Connect(ctx, migration.DefaultSQLiteConfig(path))
	if err != nil {
		return nil, persistence.Wrap("open archive", path, err)
	}
	manager := migration.NewManager(migrationFiles, "migrations", migration.NewExecutor(db),
		migration.WithLogger(a.logger))
	if _, err := manager.Run(ctx); err != nil {
		_ = db.Close()
		return nil, persistence.Wrap("migrate archive", path, err)
	}
	a.db = db
	return a, nil
}

// Close releases the database.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Path returns the database location.
func (a *Archive) Path() string {
	return a.path
}

func (a *Archive) log(ctx context.Context) *slog.Logger {
	return logging.Resolve(ctx, a.logger).With("component", "sqlite", "path", a.path)
}

// Digest returns the BLAKE2b-256 of the events document as it would be
// written to disk.
func Digest(events []scheduler.Event) (string, error) {
	data, err := jsonfile.EncodeDocument(persistence.ToRecords(events))
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CreateSnapshot stores a copy of events and resources under label.
func (a *Archive) CreateSnapshot(ctx context.Context, label string, events []scheduler.Event, resources persistence.ResourceDocument) (persistence.SnapshotInfo, error) {
	digest, err := Digest(events)
	if err != nil {
		return persistence.SnapshotInfo{}, persistence.Wrap("encode snapshot", a.path, err)
	}
	document, err := json.Marshal(resources.Clone())
	if err != nil {
		return persistence.SnapshotInfo{}, persistence.Wrap("encode snapshot", a.path, err)
	}
	rows := make([][]byte, len(events))
	for i, event := range events {
		if rows[i], err = json.Marshal(persistence.ToRecord(event).Resources); err != nil {
			return persistence.SnapshotInfo{}, persistence.Wrap("encode snapshot", a.path, err)
		}
	}

	info := persistence.SnapshotInfo{
		ID:         a.newID(),
		Label:      label,
		CreatedAt:  a.now().UTC(),
		Digest:     digest,
		EventCount: len(events),
	}

	err = a.retry.do(ctx, func() error {
		return withTransaction(ctx, a.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snapshots (id, label, created_at, digest, event_count) VALUES (?, ?, ?, ?, ?)`,
				info.ID, info.Label, info.CreatedAt.Format(createdAtLayout), info.Digest, info.EventCount,
			); err != nil {
				return err
			}

			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO snapshot_events (snapshot_id, position, name, start_date, end_date, resources) VALUES (?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return err
			}
			defer stmt.Close()
			for i, event := range events {
				if _, err := stmt.ExecContext(ctx, info.ID, i, event.Name, event.Start, event.End, string(rows[i])); err != nil {
					return err
				}
			}

			_, err = tx.ExecContext(ctx,
				`INSERT INTO snapshot_resources (snapshot_id, document) VALUES (?, ?)`,
				info.ID, string(document))
			return err
		})
	})
	if err != nil {
		return persistence.SnapshotInfo{}, mapError("create snapshot", a.path, err)
	}

	a.log(ctx).DebugContext(ctx, "snapshot stored", "snapshot_id", info.ID, "events", info.EventCount)
	return info, nil
}

// ListSnapshots returns every snapshot, newest first.
func (a *Archive) ListSnapshots(ctx context.Context) ([]persistence.SnapshotInfo, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, label, created_at, digest, event_count FROM snapshots ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, mapError("list snapshots", a.path, err)
	}
	defer rows.Close()

	snapshots := []persistence.SnapshotInfo{}
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, mapError("list snapshots", a.path, err)
		}
		snapshots = append(snapshots, info)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list snapshots", a.path, err)
	}
	return snapshots, nil
}

// LoadSnapshot returns the snapshot with id or persistence.ErrNotFound.
func (a *Archive) LoadSnapshot(ctx context.Context, id string) (persistence.Snapshot, error) {
	var snap persistence.Snapshot
	err := withTransaction(ctx, a.db, func(tx *sql.Tx) error {
		info, err := scanInfo(tx.QueryRowContext(ctx,
			`SELECT id, label, created_at, digest, event_count FROM snapshots WHERE id = ?`, id))
		if err != nil {
			return err
		}
		snap = persistence.Snapshot{
			ID:        info.ID,
			Label:     info.Label,
			CreatedAt: info.CreatedAt,
			Digest:    info.Digest,
		}

		if snap.Events, err = loadEvents(ctx, tx, id); err != nil {
			return err
		}

		var document string
		if err := tx.QueryRowContext(ctx,
			`SELECT document FROM snapshot_resources WHERE snapshot_id = ?`, id).Scan(&document); err != nil {
			return err
		}
		var doc persistence.ResourceDocument
		if err := json.Unmarshal([]byte(document), &doc); err != nil {
			return fmt.Errorf("decode resources of snapshot %s: %w", id, err)
		}
		snap.Resources = doc.Clone()
		return nil
	})
	if err != nil {
		return persistence.Snapshot{}, mapError("load snapshot "+id, a.path, err)
	}
	return snap, nil
}

func loadEvents(ctx context.Context, tx *sql.Tx, id string) ([]scheduler.Event, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT name, start_date, end_date, resources FROM snapshot_events WHERE snapshot_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []persistence.EventRecord{}
	for rows.Next() {
		var (
			record    persistence.EventRecord
			resources string
		)
		if err := rows.Scan(&record.Name, &record.Start, &record.End, &resources); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(resources), &record.Resources); err != nil {
			return nil, fmt.Errorf("decode resources of %q: %w", record.Name, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return persistence.FromRecords(records), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(row scanner) (persistence.SnapshotInfo, error) {
	var (
		info      persistence.SnapshotInfo
		createdAt string
	)
	if err := row.Scan(&info.ID, &info.Label, &createdAt, &info.Digest, &info.EventCount); err != nil {
		return persistence.SnapshotInfo{}, err
	}
	parsed, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return persistence.SnapshotInfo{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	info.CreatedAt = parsed
	return info, nil
}
