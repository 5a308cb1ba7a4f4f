package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

const versionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL,
	checksum TEXT NOT NULL,
	execution_time_ms INTEGER NOT NULL
)`

// Executor runs migrations against one database.
type Executor struct {
	db  *sql.DB
	now func() time.Time
}

// NewExecutor returns an executor bound to db.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db, now: time.Now}
}

// InitializeVersionTable creates schema_migrations when missing.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, versionTable); err != nil {
		return newMigrationError("", "schema_migrations", "create version table", err)
	}
	return nil
}

// Apply executes m and records it in one transaction.
func (e *Executor) Apply(ctx context.Context, m Migration) (elapsed time.Duration, err error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, newMigrationError(m.Version, m.Path, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	started := e.now()
	for i, stmt := range Statements(m.SQL) {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return 0, newMigrationError(m.Version, m.Path, fmt.Sprintf("execute statement %d", i+1),
				fmt.Errorf("%w: %v", ErrMigrationFailed, execErr))
		}
	}
	elapsed = e.now().Sub(started)

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		m.Version, started.UTC().Format(time.RFC3339Nano), m.Checksum, elapsed.Milliseconds(),
	); err != nil {
		return 0, newMigrationError(m.Version, m.Path, "record migration", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, newMigrationError(m.Version, m.Path, "commit", err)
	}
	return elapsed, nil
}

// Applied lists the recorded migrations ordered by version.
func (e *Executor) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations`)
	if err != nil {
		return nil, newMigrationError("", "schema_migrations", "query applied", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			row       AppliedMigration
			appliedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&row.Version, &appliedAt, &row.Checksum, &elapsedMS); err != nil {
			return nil, newMigrationError("", "schema_migrations", "scan applied", err)
		}
		row.AppliedAt, _ = time.Parse(time.RFC3339Nano, appliedAt)
		row.ExecutionTime = time.Duration(elapsedMS) * time.Millisecond
		applied = append(applied, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newMigrationError("", "schema_migrations", "iterate applied", err)
	}
	sort.Slice(applied, func(i, j int) bool {
		return versionLess(applied[i].Version, applied[j].Version)
	})
	return applied, nil
}

// IsApplied reports whether version is recorded.
func (e *Executor) IsApplied(ctx context.Context, version string) (bool, error) {
	var one int
	err := e.db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, version).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, newMigrationError(version, "schema_migrations", "check version", err)
	}
	return true, nil
}

