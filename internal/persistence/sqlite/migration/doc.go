// Package migration applies versioned SQL files to a SQLite database.
//
// Files are read from an fs.FS and named {version}_{description}.sql, for
// example "001_create_snapshots.sql". Each file runs in its own transaction
// together with the row that records it in schema_migrations, so a failed
// file leaves no trace.
//
//	db, err := migration.Connect(ctx, migration.DefaultSQLiteConfig(path))
//	...
//	m := migration.NewManager(files, "migrations", migration.NewExecutor(db))
//	if _, err := m.Run(ctx); err != nil {
//		return err
//	}
package migration
