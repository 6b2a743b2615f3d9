package storage

import (
	"database/sql"
	"fmt"
)

// applyMigrations applies all database migrations in order.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("could not enable foreign keys: %w", err)
	}

	if err := createMigrationsTable(db); err != nil {
		return err
	}

	migrations := []struct {
		version int
		name    string
		sql     string
	}{
		{1, "create_screens_table", createScreensTable},
		{2, "create_screens_indices", createScreensIndices},
	}

	for _, m := range migrations {
		applied, err := isMigrationApplied(db, m.version)
		if err != nil {
			return fmt.Errorf("could not check migration %d: %w", m.version, err)
		}

		if applied {
			continue
		}

		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("could not apply migration %d (%s): %w", m.version, m.name, err)
		}

		if err := recordMigration(db, m.version, m.name); err != nil {
			return fmt.Errorf("could not record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// createMigrationsTable creates the migrations tracking table.
func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// isMigrationApplied checks if a migration has been applied.
func isMigrationApplied(db *sql.DB, version int) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// recordMigration records that a migration has been applied.
func recordMigration(db *sql.DB, version int, name string) error {
	_, err := db.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// Migration SQL statements.
//
// Timestamps are stored as unix milliseconds so window queries stay a plain
// integer comparison.

const createScreensTable = `
CREATE TABLE screens (
	local_id INTEGER PRIMARY KEY AUTOINCREMENT,
	screen_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	json_payload TEXT NOT NULL DEFAULT '',
	version INTEGER NOT NULL DEFAULT 0,
	sync_status TEXT NOT NULL DEFAULT 'pending',
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	last_synced_at INTEGER,
	local_modified_at INTEGER NOT NULL,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	has_conflict INTEGER NOT NULL DEFAULT 0,
	remote_version TEXT NOT NULL DEFAULT ''
);
`

const createScreensIndices = `
CREATE INDEX idx_screens_sync_status ON screens(sync_status);
CREATE INDEX idx_screens_has_conflict ON screens(has_conflict);
CREATE INDEX idx_screens_local_modified_at ON screens(local_modified_at);
`
