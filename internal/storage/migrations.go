package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

const currentSchemaVersion = 2

// migrate brings the schema up to currentSchemaVersion.
func (ss *SQLiteStorage) migrate() error {
	if _, err := ss.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	if err := ss.MigrateToV1(); err != nil {
		return err
	}
	return ss.MigrateToV2()
}

func (ss *SQLiteStorage) schemaVersion() (int, error) {
	var version sql.NullInt64
	err := ss.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking migration version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	if version.Int64 > currentSchemaVersion {
		return 0, fmt.Errorf("database schema version %d is newer than supported version %d", version.Int64, currentSchemaVersion)
	}
	return int(version.Int64), nil
}

// MigrateToV1 creates the routes table.
func (ss *SQLiteStorage) MigrateToV1() error {
	version, err := ss.schemaVersion()
	if err != nil {
		return err
	}
	if version >= 1 {
		return nil
	}

	tx, err := ss.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			ip_address TEXT NOT NULL,
			subnet_mask TEXT NOT NULL,
			gateway TEXT NOT NULL,
			interface TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating routes table: %w", err)
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_routes_name ON routes(name)`)
	if err != nil {
		return fmt.Errorf("creating routes index: %w", err)
	}

	if _, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (1)`); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	return tx.Commit()
}

// MigrateToV2 adds the cached is_active column.
func (ss *SQLiteStorage) MigrateToV2() error {
	version, err := ss.schemaVersion()
	if err != nil {
		return err
	}
	if version >= 2 {
		return nil
	}

	tx, err := ss.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`ALTER TABLE routes ADD COLUMN is_active INTEGER NOT NULL DEFAULT 0`)
	if err != nil && !isDuplicateColumnError(err) {
		return fmt.Errorf("adding is_active column: %w", err)
	}

	if _, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (2)`); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	return tx.Commit()
}

func isDuplicateColumnError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column")
}
