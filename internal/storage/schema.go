package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createToolResultsTable(tx); err != nil {
			return err
		}
		if err := createPatternCacheTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Cache schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d",
			version, currentSchemaVersion)
	}

	// A cache database with an older schema is rebuilt rather than migrated:
	// everything in it can be recomputed.
	db.logger.Warn("Cache schema outdated, rebuilding", "found", version, "want", currentSchemaVersion)
	return db.WithTx(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DROP TABLE IF EXISTS tool_results`,
			`DROP TABLE IF EXISTS pattern_cache`,
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("dropping old table: %w", err)
			}
		}
		if err := createToolResultsTable(tx); err != nil {
			return err
		}
		if err := createPatternCacheTable(tx); err != nil {
			return err
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

func (db *DB) getSchemaVersion() (int, error) {
	var version int
	err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}
	return nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("clearing schema version: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	return nil
}

// tool_results holds one row per file-decomposable tool: the per-file
// findings map (JSON, optionally zstd-compressed) and the derived aggregate.
func createToolResultsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS tool_results (
			tool TEXT PRIMARY KEY,
			updated_at TEXT NOT NULL,
			findings BLOB NOT NULL,
			findings_codec TEXT NOT NULL DEFAULT 'json',
			aggregate TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating tool_results table: %w", err)
	}
	return nil
}

// pattern_cache holds one row per project-scoped tool: the dependency-set
// fingerprint map and the cached payload.
func createPatternCacheTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS pattern_cache (
			tool TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			fingerprints TEXT NOT NULL,
			payload TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating pattern_cache table: %w", err)
	}
	return nil
}
