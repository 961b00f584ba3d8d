// Package patterncache provides a coarse whole-dependency-set cache for
// analysis tools that have no per-file decomposition. Entries are keyed by
// tool, validated by a fingerprint map over glob-matched dependency files,
// and bounded by a wall-clock TTL so drift that file hashing cannot detect
// (e.g. an external vulnerability database update) eventually forces a rerun.
package patterncache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sca/internal/errors"
	"sca/internal/fingerprint"
	"sca/internal/paths"
	"sca/internal/storage"
)

// DefaultMaxAge bounds entry staleness when no TTL is configured.
const DefaultMaxAge = time.Hour

// Info is the administrative view of an entry (stats surface).
type Info struct {
	Tool         string    `json:"tool"`
	CreatedAt    time.Time `json:"createdAt"`
	Dependencies int       `json:"dependencies"`
}

// Cache reads and writes pattern_cache rows.
type Cache struct {
	db            *storage.DB
	projectRoot   string
	logger        *slog.Logger
	defaultMaxAge time.Duration

	// now is swappable for TTL tests
	now func() time.Time
}

// New creates a pattern cache for a project. maxAge 0 falls back to
// DefaultMaxAge.
func New(db *storage.DB, projectRoot string, logger *slog.Logger, maxAge time.Duration) *Cache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cache{
		db:            db,
		projectRoot:   projectRoot,
		logger:        logger,
		defaultMaxAge: maxAge,
		now:           time.Now,
	}
}

// Get returns the cached payload for a tool if the entry is still valid:
// its age is within maxAge (0 = cache default) AND the freshly recomputed
// dependency fingerprint map is byte-equal to the stored one. Anything
// else, including a corrupt row, is a miss.
func (c *Cache) Get(tool string, patterns []string, maxAge time.Duration) (json.RawMessage, bool, error) {
	var (
		createdAt    string
		fingerprints string
		payload      string
	)

	err := c.db.QueryRow(`
		SELECT created_at, fingerprints, payload
		FROM pattern_cache
		WHERE tool = ?
	`, tool).Scan(&createdAt, &fingerprints, &payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pattern cache lookup for %s failed: %w", tool, err)
	}

	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		c.logger.Warn("Corrupt pattern cache entry, treating as miss",
			"tool", tool, "code", string(errors.CacheCorrupt), "error", err.Error())
		return nil, false, nil
	}

	if maxAge <= 0 {
		maxAge = c.defaultMaxAge
	}
	// maxAge is per-call; the row may still be valid under a longer one, so
	// an expired read is a pure miss. Put replaces the row after the rerun.
	if c.now().Sub(created) > maxAge {
		c.logger.Debug("Pattern cache entry expired", "tool", tool, "age", c.now().Sub(created).String())
		return nil, false, nil
	}

	current, err := c.dependencyFingerprints(patterns)
	if err != nil {
		return nil, false, err
	}
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return nil, false, fmt.Errorf("encoding dependency fingerprints: %w", err)
	}

	if string(currentJSON) != fingerprints {
		c.logger.Debug("Pattern cache dependencies changed", "tool", tool)
		return nil, false, nil
	}

	if !json.Valid([]byte(payload)) {
		c.logger.Warn("Corrupt pattern cache payload, treating as miss",
			"tool", tool, "code", string(errors.CacheCorrupt))
		return nil, false, nil
	}

	return json.RawMessage(payload), true, nil
}

// Put stores a fresh payload for a tool, replacing any prior entry wholesale.
// The dependency fingerprint map is recomputed at write time.
func (c *Cache) Put(tool string, patterns []string, payload json.RawMessage) error {
	current, err := c.dependencyFingerprints(patterns)
	if err != nil {
		return err
	}
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encoding dependency fingerprints: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO pattern_cache (tool, created_at, fingerprints, payload)
		VALUES (?, ?, ?, ?)
	`, tool, c.now().UTC().Format(time.RFC3339), string(currentJSON), string(payload))
	if err != nil {
		return fmt.Errorf("saving pattern cache entry for %s: %w", tool, err)
	}

	c.logger.Debug("Pattern cache entry saved", "tool", tool, "dependencies", len(current))
	return nil
}

// Clear removes the entry for a tool, or all entries when tool is empty.
// Returns the number of entries cleared.
func (c *Cache) Clear(tool string) (int, error) {
	var (
		res sql.Result
		err error
	)
	if tool == "" {
		res, err = c.db.Exec(`DELETE FROM pattern_cache`)
	} else {
		res, err = c.db.Exec(`DELETE FROM pattern_cache WHERE tool = ?`, tool)
	}
	if err != nil {
		return 0, fmt.Errorf("clearing pattern cache: %w", err)
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}

// List returns administrative info for all entries.
func (c *Cache) List() ([]Info, error) {
	rows, err := c.db.Query(`SELECT tool, created_at, fingerprints FROM pattern_cache ORDER BY tool`)
	if err != nil {
		return nil, fmt.Errorf("listing pattern cache: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	var infos []Info
	for rows.Next() {
		var (
			info         Info
			createdAt    string
			fingerprints string
		)
		if err := rows.Scan(&info.Tool, &createdAt, &fingerprints); err != nil {
			return nil, fmt.Errorf("scanning pattern cache row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			info.CreatedAt = ts
		}
		var deps map[string]string
		if err := json.Unmarshal([]byte(fingerprints), &deps); err == nil {
			info.Dependencies = len(deps)
		}
		infos = append(infos, info)
	}

	return infos, rows.Err()
}

// dependencyFingerprints hashes every file matching any of the patterns.
// Patterns are project-relative globs; files that vanish between matching
// and hashing are skipped.
func (c *Cache) dependencyFingerprints(patterns []string) (map[string]string, error) {
	deps := make(map[string]string)

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(c.projectRoot, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("bad dependency pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			// A pattern like "../x" must not pull files outside the project
			if !paths.IsWithinProject(match, c.projectRoot) {
				continue
			}

			rel, err := paths.Canonicalize(match, c.projectRoot)
			if err != nil {
				continue
			}

			hash, err := fingerprint.HashFile(match)
			if err != nil {
				continue
			}
			deps[rel] = hash
		}
	}

	return deps, nil
}
