// Package resultstore persists per-tool findings for file-decomposable
// analysis tools and supports merge-on-update: fresh per-file findings are
// folded into the prior map and the aggregate is recomputed from scratch by
// the tool's reducer, so an incremental run is indistinguishable from a full
// one.
package resultstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"

	"sca/internal/audit"
	"sca/internal/errors"
	"sca/internal/storage"
)

const (
	codecJSON = "json"
	codecZstd = "zstd"
)

// Entry is one tool's cached state.
type Entry struct {
	Tool      string
	UpdatedAt time.Time
	PerFile   audit.FindingsByFile
	Aggregate json.RawMessage
}

// Info is the administrative view of an entry (stats surface).
type Info struct {
	Tool      string    `json:"tool"`
	UpdatedAt time.Time `json:"updatedAt"`
	Files     int       `json:"files"`
}

// Store reads and writes tool_results rows. Large findings payloads are
// transparently zstd-compressed.
type Store struct {
	db            *storage.DB
	logger        *slog.Logger
	compressAbove int
	enc           *zstd.Encoder
	dec           *zstd.Decoder
}

// New creates a result store. compressAbove is the payload size in bytes
// beyond which findings are compressed (0 disables compression).
func New(db *storage.DB, logger *slog.Logger, compressAbove int) (*Store, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Store{
		db:            db,
		logger:        logger,
		compressAbove: compressAbove,
		enc:           enc,
		dec:           dec,
	}, nil
}

// Load returns the cached entry for a tool, or nil on a miss. A corrupt row
// is logged and treated as a miss, never as a fatal error.
func (s *Store) Load(tool string) (*Entry, error) {
	var (
		updatedAt string
		blob      []byte
		codec     string
		aggregate string
	)

	err := s.db.QueryRow(`
		SELECT updated_at, findings, findings_codec, aggregate
		FROM tool_results
		WHERE tool = ?
	`, tool).Scan(&updatedAt, &blob, &codec, &aggregate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("result lookup for %s failed: %w", tool, err)
	}

	entry := &Entry{Tool: tool, Aggregate: json.RawMessage(aggregate)}

	ts, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		s.logger.Warn("Corrupt result entry, treating as miss",
			"tool", tool, "code", string(errors.CacheCorrupt), "error", err.Error())
		return nil, nil
	}
	entry.UpdatedAt = ts

	perFile, err := s.decodeFindings(blob, codec)
	if err != nil {
		s.logger.Warn("Corrupt result entry, treating as miss",
			"tool", tool, "code", string(errors.CacheCorrupt), "error", err.Error())
		return nil, nil
	}
	entry.PerFile = perFile

	return entry, nil
}

// Merge folds fresh per-file findings into a tool's existing entry: entries
// for removed files are dropped, entries for changed files are overwritten
// with whatever the fresh map holds (absence means no findings), and the
// aggregate is recomputed by the reducer over the resulting full map.
// The updated entry is persisted and the new aggregate returned.
func (s *Store) Merge(tool string, fresh audit.FindingsByFile, changed, removed []string, reduce audit.Reducer) (json.RawMessage, error) {
	existing, err := s.Load(tool)
	if err != nil {
		return nil, err
	}

	perFile := make(audit.FindingsByFile)
	if existing != nil {
		for path, findings := range existing.PerFile {
			perFile[path] = findings
		}
	}

	for _, path := range removed {
		delete(perFile, path)
	}
	// Changed files reset first: a changed file absent from the fresh map
	// now has zero findings.
	for _, path := range changed {
		delete(perFile, path)
	}
	// The analyzer may return more files than requested (it is allowed to
	// ignore the subset); fold in everything it reported.
	for path, findings := range fresh {
		if len(findings) == 0 {
			continue
		}
		perFile[path] = findings
	}

	aggregate, err := reduce(perFile)
	if err != nil {
		return nil, fmt.Errorf("reducing %s findings: %w", tool, err)
	}

	if err := s.Save(tool, perFile, aggregate); err != nil {
		return nil, err
	}

	return aggregate, nil
}

// Save replaces a tool's entry wholesale (full-mode runs).
func (s *Store) Save(tool string, perFile audit.FindingsByFile, aggregate json.RawMessage) error {
	blob, codec, err := s.encodeFindings(perFile)
	if err != nil {
		return fmt.Errorf("encoding %s findings: %w", tool, err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO tool_results (tool, updated_at, findings, findings_codec, aggregate)
		VALUES (?, ?, ?, ?, ?)
	`, tool, time.Now().UTC().Format(time.RFC3339), blob, codec, string(aggregate))
	if err != nil {
		return fmt.Errorf("saving %s results: %w", tool, err)
	}

	s.logger.Debug("Result entry saved", "tool", tool, "files", len(perFile), "codec", codec)
	return nil
}

// Clear removes the entry for a tool, or all entries when tool is empty.
// Returns the number of entries cleared.
func (s *Store) Clear(tool string) (int, error) {
	var (
		res sql.Result
		err error
	)
	if tool == "" {
		res, err = s.db.Exec(`DELETE FROM tool_results`)
	} else {
		res, err = s.db.Exec(`DELETE FROM tool_results WHERE tool = ?`, tool)
	}
	if err != nil {
		return 0, fmt.Errorf("clearing results: %w", err)
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}

// List returns administrative info for all entries.
func (s *Store) List() ([]Info, error) {
	rows, err := s.db.Query(`SELECT tool, updated_at, findings, findings_codec FROM tool_results ORDER BY tool`)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	var infos []Info
	for rows.Next() {
		var (
			info      Info
			updatedAt string
			blob      []byte
			codec     string
		)
		if err := rows.Scan(&info.Tool, &updatedAt, &blob, &codec); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			info.UpdatedAt = ts
		}
		if perFile, err := s.decodeFindings(blob, codec); err == nil {
			info.Files = len(perFile)
		}
		infos = append(infos, info)
	}

	return infos, rows.Err()
}

func (s *Store) encodeFindings(perFile audit.FindingsByFile) ([]byte, string, error) {
	data, err := json.Marshal(perFile)
	if err != nil {
		return nil, "", err
	}

	if s.compressAbove > 0 && len(data) > s.compressAbove {
		return s.enc.EncodeAll(data, nil), codecZstd, nil
	}
	return data, codecJSON, nil
}

func (s *Store) decodeFindings(blob []byte, codec string) (audit.FindingsByFile, error) {
	data := blob
	switch codec {
	case codecZstd:
		decoded, err := s.dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing findings: %w", err)
		}
		data = decoded
	case codecJSON:
		// as-is
	default:
		return nil, fmt.Errorf("unknown findings codec %q", codec)
	}

	var perFile audit.FindingsByFile
	if err := json.Unmarshal(data, &perFile); err != nil {
		return nil, fmt.Errorf("decoding findings: %w", err)
	}
	if perFile == nil {
		perFile = make(audit.FindingsByFile)
	}
	return perFile, nil
}
