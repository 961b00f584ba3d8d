package fingerprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// IndexVersion is the current version of the persisted index format.
const IndexVersion = 1

// FileRecord is one tracked file in the persisted index.
type FileRecord struct {
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	LastSeen    time.Time `json:"lastSeen"`
}

// ChangeSet is the four-way partition of a file-set diff. The lists are
// pairwise disjoint and their union covers the union of both file sets.
type ChangeSet struct {
	Added     []string `json:"added"`
	Modified  []string `json:"modified"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`
}

// HasChanges reports whether anything was added, modified, or removed.
func (cs ChangeSet) HasChanges() bool {
	return len(cs.Added) > 0 || len(cs.Modified) > 0 || len(cs.Removed) > 0
}

// indexFile is the on-disk shape of the persisted index.
type indexFile struct {
	Version   int          `json:"version"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Count     int          `json:"count"`
	Files     []FileRecord `json:"files"`
}

// Load reads the persisted index. A missing, unreadable, or corrupt index
// reads as empty with exists=false: first-run semantics, never an error.
func (ix *Index) Load() (records map[string]FileRecord, exists bool) {
	records = make(map[string]FileRecord)

	data, err := os.ReadFile(ix.indexPath)
	if err != nil {
		return records, false
	}

	var stored indexFile
	if err := json.Unmarshal(data, &stored); err != nil {
		ix.logger.Warn("Fingerprint index corrupt, treating as empty",
			"path", ix.indexPath, "error", err.Error())
		return records, false
	}
	if stored.Version != IndexVersion {
		ix.logger.Warn("Fingerprint index version mismatch, treating as empty",
			"path", ix.indexPath, "version", stored.Version)
		return records, false
	}

	for _, rec := range stored.Files {
		records[rec.Path] = rec
	}
	return records, true
}

// UpdatedAt returns the timestamp of the persisted index, if any.
func (ix *Index) UpdatedAt() (time.Time, bool) {
	data, err := os.ReadFile(ix.indexPath)
	if err != nil {
		return time.Time{}, false
	}
	var stored indexFile
	if err := json.Unmarshal(data, &stored); err != nil {
		return time.Time{}, false
	}
	return stored.UpdatedAt, true
}

// Commit persists current as the new index, replacing the prior one
// atomically (write-temp-then-rename) so a crash mid-write cannot corrupt it.
func (ix *Index) Commit(current map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(ix.indexPath), 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	now := time.Now().UTC()
	files := make([]FileRecord, 0, len(current))
	for path, hash := range current {
		files = append(files, FileRecord{Path: path, Fingerprint: hash, LastSeen: now})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	stored := indexFile{
		Version:   IndexVersion,
		UpdatedAt: now,
		Count:     len(files),
		Files:     files,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}

	tmp := ix.indexPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing index temp file: %w", err)
	}
	if err := os.Rename(tmp, ix.indexPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing index: %w", err)
	}

	ix.logger.Debug("Fingerprint index committed", "files", len(files))
	return nil
}

// Diff computes the four-way partition of current against previous.
// All lists come back sorted.
func Diff(current map[string]string, previous map[string]FileRecord) ChangeSet {
	cs := ChangeSet{
		Added:     []string{},
		Modified:  []string{},
		Removed:   []string{},
		Unchanged: []string{},
	}

	for path, hash := range current {
		prev, ok := previous[path]
		switch {
		case !ok:
			cs.Added = append(cs.Added, path)
		case prev.Fingerprint != hash:
			cs.Modified = append(cs.Modified, path)
		default:
			cs.Unchanged = append(cs.Unchanged, path)
		}
	}

	for path := range previous {
		if _, ok := current[path]; !ok {
			cs.Removed = append(cs.Removed, path)
		}
	}

	sort.Strings(cs.Added)
	sort.Strings(cs.Modified)
	sort.Strings(cs.Removed)
	sort.Strings(cs.Unchanged)

	return cs
}
