// Package fingerprint tracks file content fingerprints for change detection.
// It scans a project tree, diffs the result against a persisted index, and
// commits the new state atomically.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Directories never descended into during a scan
var skipDirs = map[string]bool{
	".git":         true,
	".sca":         true,
	".hg":          true,
	"vendor":       true,
	"node_modules": true,
	"bin":          true,
	"dist":         true,
	"out":          true,
	".cache":       true,
	"testdata":     true,
}

// ScanConfig controls which files a scan picks up.
type ScanConfig struct {
	Extensions       []string // file extensions to include, e.g. ".go"
	Excludes         []string // glob patterns or directory prefixes to skip
	MaxFileSizeBytes int64    // 0 = no limit
}

// Index owns the persisted fingerprint state for one project.
type Index struct {
	projectRoot string
	indexPath   string
	config      ScanConfig
	logger      *slog.Logger
}

// NewIndex creates an index for the given project root. indexPath is the
// location of the persisted artifact.
func NewIndex(projectRoot, indexPath string, config ScanConfig, logger *slog.Logger) *Index {
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".go"}
	}
	return &Index{
		projectRoot: projectRoot,
		indexPath:   indexPath,
		config:      config,
		logger:      logger,
	}
}

// Scan walks the project and returns a path -> fingerprint map for all
// in-scope files. Paths are project-relative with forward slashes.
func (ix *Index) Scan() (map[string]string, error) {
	current := make(map[string]string)

	err := filepath.Walk(ix.projectRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == ix.projectRoot {
				return err
			}
			return nil //nolint:nilerr // Skip inaccessible entries, continue walking
		}

		if info.IsDir() {
			base := filepath.Base(path)
			if path != ix.projectRoot && (skipDirs[base] || ix.isExcluded(base)) {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, relErr := filepath.Rel(ix.projectRoot, path)
		if relErr != nil {
			return nil //nolint:nilerr // Outside root, skip
		}
		relPath = filepath.ToSlash(relPath)

		if !ix.inScope(relPath, info.Size()) {
			return nil
		}

		hash, hashErr := HashFile(path)
		if hashErr != nil {
			return nil //nolint:nilerr // Skip unreadable files, continue walking
		}
		current[relPath] = hash

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk project: %w", err)
	}

	return current, nil
}

// inScope applies the extension filter, exclude patterns, and size limit.
func (ix *Index) inScope(relPath string, size int64) bool {
	if ix.config.MaxFileSizeBytes > 0 && size > ix.config.MaxFileSizeBytes {
		return false
	}

	ext := filepath.Ext(relPath)
	matched := false
	for _, want := range ix.config.Extensions {
		if ext == want {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	return !ix.isExcluded(relPath)
}

// isExcluded checks a path against the configured exclude patterns.
// Paths are normalized to forward slashes for consistent matching across OS.
func (ix *Index) isExcluded(path string) bool {
	normalizedPath := filepath.ToSlash(path)

	for _, pattern := range ix.config.Excludes {
		normalizedPattern := filepath.ToSlash(pattern)

		if matched, _ := filepath.Match(normalizedPattern, normalizedPath); matched {
			return true
		}

		// Directory exclude: pattern "gen" should match "gen/foo/bar.go"
		dirPattern := strings.TrimSuffix(normalizedPattern, "/") + "/"
		if strings.HasPrefix(normalizedPath, dirPattern) {
			return true
		}

		if normalizedPath == strings.TrimSuffix(normalizedPattern, "/") {
			return true
		}
	}
	return false
}

// HashFile computes the SHA-256 content fingerprint of a file.
// This is a change detector, not a security primitive.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // Best effort cleanup

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// HashBytes computes the SHA-256 fingerprint of a byte slice.
func HashBytes(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
