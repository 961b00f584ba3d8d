// Package paths centralizes the on-disk layout of per-project audit state.
// All persisted artifacts live under <projectRoot>/.sca.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const stateDirName = ".sca"

// StateDir returns the audit state directory for a project root.
func StateDir(projectRoot string) string {
	return filepath.Join(projectRoot, stateDirName)
}

// EnsureStateDir creates the state directory if needed and returns its path.
func EnsureStateDir(projectRoot string) (string, error) {
	dir := StateDir(projectRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// IndexPath returns the path of the persisted fingerprint index.
func IndexPath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), "index.json")
}

// DBPath returns the path of the cache database.
func DBPath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), "sca.db")
}

// LockPath returns the path of the per-project audit lock file.
func LockPath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), "audit.lock")
}

// LogsDir returns the log directory for a project root.
func LogsDir(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), "logs")
}

// EnsureLogsDir creates the log directory if needed and returns its path.
func EnsureLogsDir(projectRoot string) (string, error) {
	dir := LogsDir(projectRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// AuditLogPath returns the path of the audit log file.
func AuditLogPath(projectRoot string) string {
	return filepath.Join(LogsDir(projectRoot), "audit.log")
}

// NormalizePath normalizes a path by converting backslashes to forward slashes.
// Persisted paths always use forward slashes so indexes are portable across OS.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// Canonicalize converts an absolute path to a project-relative canonical path
// with forward slashes.
func Canonicalize(absolutePath string, projectRoot string) (string, error) {
	relativePath, err := filepath.Rel(projectRoot, absolutePath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relativePath), nil
}

// IsWithinProject checks if a path is within the project root.
func IsWithinProject(path string, projectRoot string) bool {
	canonical, err := Canonicalize(path, projectRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// JoinProjectPath joins a project root with a canonical forward-slash path.
func JoinProjectPath(projectRoot string, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{projectRoot}, parts...)...)
}
