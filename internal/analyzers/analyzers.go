// Package analyzers provides the built-in analysis tools: credential
// scanning, style lint, dependency inventory, and project statistics.
package analyzers

import (
	"os"
	"path/filepath"

	"sca/internal/audit"
	"sca/internal/paths"
)

// Builtin returns the registry of all built-in tools.
func Builtin() (audit.Registry, error) {
	return audit.NewRegistry(
		SecretsTool(),
		LintTool(),
		DepsTool(),
		FileStatsTool(),
	)
}

// Directories never scanned by the built-in analyzers
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
}

// listSourceFiles walks the project and returns project-relative forward
// slash paths of all regular files, excluding the skip set.
func listSourceFiles(root string, extensions map[string]bool) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil //nolint:nilerr // Skip inaccessible entries, continue walking
		}
		if info.IsDir() {
			if path != root && skipDirs[filepath.Base(path)] {
				return filepath.SkipDir
			}
			return nil
		}
		if len(extensions) > 0 && !extensions[filepath.Ext(path)] {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil //nolint:nilerr // Outside root, skip
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// readProjectFile reads a file by its canonical project-relative path.
func readProjectFile(root, rel string) ([]byte, error) {
	return os.ReadFile(paths.JoinProjectPath(root, rel))
}
