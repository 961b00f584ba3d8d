package analyzers

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"sca/internal/audit"
)

// Requirement is one module requirement from go.mod.
type Requirement struct {
	Path     string `json:"path"`
	Version  string `json:"version"`
	Indirect bool   `json:"indirect,omitempty"`
}

// DepsReport is the dependency inventory payload.
type DepsReport struct {
	Module       string        `json:"module"`
	GoVersion    string        `json:"goVersion,omitempty"`
	Requirements []Requirement `json:"requirements"`
	Direct       int           `json:"direct"`
	Indirect     int           `json:"indirect"`
}

// DepsTool inventories the project's module requirements. It only depends
// on go.mod and go.sum, so its result is cached against those files.
func DepsTool() audit.Tool {
	return audit.Tool{
		Name:           "deps",
		Kind:           audit.KindProjectScoped,
		Patterns:       []string{"go.mod", "go.sum"},
		AnalyzeProject: analyzeDeps,
	}
}

func analyzeDeps(ctx context.Context, root string) (json.RawMessage, error) {
	data, err := readProjectFile(root, "go.mod")
	if err != nil {
		// Not a module: empty inventory, not an error
		return json.Marshal(DepsReport{Requirements: []Requirement{}})
	}

	report := parseGoMod(string(data))
	return json.Marshal(report)
}

// parseGoMod extracts the module path, Go version, and requirements.
// A line parser is enough for the well-formed files the toolchain writes.
func parseGoMod(content string) DepsReport {
	report := DepsReport{Requirements: []Requirement{}}

	inRequire := false
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, "module "):
			report.Module = strings.TrimSpace(strings.TrimPrefix(line, "module "))
		case strings.HasPrefix(line, "go "):
			report.GoVersion = strings.TrimSpace(strings.TrimPrefix(line, "go "))
		case strings.HasPrefix(line, "require ("):
			inRequire = true
		case inRequire && line == ")":
			inRequire = false
		case inRequire:
			if req, ok := parseRequirement(line); ok {
				report.Requirements = append(report.Requirements, req)
			}
		case strings.HasPrefix(line, "require "):
			if req, ok := parseRequirement(strings.TrimPrefix(line, "require ")); ok {
				report.Requirements = append(report.Requirements, req)
			}
		}
	}

	sort.Slice(report.Requirements, func(i, j int) bool {
		return report.Requirements[i].Path < report.Requirements[j].Path
	})
	for _, req := range report.Requirements {
		if req.Indirect {
			report.Indirect++
		} else {
			report.Direct++
		}
	}

	return report
}

func parseRequirement(line string) (Requirement, bool) {
	indirect := strings.Contains(line, "// indirect")
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}

	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Requirement{}, false
	}

	return Requirement{
		Path:     fields[0],
		Version:  fields[1],
		Indirect: indirect,
	}, true
}
