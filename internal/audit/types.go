// Package audit defines the analysis tool contract shared by the result
// store, the orchestrator, and the coordinator: findings, reducers, and the
// static tool registry.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Severity indicates the risk level of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityWeight returns a numeric weight for sorting.
func SeverityWeight(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Finding is a single issue attributed to a source file.
type Finding struct {
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// FindingsByFile maps project-relative paths to the findings in that file.
type FindingsByFile map[string][]Finding

// Reducer derives a tool's aggregate summary from its full per-file findings
// map. Reducers must be pure and total: the same map always yields the same
// aggregate, with no dependency on any previously computed aggregate.
type Reducer func(perFile FindingsByFile) (json.RawMessage, error)

// ToolKind classifies how a tool's findings decompose.
type ToolKind string

const (
	// KindFileScoped tools attribute every finding to a single file and are
	// eligible for incremental merge through the result store.
	KindFileScoped ToolKind = "file"
	// KindProjectScoped tools must see the entire project; they run through
	// the pattern cache or unconditionally.
	KindProjectScoped ToolKind = "project"
)

// FileAnalyzer analyzes a project, optionally restricted to a file subset.
// A nil or empty subset means the whole project. Implementations are free to
// ignore the subset and return findings for more files than requested; the
// merge step folds in whatever comes back.
type FileAnalyzer func(ctx context.Context, projectRoot string, files []string) (FindingsByFile, error)

// ProjectAnalyzer analyzes a whole project and returns an opaque payload.
type ProjectAnalyzer func(ctx context.Context, projectRoot string) (json.RawMessage, error)

// Tool is one registered analysis procedure.
type Tool struct {
	Name string
	Kind ToolKind

	// AnalyzeFiles is required for KindFileScoped tools.
	AnalyzeFiles FileAnalyzer
	// AnalyzeProject is required for KindProjectScoped tools.
	AnalyzeProject ProjectAnalyzer

	// Reduce derives the aggregate for file-scoped tools.
	Reduce Reducer

	// Patterns lists dependency globs for pattern-cached project tools.
	// Empty means the tool runs unconditionally on every audit.
	Patterns []string
	// MaxAge overrides the pattern cache TTL for this tool (0 = global default).
	MaxAge time.Duration
}

// Validate checks that the tool declaration is internally consistent.
func (t Tool) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	switch t.Kind {
	case KindFileScoped:
		if t.AnalyzeFiles == nil {
			return fmt.Errorf("tool %s: file-scoped tool needs AnalyzeFiles", t.Name)
		}
		if t.Reduce == nil {
			return fmt.Errorf("tool %s: file-scoped tool needs a reducer", t.Name)
		}
	case KindProjectScoped:
		if t.AnalyzeProject == nil {
			return fmt.Errorf("tool %s: project-scoped tool needs AnalyzeProject", t.Name)
		}
	default:
		return fmt.Errorf("tool %s: unknown kind %q", t.Name, t.Kind)
	}
	return nil
}

// Registry is the static name -> tool table built at startup.
type Registry map[string]Tool

// NewRegistry validates and indexes a tool set. Duplicate names are rejected.
func NewRegistry(tools ...Tool) (Registry, error) {
	reg := make(Registry, len(tools))
	for _, t := range tools {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, ok := reg[t.Name]; ok {
			return nil, fmt.Errorf("duplicate tool name %q", t.Name)
		}
		reg[t.Name] = t
	}
	return reg, nil
}

// Names returns the registered tool names in stable order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary is the aggregate shape produced by CountReducer.
type Summary struct {
	Files       int              `json:"files"`
	Findings    int              `json:"findings"`
	MaxSeverity Severity         `json:"maxSeverity,omitempty"`
	BySeverity  map[Severity]int `json:"bySeverity,omitempty"`
	ByRule      map[string]int   `json:"byRule,omitempty"`
}

// CountReducer is the standard reducer: finding counts by file, severity,
// and rule. Files with zero findings do not contribute to the file count.
func CountReducer(perFile FindingsByFile) (json.RawMessage, error) {
	sum := Summary{
		BySeverity: make(map[Severity]int),
		ByRule:     make(map[string]int),
	}

	for _, findings := range perFile {
		if len(findings) == 0 {
			continue
		}
		sum.Files++
		for _, f := range findings {
			sum.Findings++
			sum.BySeverity[f.Severity]++
			sum.ByRule[f.Rule]++
			if SeverityWeight(f.Severity) > SeverityWeight(sum.MaxSeverity) {
				sum.MaxSeverity = f.Severity
			}
		}
	}

	if len(sum.BySeverity) == 0 {
		sum.BySeverity = nil
	}
	if len(sum.ByRule) == 0 {
		sum.ByRule = nil
	}

	return json.Marshal(sum)
}
