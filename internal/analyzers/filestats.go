package analyzers

import (
	"bytes"
	"context"
	"encoding/json"

	"sca/internal/audit"
)

// StatsReport summarizes the project tree.
type StatsReport struct {
	Files       int            `json:"files"`
	Lines       int            `json:"lines"`
	Bytes       int64          `json:"bytes"`
	ByExtension map[string]int `json:"byExtension,omitempty"`
}

// FileStatsTool computes whole-tree statistics. It declares no dependency
// patterns, so it runs on every audit.
func FileStatsTool() audit.Tool {
	return audit.Tool{
		Name:           "filestats",
		Kind:           audit.KindProjectScoped,
		AnalyzeProject: analyzeFileStats,
	}
}

func analyzeFileStats(ctx context.Context, root string) (json.RawMessage, error) {
	files, err := listSourceFiles(root, nil)
	if err != nil {
		return nil, err
	}

	report := StatsReport{ByExtension: make(map[string]int)}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := readProjectFile(root, rel)
		if err != nil {
			continue
		}

		report.Files++
		report.Bytes += int64(len(data))
		report.Lines += bytes.Count(data, []byte{'\n'})
		if ext := extOf(rel); ext != "" {
			report.ByExtension[ext]++
		}
	}

	if len(report.ByExtension) == 0 {
		report.ByExtension = nil
	}
	return json.Marshal(report)
}
