package analyzers

import (
	"context"
	"strings"

	"sca/internal/audit"
)

const maxLineLength = 160

var lintExtensions = map[string]bool{".go": true}

// LintTool flags overlong lines, unresolved task markers, and trailing
// whitespace in Go source.
func LintTool() audit.Tool {
	return audit.Tool{
		Name:         "lint",
		Kind:         audit.KindFileScoped,
		AnalyzeFiles: analyzeLint,
		Reduce:       audit.CountReducer,
	}
}

func analyzeLint(ctx context.Context, root string, files []string) (audit.FindingsByFile, error) {
	if len(files) == 0 {
		var err error
		files, err = listSourceFiles(root, lintExtensions)
		if err != nil {
			return nil, err
		}
	}

	out := audit.FindingsByFile{}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !lintExtensions[extOf(rel)] {
			continue
		}

		data, err := readProjectFile(root, rel)
		if err != nil {
			continue
		}
		if findings := lintContent(rel, string(data)); len(findings) > 0 {
			out[rel] = findings
		}
	}

	return out, nil
}

func lintContent(rel, content string) []audit.Finding {
	var findings []audit.Finding

	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1

		if len(line) > maxLineLength {
			findings = append(findings, audit.Finding{
				Path:     rel,
				Line:     lineNo,
				Rule:     "long-line",
				Severity: audit.SeverityLow,
				Message:  "line exceeds 160 characters",
			})
		}

		if idx := strings.Index(line, "//"); idx >= 0 {
			comment := line[idx:]
			if strings.Contains(comment, "TODO") || strings.Contains(comment, "FIXME") {
				findings = append(findings, audit.Finding{
					Path:     rel,
					Line:     lineNo,
					Rule:     "task-marker",
					Severity: audit.SeverityLow,
					Message:  "unresolved task marker",
				})
			}
		}

		if line != "" && strings.TrimRight(line, " \t") != line {
			findings = append(findings, audit.Finding{
				Path:     rel,
				Line:     lineNo,
				Rule:     "trailing-whitespace",
				Severity: audit.SeverityLow,
				Message:  "trailing whitespace",
			})
		}
	}

	return findings
}

func extOf(rel string) string {
	if idx := strings.LastIndex(rel, "."); idx >= 0 {
		return rel[idx:]
	}
	return ""
}
