package analyzers

import (
	"context"
	"math"
	"regexp"
	"strings"

	"sca/internal/audit"
)

// secretPattern defines one credential detection rule.
type secretPattern struct {
	Name       string
	Severity   audit.Severity
	Regex      *regexp.Regexp
	MinEntropy float64 // 0 = disabled
}

// secretPatterns are based on well-known credential formats.
var secretPatterns = []secretPattern{
	{
		Name:     "aws_access_key_id",
		Severity: audit.SeverityCritical,
		Regex:    regexp.MustCompile(`(?:^|[^A-Z0-9])((?:AKIA|ABIA|ACCA|AGPA|AIDA|ANPA|AROA|ASIA)[A-Z0-9]{16})(?:[^A-Z0-9]|$)`),
	},
	{
		Name:       "aws_secret_key",
		Severity:   audit.SeverityCritical,
		Regex:      regexp.MustCompile(`(?i)(?:aws[_-]?)?secret[_-]?(?:access[_-]?)?key['":\s=]+['"]?([A-Za-z0-9/+=]{40})['"]?`),
		MinEntropy: 3.5,
	},
	{
		Name:     "github_token",
		Severity: audit.SeverityCritical,
		Regex:    regexp.MustCompile(`gh[oprsu]_[A-Za-z0-9]{36,}`),
	},
	{
		Name:     "stripe_live_key",
		Severity: audit.SeverityCritical,
		Regex:    regexp.MustCompile(`[sr]k_live_[A-Za-z0-9]{24,}`),
	},
	{
		Name:     "slack_token",
		Severity: audit.SeverityHigh,
		Regex:    regexp.MustCompile(`xox[bpas]-[0-9]{10,13}-[A-Za-z0-9-]{10,}`),
	},
	{
		Name:     "private_key",
		Severity: audit.SeverityCritical,
		Regex:    regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |PGP )?PRIVATE KEY`),
	},
	{
		Name:       "generic_api_key",
		Severity:   audit.SeverityMedium,
		Regex:      regexp.MustCompile(`(?i)(?:api[_-]?key|auth[_-]?token|access[_-]?token)['":\s=]+['"]([A-Za-z0-9_\-]{20,})['"]`),
		MinEntropy: 3.0,
	},
}

// secretExtensions limits scanning to text-like files.
var secretExtensions = map[string]bool{
	".go": true, ".js": true, ".ts": true, ".py": true, ".rb": true,
	".java": true, ".sh": true, ".yaml": true, ".yml": true, ".json": true,
	".toml": true, ".env": true, ".txt": true, ".md": true, ".cfg": true,
	".ini": true, ".properties": true, ".tf": true,
}

// SecretsTool scans source files for embedded credentials.
func SecretsTool() audit.Tool {
	return audit.Tool{
		Name:         "secrets",
		Kind:         audit.KindFileScoped,
		AnalyzeFiles: analyzeSecrets,
		Reduce:       audit.CountReducer,
	}
}

func analyzeSecrets(ctx context.Context, root string, files []string) (audit.FindingsByFile, error) {
	if len(files) == 0 {
		var err error
		files, err = listSourceFiles(root, secretExtensions)
		if err != nil {
			return nil, err
		}
	}

	out := audit.FindingsByFile{}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := readProjectFile(root, rel)
		if err != nil {
			continue
		}
		if findings := scanContent(rel, string(data)); len(findings) > 0 {
			out[rel] = findings
		}
	}

	return out, nil
}

// scanContent applies all patterns to a file's content, line by line.
func scanContent(rel, content string) []audit.Finding {
	var findings []audit.Finding

	for i, line := range strings.Split(content, "\n") {
		for _, p := range secretPatterns {
			m := p.Regex.FindStringSubmatch(line)
			if m == nil {
				continue
			}

			if p.MinEntropy > 0 {
				candidate := m[0]
				if len(m) > 1 {
					candidate = m[1]
				}
				if shannonEntropy(candidate) < p.MinEntropy {
					continue
				}
			}

			findings = append(findings, audit.Finding{
				Path:     rel,
				Line:     i + 1,
				Rule:     p.Name,
				Severity: p.Severity,
				Message:  "possible credential in source",
			})
		}
	}

	return findings
}

// shannonEntropy measures the randomness of a candidate string. Real
// credentials are high-entropy; words and paths are not.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}

	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
