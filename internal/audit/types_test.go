package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestToolValidate(t *testing.T) {
	fileAnalyzer := func(ctx context.Context, root string, files []string) (FindingsByFile, error) {
		return nil, nil
	}
	projectAnalyzer := func(ctx context.Context, root string) (json.RawMessage, error) {
		return nil, nil
	}

	tests := []struct {
		name    string
		tool    Tool
		wantErr bool
	}{
		{
			name:    "valid file-scoped",
			tool:    Tool{Name: "lint", Kind: KindFileScoped, AnalyzeFiles: fileAnalyzer, Reduce: CountReducer},
			wantErr: false,
		},
		{
			name:    "valid project-scoped",
			tool:    Tool{Name: "deps", Kind: KindProjectScoped, AnalyzeProject: projectAnalyzer},
			wantErr: false,
		},
		{
			name:    "missing name",
			tool:    Tool{Kind: KindFileScoped, AnalyzeFiles: fileAnalyzer, Reduce: CountReducer},
			wantErr: true,
		},
		{
			name:    "file-scoped without analyzer",
			tool:    Tool{Name: "lint", Kind: KindFileScoped, Reduce: CountReducer},
			wantErr: true,
		},
		{
			name:    "file-scoped without reducer",
			tool:    Tool{Name: "lint", Kind: KindFileScoped, AnalyzeFiles: fileAnalyzer},
			wantErr: true,
		},
		{
			name:    "project-scoped without analyzer",
			tool:    Tool{Name: "deps", Kind: KindProjectScoped},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			tool:    Tool{Name: "x", Kind: ToolKind("weird")},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tool.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	analyzer := func(ctx context.Context, root string) (json.RawMessage, error) { return nil, nil }

	_, err := NewRegistry(
		Tool{Name: "deps", Kind: KindProjectScoped, AnalyzeProject: analyzer},
		Tool{Name: "deps", Kind: KindProjectScoped, AnalyzeProject: analyzer},
	)
	if err == nil {
		t.Error("expected error for duplicate tool name")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	analyzer := func(ctx context.Context, root string) (json.RawMessage, error) { return nil, nil }

	reg, err := NewRegistry(
		Tool{Name: "zeta", Kind: KindProjectScoped, AnalyzeProject: analyzer},
		Tool{Name: "alpha", Kind: KindProjectScoped, AnalyzeProject: analyzer},
	)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("Names() = %v, expected sorted order", names)
	}
}

func TestCountReducer(t *testing.T) {
	perFile := FindingsByFile{
		"a.go": {
			{Path: "a.go", Rule: "todo", Severity: SeverityLow},
			{Path: "a.go", Rule: "secret", Severity: SeverityCritical},
		},
		"b.go": {
			{Path: "b.go", Rule: "todo", Severity: SeverityLow},
		},
		"clean.go": {},
	}

	raw, err := CountReducer(perFile)
	if err != nil {
		t.Fatalf("CountReducer failed: %v", err)
	}

	var sum Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("aggregate is not valid JSON: %v", err)
	}

	if sum.Files != 2 {
		t.Errorf("Files = %d, expected 2", sum.Files)
	}
	if sum.Findings != 3 {
		t.Errorf("Findings = %d, expected 3", sum.Findings)
	}
	if sum.ByRule["todo"] != 2 {
		t.Errorf("ByRule[todo] = %d, expected 2", sum.ByRule["todo"])
	}
	if sum.BySeverity[SeverityCritical] != 1 {
		t.Errorf("BySeverity[critical] = %d, expected 1", sum.BySeverity[SeverityCritical])
	}
	if sum.MaxSeverity != SeverityCritical {
		t.Errorf("MaxSeverity = %s, expected critical", sum.MaxSeverity)
	}
}

func TestCountReducerMaxSeverity(t *testing.T) {
	perFile := FindingsByFile{
		"a.go": {
			{Path: "a.go", Rule: "todo", Severity: SeverityLow},
			{Path: "a.go", Rule: "style", Severity: SeverityMedium},
		},
	}

	raw, err := CountReducer(perFile)
	if err != nil {
		t.Fatalf("CountReducer failed: %v", err)
	}

	var sum Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatal(err)
	}
	if sum.MaxSeverity != SeverityMedium {
		t.Errorf("MaxSeverity = %s, expected medium", sum.MaxSeverity)
	}

	empty, err := CountReducer(FindingsByFile{})
	if err != nil {
		t.Fatal(err)
	}
	var emptySum Summary
	if err := json.Unmarshal(empty, &emptySum); err != nil {
		t.Fatal(err)
	}
	if emptySum.MaxSeverity != "" {
		t.Errorf("MaxSeverity = %s, expected empty for no findings", emptySum.MaxSeverity)
	}
}

func TestCountReducerDeterministic(t *testing.T) {
	perFile := FindingsByFile{
		"a.go": {{Path: "a.go", Rule: "r1", Severity: SeverityHigh}},
		"b.go": {{Path: "b.go", Rule: "r2", Severity: SeverityLow}},
	}

	first, err := CountReducer(perFile)
	if err != nil {
		t.Fatal(err)
	}
	second, err := CountReducer(perFile)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("reducer not deterministic: %s vs %s", first, second)
	}
}
