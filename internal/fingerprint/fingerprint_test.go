package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"sca/internal/slogutil"
)

func newTestIndex(t *testing.T, root string, cfg ScanConfig) *Index {
	t.Helper()
	return NewIndex(root, filepath.Join(root, ".sca", "index.json"), cfg, slogutil.NewDiscardLogger())
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestHashFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")

	hash, err := HashFile(filepath.Join(root, "a.go"))
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	expected := fmt.Sprintf("%x", sha256.Sum256([]byte("package a\n")))
	if hash != expected {
		t.Errorf("HashFile = %q, expected %q", hash, expected)
	}
}

func TestScanFiltersAndSkips(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "pkg/util.go", "package pkg\n")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")
	writeFile(t, root, "gen/out.go", "package gen\n")

	ix := newTestIndex(t, root, ScanConfig{Extensions: []string{".go"}, Excludes: []string{"gen"}})

	current, err := ix.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(current) != 2 {
		t.Fatalf("Scan returned %d files, expected 2: %v", len(current), current)
	}
	if _, ok := current["main.go"]; !ok {
		t.Error("main.go missing from scan")
	}
	if _, ok := current["pkg/util.go"]; !ok {
		t.Error("pkg/util.go missing from scan")
	}
	if _, ok := current["vendor/dep/dep.go"]; ok {
		t.Error("vendor should never be descended into")
	}
	if _, ok := current["gen/out.go"]; ok {
		t.Error("excluded directory should be skipped")
	}
}

func TestScanSizeLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package a\n")
	writeFile(t, root, "big.go", string(make([]byte, 2048)))

	ix := newTestIndex(t, root, ScanConfig{Extensions: []string{".go"}, MaxFileSizeBytes: 1024})

	current, err := ix.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := current["big.go"]; ok {
		t.Error("oversized file should be out of scope")
	}
	if _, ok := current["small.go"]; !ok {
		t.Error("small file should be in scope")
	}
}

func TestDiffPartitionInvariant(t *testing.T) {
	previous := map[string]FileRecord{
		"kept.go":     {Path: "kept.go", Fingerprint: "h1"},
		"changed.go":  {Path: "changed.go", Fingerprint: "h2"},
		"deleted.go":  {Path: "deleted.go", Fingerprint: "h3"},
		"deleted2.go": {Path: "deleted2.go", Fingerprint: "h4"},
	}
	current := map[string]string{
		"kept.go":    "h1",
		"changed.go": "h2-new",
		"new.go":     "h5",
	}

	cs := Diff(current, previous)

	if len(cs.Added) != 1 || cs.Added[0] != "new.go" {
		t.Errorf("Added = %v", cs.Added)
	}
	if len(cs.Modified) != 1 || cs.Modified[0] != "changed.go" {
		t.Errorf("Modified = %v", cs.Modified)
	}
	if len(cs.Removed) != 2 {
		t.Errorf("Removed = %v", cs.Removed)
	}
	if len(cs.Unchanged) != 1 || cs.Unchanged[0] != "kept.go" {
		t.Errorf("Unchanged = %v", cs.Unchanged)
	}

	// The four lists are pairwise disjoint and cover the union of both sets
	seen := make(map[string]int)
	for _, list := range [][]string{cs.Added, cs.Modified, cs.Removed, cs.Unchanged} {
		for _, p := range list {
			seen[p]++
		}
	}
	union := make(map[string]bool)
	for p := range current {
		union[p] = true
	}
	for p := range previous {
		union[p] = true
	}
	if len(seen) != len(union) {
		t.Errorf("partition covers %d paths, union has %d", len(seen), len(union))
	}
	for p, n := range seen {
		if n != 1 {
			t.Errorf("path %s appears in %d lists", p, n)
		}
	}
}

func TestDiffEmptyPrevious(t *testing.T) {
	current := map[string]string{"a.go": "h1", "b.go": "h2"}

	cs := Diff(current, map[string]FileRecord{})

	if len(cs.Added) != 2 {
		t.Errorf("Added = %v, expected all files added on first run", cs.Added)
	}
	if cs.HasChanges() != true {
		t.Error("expected HasChanges")
	}
}

func TestLoadMissingIndex(t *testing.T) {
	root := t.TempDir()
	ix := newTestIndex(t, root, ScanConfig{})

	records, exists := ix.Load()
	if exists {
		t.Error("missing index should report exists=false")
	}
	if len(records) != 0 {
		t.Errorf("missing index should read as empty, got %d records", len(records))
	}
}

func TestLoadCorruptIndex(t *testing.T) {
	root := t.TempDir()
	ix := newTestIndex(t, root, ScanConfig{})

	writeFile(t, root, ".sca/index.json", "{not json")

	records, exists := ix.Load()
	if exists {
		t.Error("corrupt index should report exists=false")
	}
	if len(records) != 0 {
		t.Error("corrupt index should read as empty")
	}
}

func TestCommitAndReload(t *testing.T) {
	root := t.TempDir()
	ix := newTestIndex(t, root, ScanConfig{})

	current := map[string]string{"a.go": "h1", "b.go": "h2"}
	if err := ix.Commit(current); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	records, exists := ix.Load()
	if !exists {
		t.Fatal("committed index should exist")
	}
	if len(records) != 2 {
		t.Fatalf("reloaded %d records, expected 2", len(records))
	}
	if records["a.go"].Fingerprint != "h1" {
		t.Errorf("a.go fingerprint = %q", records["a.go"].Fingerprint)
	}

	// No temp file left behind
	if _, err := os.Stat(filepath.Join(root, ".sca", "index.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after commit")
	}
}

func TestCommitReplacesPrior(t *testing.T) {
	root := t.TempDir()
	ix := newTestIndex(t, root, ScanConfig{})

	if err := ix.Commit(map[string]string{"a.go": "h1", "gone.go": "h2"}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Commit(map[string]string{"a.go": "h1-new"}); err != nil {
		t.Fatal(err)
	}

	records, _ := ix.Load()
	if len(records) != 1 {
		t.Fatalf("expected 1 record after replace, got %d", len(records))
	}
	if records["a.go"].Fingerprint != "h1-new" {
		t.Errorf("a.go fingerprint = %q", records["a.go"].Fingerprint)
	}
}

func TestScanDiffRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.go", "package b\n")

	ix := newTestIndex(t, root, ScanConfig{Extensions: []string{".go"}})

	first, err := ix.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Commit(first); err != nil {
		t.Fatal(err)
	}

	// Modify one, add one, remove one
	writeFile(t, root, "a.go", "package a // changed\n")
	writeFile(t, root, "c.go", "package c\n")
	if err := os.Remove(filepath.Join(root, "b.go")); err != nil {
		t.Fatal(err)
	}

	second, err := ix.Scan()
	if err != nil {
		t.Fatal(err)
	}
	previous, _ := ix.Load()
	cs := Diff(second, previous)

	if len(cs.Added) != 1 || cs.Added[0] != "c.go" {
		t.Errorf("Added = %v", cs.Added)
	}
	if len(cs.Modified) != 1 || cs.Modified[0] != "a.go" {
		t.Errorf("Modified = %v", cs.Modified)
	}
	if len(cs.Removed) != 1 || cs.Removed[0] != "b.go" {
		t.Errorf("Removed = %v", cs.Removed)
	}
}
