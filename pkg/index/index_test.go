package index

import (
	"os"
	"path/filepath"
	"testing"
)

func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleIndex = `{"date":"2026-07-01","links":[{"link":"https://example.com/post?utm_source=news","title":"A Great Post","description":"Why it is great."}]}

{"date":"2026-08-01","links":[{"link":"https://blog.example.org/entry/","title":"Entry","description":"Notes."}]}
`

func TestLoadAndLookup(t *testing.T) {
	idx, err := Load(writeIndex(t, sampleIndex))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}

	// Exact match modulo canonicalization.
	entry, ok := idx.Lookup("http://example.com/post?utm_source=other")
	if !ok {
		t.Fatal("Lookup() = miss, want hit via canonical key")
	}
	if entry.Title != "A Great Post" || entry.Date != "2026-07-01" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestLookup_FuzzyFallback(t *testing.T) {
	idx, err := Load(writeIndex(t, sampleIndex))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Trailing slash differs, so only the fuzzy key matches.
	entry, ok := idx.Lookup("https://blog.example.org/entry")
	if !ok {
		t.Fatal("Lookup() = miss, want fuzzy hit")
	}
	if entry.Title != "Entry" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestLookup_Miss(t *testing.T) {
	idx, err := Load(writeIndex(t, sampleIndex))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := idx.Lookup("https://unknown.example.net/x"); ok {
		t.Error("Lookup() = hit for unknown URL")
	}
}

func TestLoad_MalformedLine(t *testing.T) {
	if _, err := Load(writeIndex(t, "{broken\n")); err == nil {
		t.Error("Load() error = nil for malformed line, want error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Error("Load() error = nil for missing file, want error")
	}
}
