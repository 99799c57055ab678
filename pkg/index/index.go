// Package index loads a curated link index from a JSONL file and answers
// lookups by canonical URL, falling back to the fuzzy key. Each line in the
// file is one dated issue holding a list of links with editorial titles and
// descriptions; those beat anything a model would generate.
package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bszwed/linkmark/pkg/urlkey"
)

// Entry is the curated metadata for one known URL.
type Entry struct {
	Title       string
	Description string
	Date        string
	OriginalURL string
}

// issue is one JSONL line.
type issue struct {
	Date  string `json:"date"`
	Links []struct {
		Link        string `json:"link"`
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"links"`
}

// Index holds both lookup tables. Later lines win on key collisions, so the
// newest issue's wording is the one served.
type Index struct {
	exact map[string]Entry
	fuzzy map[string]Entry
}

// Load reads a JSONL index file. Blank lines are skipped; a malformed line
// is an error because the file is hand-maintained and silence would hide
// typos.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer f.Close()

	idx := &Index{
		exact: make(map[string]Entry),
		fuzzy: make(map[string]Entry),
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var is issue
		if err := json.Unmarshal(line, &is); err != nil {
			return nil, fmt.Errorf("index line %d: %w", lineNo, err)
		}
		for _, link := range is.Links {
			entry := Entry{
				Title:       link.Title,
				Description: link.Description,
				Date:        is.Date,
				OriginalURL: link.Link,
			}
			if key := urlkey.Canonicalize(link.Link); key != "" {
				idx.exact[key] = entry
			}
			if key := urlkey.FuzzyKey(link.Link); key != "" {
				idx.fuzzy[key] = entry
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	return idx, nil
}

// Lookup finds the entry for a URL, trying the canonical key before the
// fuzzy one.
func (idx *Index) Lookup(rawURL string) (Entry, bool) {
	if key := urlkey.Canonicalize(rawURL); key != "" {
		if entry, ok := idx.exact[key]; ok {
			return entry, true
		}
	}
	if key := urlkey.FuzzyKey(rawURL); key != "" {
		if entry, ok := idx.fuzzy[key]; ok {
			return entry, true
		}
	}
	return Entry{}, false
}

// Len reports how many distinct canonical URLs the index knows.
func (idx *Index) Len() int {
	return len(idx.exact)
}
