// Package cachestore is a per-category key/value cache persisted as one JSON
// file per category. Entries optionally carry a creation timestamp so reads
// can expire them lazily; there is no background sweep. A corrupt or missing
// category file behaves as an empty cache and is repaired by the next write.
package cachestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// NoExpiry disables the age check on Get.
const NoExpiry time.Duration = -1

// Well-known categories. Each maps to <dir>/<category>.json.
const (
	CategoryArticles    = "articles"
	CategoryVideos      = "videos"
	CategoryLLM         = "llm"
	CategorySummary     = "summary"
	CategoryCollections = "collections"
)

// Store is a cache handle rooted at a directory. Safe for concurrent use
// within one process; the read-modify-write cycle of Set holds the lock so a
// single key is never half-written.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New returns a Store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// wrapped is the storage layout for entries written with a TTL. Entries
// written without one are stored as the bare value.
type wrapped struct {
	Timestamp string          `json:"timestamp"`
	Value     json.RawMessage `json:"value"`
}

func (s *Store) path(category string) string {
	return filepath.Join(s.dir, category+".json")
}

// load reads a category file, treating any read or parse failure as an
// empty cache.
func (s *Store) load(category string) map[string]json.RawMessage {
	data, err := os.ReadFile(s.path(category))
	if err != nil {
		return map[string]json.RawMessage{}
	}
	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return map[string]json.RawMessage{}
	}
	return entries
}

func (s *Store) save(category string, entries map[string]json.RawMessage) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s cache: %w", category, err)
	}
	if err := os.WriteFile(s.path(category), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s cache: %w", category, err)
	}
	return nil
}

// Get looks up key and unmarshals the cached value into out. When maxAge is
// not NoExpiry and the entry is older, it is deleted and treated as a miss.
func (s *Store) Get(category, key string, maxAge time.Duration, out any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load(category)
	raw, ok := entries[key]
	if !ok {
		return false
	}

	value := raw
	var w wrapped
	if err := json.Unmarshal(raw, &w); err == nil && w.Timestamp != "" && w.Value != nil {
		if maxAge != NoExpiry {
			created, err := time.Parse(time.RFC3339, w.Timestamp)
			if err == nil && time.Since(created) > maxAge {
				delete(entries, key)
				// Best-effort eviction; a failed save just leaves the
				// stale entry for the next read.
				_ = s.save(category, entries)
				return false
			}
		}
		value = w.Value
	}

	return json.Unmarshal(value, out) == nil
}

// Set stores value under key, overwriting any previous entry. A positive ttl
// records a creation timestamp so Get can expire the entry; zero or negative
// ttl stores the bare value, which never expires.
func (s *Store) Set(category, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	var entry json.RawMessage
	if ttl > 0 {
		entry, err = json.Marshal(wrapped{
			Timestamp: time.Now().Format(time.RFC3339),
			Value:     raw,
		})
		if err != nil {
			return fmt.Errorf("failed to encode cache entry: %w", err)
		}
	} else {
		entry = raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.load(category)
	entries[key] = entry
	return s.save(category, entries)
}

// Remove deletes one entry. Removing an absent key is not an error.
func (s *Store) Remove(category, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.load(category)
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.save(category, entries)
}

// Clear drops an entire category. Clearing an absent category is not an
// error.
func (s *Store) Clear(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(category))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear %s cache: %w", category, err)
	}
	return nil
}

// Len reports how many entries a category currently holds.
func (s *Store) Len(category string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load(category))
}
