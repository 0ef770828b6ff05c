// SPDX-License-Identifier: MIT

// Package cache persists raw EPG documents on disk, one body file plus one
// JSON metadata sidecar per source name, invalidated by age only.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/renameio/v2"

	"github.com/mraffaele/guida/internal/log"
)

// Metadata is the small validity record written next to each cached body.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Size      int       `json:"size"`
}

// Store is a disk-backed document cache with time-based invalidation.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// DefaultTTL is how long a cached document stays fresh.
const DefaultTTL = 12 * time.Hour

// New creates a store rooted at dir, creating the directory if absent.
// A zero ttl means DefaultTTL.
func New(dir string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir, ttl: ttl, now: time.Now}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func (s *Store) bodyPath(name string) string {
	return filepath.Join(s.dir, unsafeChars.ReplaceAllString(name, "_")+"_epg.xml")
}

func (s *Store) metaPath(name string) string {
	return filepath.Join(s.dir, unsafeChars.ReplaceAllString(name, "_")+"_meta.json")
}

// IsValid reports whether the entry for name exists and is younger than the
// TTL. Any metadata read or parse error counts as invalid: the failure mode
// is a re-fetch, never serving corrupt data.
func (s *Store) IsValid(name string) bool {
	raw, err := os.ReadFile(s.metaPath(name))
	if err != nil {
		return false
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return false
	}
	if _, err := os.Stat(s.bodyPath(name)); err != nil {
		return false
	}
	return s.now().Sub(meta.Timestamp) < s.ttl
}

// Get returns the cached body for name if the entry is still valid.
func (s *Store) Get(name string) ([]byte, bool) {
	if !s.IsValid(name) {
		return nil, false
	}
	data, err := os.ReadFile(s.bodyPath(name))
	if err != nil {
		logger := log.WithComponent("cache")
		logger.Warn().Err(err).Str("source", name).Msg("cache body read failed")
		return nil, false
	}
	return data, true
}

// GetAny returns the cached body regardless of age. Callers use it to fall
// back to a stale document when every download attempt failed.
func (s *Store) GetAny(name string) ([]byte, bool) {
	data, err := os.ReadFile(s.bodyPath(name))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put writes the body first and the metadata second, both atomically, so a
// partial write can never yield an entry that IsValid reports as true with a
// missing or truncated body.
func (s *Store) Put(name string, data []byte) error {
	if err := renameio.WriteFile(s.bodyPath(name), data, 0o644); err != nil {
		return fmt.Errorf("write cache body for %s: %w", name, err)
	}
	meta, err := json.Marshal(Metadata{Timestamp: s.now().UTC(), Size: len(data)})
	if err != nil {
		return fmt.Errorf("marshal cache metadata for %s: %w", name, err)
	}
	if err := renameio.WriteFile(s.metaPath(name), meta, 0o644); err != nil {
		return fmt.Errorf("write cache metadata for %s: %w", name, err)
	}
	return nil
}

// Clear removes the entry for name. Missing files are not an error.
func (s *Store) Clear(name string) {
	_ = os.Remove(s.bodyPath(name))
	_ = os.Remove(s.metaPath(name))
}

// ClearAll removes every entry in the cache directory.
func (s *Store) ClearAll() {
	for _, pattern := range []string{"*_epg.xml", "*_meta.json"} {
		matches, err := filepath.Glob(filepath.Join(s.dir, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			_ = os.Remove(m)
		}
	}
}
