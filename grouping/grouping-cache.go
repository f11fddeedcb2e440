package grouping

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store persists computed groupings under a cache directory. The key embeds
// the basenames of both input files, so changing either input addresses a
// different cache entry; there is no content hashing, matching the
// reproducibility model of the rest of the pipeline.
type Store struct {
	Dir string
}

// CacheName returns the cache file path for a manifest/thalweg input pair.
func (s *Store) CacheName(demsJSON, thalwegShp string) string {
	name := filepath.Base(demsJSON) + "_" + filepath.Base(thalwegShp) + "_grouping.cache"
	return filepath.Join(s.Dir, name)
}

// TryLoad returns the cached grouping for the input pair, or ok=false when
// there is none. Any failure, a missing file, unreadable content, or a
// decode error, uniformly reads as "not present"; the caller recomputes.
func (s *Store) TryLoad(demsJSON, thalwegShp string) (*Grouping, bool) {
	raw, err := os.ReadFile(s.CacheName(demsJSON, thalwegShp))
	if err != nil {
		return nil, false
	}
	g, err := DecodeGrouping(raw)
	if err != nil {
		return nil, false
	}
	return g, true
}

// Save writes the grouping to the cache entry for the input pair, creating
// the cache directory if needed.
func (s *Store) Save(demsJSON, thalwegShp string, g *Grouping) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory %q: %v", s.Dir, err)
	}
	raw, err := g.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.CacheName(demsJSON, thalwegShp), raw, 0644); err != nil {
		return fmt.Errorf("failed to write grouping cache: %v", err)
	}
	return nil
}
