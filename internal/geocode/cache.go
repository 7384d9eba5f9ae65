package geocode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"realty-backend/internal/geo"
)

type CacheEntry struct {
	Name             string    `json:"name"`
	Lat              float64   `json:"lat"`
	Lng              float64   `json:"lng"`
	FormattedAddress string    `json:"formattedAddress,omitempty"`
	ResolvedAt       time.Time `json:"resolvedAt"`
}

func (e CacheEntry) Point() geo.Point {
	return geo.Point{Lat: e.Lat, Lng: e.Lng}
}

// FileCache persists resolved location names as a JSON object keyed by normalized name.
// An empty path keeps the cache in memory only.
type FileCache struct {
	path    string
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

func OpenFileCache(path string) (*FileCache, error) {
	c := &FileCache{path: path, entries: map[string]CacheEntry{}}
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read geocode cache: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c.entries); err != nil {
		return nil, fmt.Errorf("parse geocode cache: %w", err)
	}
	return c, nil
}

func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *FileCache) Get(name string) (CacheEntry, bool) {
	key := geo.NormalizeName(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Put stores an entry and rewrites the file. The write happens under the lock
// through a temp file and rename, so concurrent misses never interleave.
func (c *FileCache) Put(name string, res Result) error {
	key := geo.NormalizeName(name)
	if key == "" || !res.Point.Valid() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = CacheEntry{
		Name:             strings.TrimSpace(name),
		Lat:              res.Point.Lat,
		Lng:              res.Point.Lng,
		FormattedAddress: res.FormattedAddress,
		ResolvedAt:       time.Now().UTC(),
	}
	return c.flushLocked()
}

func (c *FileCache) flushLocked() error {
	if c.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".geocode-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write geocode cache: %w", err)
	}
	return nil
}

// Fuzzy finds a cached entry for a name that was never resolved verbatim: first a
// cached key contained in the name (or the reverse), then the key sharing the most
// words. Single-letter words are ignored.
func (c *FileCache) Fuzzy(name string) (CacheEntry, bool) {
	key := geo.NormalizeName(name)
	if key == "" {
		return CacheEntry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	padded := " " + key + " "
	bestKey, bestLen := "", 0
	for _, k := range keys {
		if strings.Contains(padded, " "+k+" ") || strings.Contains(" "+k+" ", padded) {
			if len(k) > bestLen {
				bestKey, bestLen = k, len(k)
			}
		}
	}
	if bestKey != "" {
		return c.entries[bestKey], true
	}

	words := significantWords(key)
	bestScore := 0
	for _, k := range keys {
		score := 0
		for w := range significantWords(k) {
			if words[w] {
				score++
			}
		}
		if score > bestScore {
			bestKey, bestScore = k, score
		}
	}
	if bestScore == 0 {
		return CacheEntry{}, false
	}
	return c.entries[bestKey], true
}

var stopWords = map[string]bool{"road": true, "hyderabad": true, "telangana": true, "india": true, "near": true, "the": true}

func significantWords(key string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(key) {
		if len(w) < 2 || stopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}
