package fetcher

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ETagCache persists source URL ETags between catalog builds so unchanged
// archives are skipped on the next fetch.
type ETagCache struct {
	path string
	tags map[string]string
}

// LoadETagCache reads the cache file at path. A missing or unreadable file
// yields an empty cache; every source is then fetched unconditionally.
func LoadETagCache(path string) *ETagCache {
	c := &ETagCache{path: path, tags: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(raw, &c.tags); err != nil {
		zap.L().Warn("etag cache unreadable, refetching all sources",
			zap.String("path", path), zap.Error(err))
		c.tags = make(map[string]string)
	}
	return c
}

// Get returns the stored ETag for a source URL, or empty.
func (c *ETagCache) Get(url string) string { return c.tags[url] }

// Set records the ETag for a source URL. Empty tags are ignored.
func (c *ETagCache) Set(url, etag string) {
	if etag == "" {
		return
	}
	c.tags[url] = etag
}

// Save writes the cache back to its file.
func (c *ETagCache) Save() error {
	raw, err := json.MarshalIndent(c.tags, "", "  ")
	if err != nil {
		return eris.Wrap(err, "etag cache: marshal")
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return eris.Wrap(err, "etag cache: write")
	}
	return nil
}
