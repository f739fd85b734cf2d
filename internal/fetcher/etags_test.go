package fetcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestETagCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etags.json")

	c := LoadETagCache(path)
	assert.Empty(t, c.Get("https://example.com/a.zip"))

	c.Set("https://example.com/a.zip", `"etag-a"`)
	c.Set("https://example.com/b.zip", `"etag-b"`)
	require.NoError(t, c.Save())

	reloaded := LoadETagCache(path)
	assert.Equal(t, `"etag-a"`, reloaded.Get("https://example.com/a.zip"))
	assert.Equal(t, `"etag-b"`, reloaded.Get("https://example.com/b.zip"))
}

func TestETagCacheMissingFile(t *testing.T) {
	c := LoadETagCache(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Empty(t, c.Get("https://example.com/a.zip"))
}

func TestETagCacheIgnoresEmptyTag(t *testing.T) {
	c := LoadETagCache(filepath.Join(t.TempDir(), "etags.json"))
	c.Set("https://example.com/a.zip", `"etag-a"`)
	c.Set("https://example.com/a.zip", "")
	assert.Equal(t, `"etag-a"`, c.Get("https://example.com/a.zip"))
}

func TestETagCacheCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etags.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := LoadETagCache(path)
	assert.Empty(t, c.Get("https://example.com/a.zip"))
}
