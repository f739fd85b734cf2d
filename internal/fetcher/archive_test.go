package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestArchive writes a ZIP with the given name->content entries and
// returns its path. A trailing slash in a name creates a directory entry.
func createTestArchive(t *testing.T, files map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return path
}

func TestExtractArchive(t *testing.T) {
	zipPath := createTestArchive(t, map[string]string{
		"roster.csv": "duns,name\n1039940674000,Oncor",
		"notes.txt":  "source notes",
	})
	destDir := t.TempDir()

	paths, err := ExtractArchive(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	data, err := os.ReadFile(filepath.Join(destDir, "roster.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Oncor")
}

func TestExtractArchive_Subdirectory(t *testing.T) {
	zipPath := createTestArchive(t, map[string]string{
		"subdir/":         "",
		"subdir/data.txt": "nested content",
	})
	destDir := t.TempDir()

	paths, err := ExtractArchive(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, paths, 1)

	data, err := os.ReadFile(filepath.Join(destDir, "subdir", "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested content", string(data))
}

func TestExtractArchive_ZipSlipPrevention(t *testing.T) {
	zipPath := createTestArchive(t, map[string]string{
		"../../../etc/passwd": "malicious",
	})

	_, err := ExtractArchive(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractArchive_InvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notazip.zip")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip file"), 0o644))

	_, err := ExtractArchive(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open archive")
}

func TestExtractShapefile(t *testing.T) {
	zipPath := createTestArchive(t, map[string]string{
		"tl_2024_us_zcta520.shp": "shape data",
		"tl_2024_us_zcta520.dbf": "attribute data",
		"tl_2024_us_zcta520.shx": "index data",
	})
	destDir := t.TempDir()

	shpPath, err := ExtractShapefile(zipPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "tl_2024_us_zcta520.shp"), shpPath)
}

func TestExtractShapefile_MissingDBF(t *testing.T) {
	zipPath := createTestArchive(t, map[string]string{
		"boundaries.shp": "shape data",
	})

	_, err := ExtractShapefile(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".dbf sidecar")
}

func TestExtractShapefile_NoShapefile(t *testing.T) {
	zipPath := createTestArchive(t, map[string]string{
		"roster.csv": "duns,name",
	})

	_, err := ExtractShapefile(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp file")
}
