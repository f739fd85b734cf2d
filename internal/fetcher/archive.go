package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractArchive extracts all files from a ZIP archive to the destination
// directory. Returns the extracted file paths.
func ExtractArchive(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

// ExtractShapefile extracts a shapefile set (.shp plus its .dbf and .shx
// sidecars) from a Census boundary archive and returns the .shp path.
func ExtractShapefile(zipPath, destDir string) (string, error) {
	paths, err := ExtractArchive(zipPath, destDir)
	if err != nil {
		return "", err
	}

	var shpPath string
	var haveDBF bool
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".shp":
			shpPath = p
		case ".dbf":
			haveDBF = true
		}
	}
	if shpPath == "" {
		return "", eris.Errorf("zip: no .shp file in %s", zipPath)
	}
	if !haveDBF {
		return "", eris.Errorf("zip: %s is missing its .dbf sidecar", zipPath)
	}
	return shpPath, nil
}

// extractEntry extracts a single zip.File to the destination directory.
// Returns the extracted file path, or empty string for directories.
func extractEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "zip: create directory")
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}

	return destPath, nil
}
