package main

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choosepower/tdsp-resolver/internal/fetcher"
)

var fetchURLs []string

var catalogFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download catalog source archives (ZCTA boundaries, rosters)",
	Long:  "Downloads each source URL into the configured temp directory, extracting shapefile archives in place. HTTP sources are fetched conditionally by ETag, so unchanged archives are skipped on repeat runs. Supports http(s) and ftp sources.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(fetchURLs) == 0 {
			return eris.New("catalog fetch requires at least one --url")
		}

		destDir := cfg.Catalog.TempDir
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return eris.Wrapf(err, "create temp dir %s", destDir)
		}

		httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
		ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{})
		etags := fetcher.LoadETagCache(filepath.Join(destDir, "etags.json"))

		for _, rawURL := range fetchURLs {
			f, err := fetcher.ForURL(rawURL, httpFetcher, ftpFetcher)
			if err != nil {
				return err
			}

			name, err := sourceFileName(rawURL)
			if err != nil {
				return err
			}
			dest := filepath.Join(destDir, name)

			n, skipped, err := fetchSource(ctx, f, rawURL, dest, etags)
			if err != nil {
				return eris.Wrapf(err, "fetch %s", rawURL)
			}
			if skipped {
				zap.L().Info("source unchanged, skipping", zap.String("url", rawURL))
				continue
			}
			zap.L().Info("source downloaded",
				zap.String("url", rawURL),
				zap.String("path", dest),
				zap.Int64("bytes", n),
			)

			if filepath.Ext(dest) == ".zip" {
				shpPath, err := fetcher.ExtractShapefile(dest, destDir)
				if err != nil {
					// Not every archive is a shapefile; extract whatever it holds.
					if _, exErr := fetcher.ExtractArchive(dest, destDir); exErr != nil {
						return exErr
					}
					zap.L().Info("archive extracted", zap.String("path", dest))
					continue
				}
				zap.L().Info("shapefile extracted", zap.String("shp", shpPath))
			}
		}

		if err := etags.Save(); err != nil {
			zap.L().Warn("failed to persist etag cache", zap.Error(err))
		}
		return nil
	},
}

// fetchSource downloads one source URL, conditionally when the fetcher
// supports ETags. Returns bytes written and whether the source was skipped
// as unchanged.
func fetchSource(ctx context.Context, f fetcher.Fetcher, rawURL, dest string, etags *fetcher.ETagCache) (int64, bool, error) {
	cf, ok := f.(fetcher.ConditionalFetcher)
	if !ok {
		n, err := f.DownloadToFile(ctx, rawURL, dest)
		return n, false, err
	}

	body, etag, changed, err := cf.DownloadIfChanged(ctx, rawURL, etags.Get(rawURL))
	if err != nil {
		return 0, false, err
	}
	if !changed {
		return 0, true, nil
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(dest)
	if err != nil {
		return 0, false, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, false, eris.Wrap(err, "write file")
	}
	etags.Set(rawURL, etag)
	return n, false, nil
}

func sourceFileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "parse url %s", rawURL)
	}
	name := filepath.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", eris.Errorf("cannot derive file name from %s", rawURL)
	}
	return name, nil
}

func init() {
	catalogFetchCmd.Flags().StringSliceVar(&fetchURLs, "url", nil, "source URL (repeatable)")
	catalogCmd.AddCommand(catalogFetchCmd)
}
