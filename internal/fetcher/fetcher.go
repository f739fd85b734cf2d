// Package fetcher downloads catalog source data: ZCTA boundary archives from
// the Census Bureau and city roster files. Downloads happen only during
// catalog builds, never in the resolution path.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote catalog sources.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ConditionalFetcher additionally supports ETag-based change detection, so
// repeated catalog builds skip unchanged source archives.
type ConditionalFetcher interface {
	Fetcher

	// DownloadIfChanged fetches the URL only if the ETag differs from etag.
	// Returns (body, newETag, changed, error). When unchanged, body is nil.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}
