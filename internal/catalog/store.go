package catalog

import (
	"context"
	"time"
)

// Store persists the catalog artifact. The artifact is versioned and
// regenerable reference data, not a live database of record.
type Store interface {
	// Save replaces the persisted catalog with data atomically.
	Save(ctx context.Context, data Data) error

	// Load reads the full persisted catalog.
	Load(ctx context.Context) (Data, error)

	// Meta returns the persisted catalog version and build time without
	// loading the full artifact.
	Meta(ctx context.Context) (version string, builtAt time.Time, err error)

	Close() error
}
