package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/choosepower/tdsp-resolver/internal/catalog"
)

// openStore opens the configured catalog store backend.
func openStore(ctx context.Context) (catalog.Store, error) {
	switch cfg.Catalog.Driver {
	case "postgres":
		store, err := catalog.NewPostgres(ctx, cfg.Catalog.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close() //nolint:errcheck
			return nil, err
		}
		return store, nil
	case "", "sqlite":
		store, err := catalog.NewSQLite(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close() //nolint:errcheck
			return nil, err
		}
		return store, nil
	default:
		return nil, eris.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}
}

// loadCatalog loads the persisted catalog, falling back to the built-in seed
// when the store is empty so a fresh checkout serves real lookups.
func loadCatalog(ctx context.Context, store catalog.Store) (*catalog.Catalog, error) {
	data, err := store.Load(ctx)
	if err != nil {
		zap.L().Warn("catalog store empty or unreadable, using seed data", zap.Error(err))
		data = catalog.Seed()
	}
	return catalog.New(data)
}
