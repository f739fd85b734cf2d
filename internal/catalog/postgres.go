package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the catalog store. It exists so
// tests can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists the catalog in Postgres for shared deployments
// where several resolver instances load the same artifact.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS catalog_meta (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	version  TEXT NOT NULL,
	built_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS territories (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	zone       TEXT NOT NULL,
	counties   JSONB NOT NULL DEFAULT '[]',
	city_slugs JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS cities (
	city_slug    TEXT PRIMARY KEY,
	city_name    TEXT NOT NULL,
	territory_id TEXT NOT NULL DEFAULT '',
	tier         INTEGER NOT NULL DEFAULT 3,
	priority     DOUBLE PRECISION NOT NULL DEFAULT 0.4,
	excluded     BOOLEAN NOT NULL DEFAULT false,
	heuristic    BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS zips (
	zip          TEXT PRIMARY KEY,
	territory_id TEXT NOT NULL,
	city_slug    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS split_zips (
	zip        TEXT PRIMARY KEY,
	candidates JSONB NOT NULL,
	city_slug  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS municipal (
	zip       TEXT NOT NULL DEFAULT '',
	city_slug TEXT NOT NULL DEFAULT '',
	utility   TEXT NOT NULL,
	PRIMARY KEY (zip, city_slug)
);

CREATE INDEX IF NOT EXISTS idx_zips_territory ON zips(territory_id);
`

// Migrate creates the catalog schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Save replaces the persisted catalog in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, data Data) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, table := range []string{"territories", "cities", "zips", "split_zips", "municipal"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "postgres: clear %s", table)
		}
	}

	for _, t := range data.Territories {
		counties, err := json.Marshal(t.Counties)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal counties")
		}
		slugs, err := json.Marshal(t.CitySlugs)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal city slugs")
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO territories (id, name, zone, counties, city_slugs) VALUES ($1, $2, $3, $4, $5)`,
			t.ID, t.Name, t.Zone, counties, slugs,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert territory %s", t.ID)
		}
	}

	for _, c := range data.Cities {
		if _, err := tx.Exec(ctx,
			`INSERT INTO cities (city_slug, city_name, territory_id, tier, priority, excluded, heuristic) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.CitySlug, c.CityName, c.TerritoryID, c.Tier, c.Priority, c.Excluded, c.Heuristic,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert city %s", c.CitySlug)
		}
	}

	for _, z := range data.Zips {
		if _, err := tx.Exec(ctx,
			`INSERT INTO zips (zip, territory_id, city_slug) VALUES ($1, $2, $3)`,
			z.Zip, z.TerritoryID, z.CitySlug,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert zip %s", z.Zip)
		}
	}

	for _, sz := range data.SplitZips {
		candidates, err := json.Marshal(sz.CandidateTerritoryIDs)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal split candidates")
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO split_zips (zip, candidates, city_slug) VALUES ($1, $2, $3)`,
			sz.Zip, candidates, sz.CitySlug,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert split zip %s", sz.Zip)
		}
	}

	for _, m := range data.Municipal {
		if _, err := tx.Exec(ctx,
			`INSERT INTO municipal (zip, city_slug, utility) VALUES ($1, $2, $3)`,
			m.Zip, m.CitySlug, m.Utility,
		); err != nil {
			return eris.Wrap(err, "postgres: insert municipal entry")
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO catalog_meta (id, version, built_at) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, built_at = EXCLUDED.built_at`,
		data.Version, data.BuiltAt.UTC(),
	); err != nil {
		return eris.Wrap(err, "postgres: update meta")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

// Load reads the full persisted catalog.
func (s *PostgresStore) Load(ctx context.Context) (Data, error) {
	var data Data

	row := s.pool.QueryRow(ctx, `SELECT version, built_at FROM catalog_meta WHERE id = 1`)
	if err := row.Scan(&data.Version, &data.BuiltAt); err != nil {
		return Data{}, eris.Wrap(err, "postgres: load meta")
	}

	rows, err := s.pool.Query(ctx, `SELECT id, name, zone, counties, city_slugs FROM territories`)
	if err != nil {
		return Data{}, eris.Wrap(err, "postgres: load territories")
	}
	defer rows.Close()
	for rows.Next() {
		var t model.Territory
		var counties, slugs []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.Zone, &counties, &slugs); err != nil {
			return Data{}, eris.Wrap(err, "postgres: scan territory")
		}
		if err := json.Unmarshal(counties, &t.Counties); err != nil {
			return Data{}, eris.Wrapf(err, "postgres: unmarshal counties for %s", t.ID)
		}
		if err := json.Unmarshal(slugs, &t.CitySlugs); err != nil {
			return Data{}, eris.Wrapf(err, "postgres: unmarshal city slugs for %s", t.ID)
		}
		data.Territories = append(data.Territories, t)
	}
	if err := rows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "postgres: iterate territories")
	}

	cityRows, err := s.pool.Query(ctx, `SELECT city_slug, city_name, territory_id, tier, priority, excluded, heuristic FROM cities`)
	if err != nil {
		return Data{}, eris.Wrap(err, "postgres: load cities")
	}
	defer cityRows.Close()
	for cityRows.Next() {
		var c model.CityMapping
		if err := cityRows.Scan(&c.CitySlug, &c.CityName, &c.TerritoryID, &c.Tier, &c.Priority, &c.Excluded, &c.Heuristic); err != nil {
			return Data{}, eris.Wrap(err, "postgres: scan city")
		}
		data.Cities = append(data.Cities, c)
	}
	if err := cityRows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "postgres: iterate cities")
	}

	zipRows, err := s.pool.Query(ctx, `SELECT zip, territory_id, city_slug FROM zips`)
	if err != nil {
		return Data{}, eris.Wrap(err, "postgres: load zips")
	}
	defer zipRows.Close()
	for zipRows.Next() {
		var z model.ZipEntry
		if err := zipRows.Scan(&z.Zip, &z.TerritoryID, &z.CitySlug); err != nil {
			return Data{}, eris.Wrap(err, "postgres: scan zip")
		}
		data.Zips = append(data.Zips, z)
	}
	if err := zipRows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "postgres: iterate zips")
	}

	splitRows, err := s.pool.Query(ctx, `SELECT zip, candidates, city_slug FROM split_zips`)
	if err != nil {
		return Data{}, eris.Wrap(err, "postgres: load split zips")
	}
	defer splitRows.Close()
	for splitRows.Next() {
		var sz model.SplitZipEntry
		var candidates []byte
		if err := splitRows.Scan(&sz.Zip, &candidates, &sz.CitySlug); err != nil {
			return Data{}, eris.Wrap(err, "postgres: scan split zip")
		}
		if err := json.Unmarshal(candidates, &sz.CandidateTerritoryIDs); err != nil {
			return Data{}, eris.Wrapf(err, "postgres: unmarshal candidates for %s", sz.Zip)
		}
		data.SplitZips = append(data.SplitZips, sz)
	}
	if err := splitRows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "postgres: iterate split zips")
	}

	muniRows, err := s.pool.Query(ctx, `SELECT zip, city_slug, utility FROM municipal`)
	if err != nil {
		return Data{}, eris.Wrap(err, "postgres: load municipal")
	}
	defer muniRows.Close()
	for muniRows.Next() {
		var m model.MunicipalEntry
		if err := muniRows.Scan(&m.Zip, &m.CitySlug, &m.Utility); err != nil {
			return Data{}, eris.Wrap(err, "postgres: scan municipal entry")
		}
		data.Municipal = append(data.Municipal, m)
	}
	if err := muniRows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "postgres: iterate municipal")
	}

	return data, nil
}

// Meta returns the persisted catalog version and build time.
func (s *PostgresStore) Meta(ctx context.Context) (string, time.Time, error) {
	var version string
	var builtAt time.Time
	row := s.pool.QueryRow(ctx, `SELECT version, built_at FROM catalog_meta WHERE id = 1`)
	if err := row.Scan(&version, &builtAt); err != nil {
		return "", time.Time{}, eris.Wrap(err, "postgres: load meta")
	}
	return version, builtAt, nil
}
