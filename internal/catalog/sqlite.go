package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

// SQLiteStore persists the catalog artifact as a single SQLite file using
// modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the catalog file at the given path and
// configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS catalog_meta (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	version  TEXT NOT NULL,
	built_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS territories (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	zone       TEXT NOT NULL,
	counties   TEXT NOT NULL DEFAULT '[]',
	city_slugs TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS cities (
	city_slug    TEXT PRIMARY KEY,
	city_name    TEXT NOT NULL,
	territory_id TEXT NOT NULL DEFAULT '',
	tier         INTEGER NOT NULL DEFAULT 3,
	priority     REAL NOT NULL DEFAULT 0.4,
	excluded     INTEGER NOT NULL DEFAULT 0,
	heuristic    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS zips (
	zip          TEXT PRIMARY KEY,
	territory_id TEXT NOT NULL,
	city_slug    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS split_zips (
	zip        TEXT PRIMARY KEY,
	candidates TEXT NOT NULL,
	city_slug  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS municipal (
	zip       TEXT NOT NULL DEFAULT '',
	city_slug TEXT NOT NULL DEFAULT '',
	utility   TEXT NOT NULL,
	PRIMARY KEY (zip, city_slug)
);

CREATE INDEX IF NOT EXISTS idx_zips_territory ON zips(territory_id);
CREATE INDEX IF NOT EXISTS idx_cities_territory ON cities(territory_id);
`

// Migrate creates the catalog schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save replaces the persisted catalog in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, data Data) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"territories", "cities", "zips", "split_zips", "municipal"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for _, t := range data.Territories {
		counties, err := json.Marshal(t.Counties)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal counties")
		}
		slugs, err := json.Marshal(t.CitySlugs)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal city slugs")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO territories (id, name, zone, counties, city_slugs) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Name, t.Zone, string(counties), string(slugs),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert territory %s", t.ID)
		}
	}

	for _, c := range data.Cities {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cities (city_slug, city_name, territory_id, tier, priority, excluded, heuristic) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.CitySlug, c.CityName, c.TerritoryID, c.Tier, c.Priority, boolToInt(c.Excluded), boolToInt(c.Heuristic),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert city %s", c.CitySlug)
		}
	}

	for _, z := range data.Zips {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO zips (zip, territory_id, city_slug) VALUES (?, ?, ?)`,
			z.Zip, z.TerritoryID, z.CitySlug,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert zip %s", z.Zip)
		}
	}

	for _, sz := range data.SplitZips {
		candidates, err := json.Marshal(sz.CandidateTerritoryIDs)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal split candidates")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO split_zips (zip, candidates, city_slug) VALUES (?, ?, ?)`,
			sz.Zip, string(candidates), sz.CitySlug,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert split zip %s", sz.Zip)
		}
	}

	for _, m := range data.Municipal {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO municipal (zip, city_slug, utility) VALUES (?, ?, ?)`,
			m.Zip, m.CitySlug, m.Utility,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert municipal entry")
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_meta (id, version, built_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET version = excluded.version, built_at = excluded.built_at`,
		data.Version, data.BuiltAt.UTC(),
	); err != nil {
		return eris.Wrap(err, "sqlite: update meta")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// Load reads the full persisted catalog.
func (s *SQLiteStore) Load(ctx context.Context) (Data, error) {
	var data Data

	row := s.db.QueryRowContext(ctx, `SELECT version, built_at FROM catalog_meta WHERE id = 1`)
	if err := row.Scan(&data.Version, &data.BuiltAt); err != nil {
		return Data{}, eris.Wrap(err, "sqlite: load meta")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, zone, counties, city_slugs FROM territories`)
	if err != nil {
		return Data{}, eris.Wrap(err, "sqlite: load territories")
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var t model.Territory
		var counties, slugs string
		if err := rows.Scan(&t.ID, &t.Name, &t.Zone, &counties, &slugs); err != nil {
			return Data{}, eris.Wrap(err, "sqlite: scan territory")
		}
		if err := json.Unmarshal([]byte(counties), &t.Counties); err != nil {
			return Data{}, eris.Wrapf(err, "sqlite: unmarshal counties for %s", t.ID)
		}
		if err := json.Unmarshal([]byte(slugs), &t.CitySlugs); err != nil {
			return Data{}, eris.Wrapf(err, "sqlite: unmarshal city slugs for %s", t.ID)
		}
		data.Territories = append(data.Territories, t)
	}
	if err := rows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "sqlite: iterate territories")
	}

	cityRows, err := s.db.QueryContext(ctx, `SELECT city_slug, city_name, territory_id, tier, priority, excluded, heuristic FROM cities`)
	if err != nil {
		return Data{}, eris.Wrap(err, "sqlite: load cities")
	}
	defer cityRows.Close() //nolint:errcheck
	for cityRows.Next() {
		var c model.CityMapping
		var excluded, heuristic int
		if err := cityRows.Scan(&c.CitySlug, &c.CityName, &c.TerritoryID, &c.Tier, &c.Priority, &excluded, &heuristic); err != nil {
			return Data{}, eris.Wrap(err, "sqlite: scan city")
		}
		c.Excluded = excluded != 0
		c.Heuristic = heuristic != 0
		data.Cities = append(data.Cities, c)
	}
	if err := cityRows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "sqlite: iterate cities")
	}

	zipRows, err := s.db.QueryContext(ctx, `SELECT zip, territory_id, city_slug FROM zips`)
	if err != nil {
		return Data{}, eris.Wrap(err, "sqlite: load zips")
	}
	defer zipRows.Close() //nolint:errcheck
	for zipRows.Next() {
		var z model.ZipEntry
		if err := zipRows.Scan(&z.Zip, &z.TerritoryID, &z.CitySlug); err != nil {
			return Data{}, eris.Wrap(err, "sqlite: scan zip")
		}
		data.Zips = append(data.Zips, z)
	}
	if err := zipRows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "sqlite: iterate zips")
	}

	splitRows, err := s.db.QueryContext(ctx, `SELECT zip, candidates, city_slug FROM split_zips`)
	if err != nil {
		return Data{}, eris.Wrap(err, "sqlite: load split zips")
	}
	defer splitRows.Close() //nolint:errcheck
	for splitRows.Next() {
		var sz model.SplitZipEntry
		var candidates string
		if err := splitRows.Scan(&sz.Zip, &candidates, &sz.CitySlug); err != nil {
			return Data{}, eris.Wrap(err, "sqlite: scan split zip")
		}
		if err := json.Unmarshal([]byte(candidates), &sz.CandidateTerritoryIDs); err != nil {
			return Data{}, eris.Wrapf(err, "sqlite: unmarshal candidates for %s", sz.Zip)
		}
		data.SplitZips = append(data.SplitZips, sz)
	}
	if err := splitRows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "sqlite: iterate split zips")
	}

	muniRows, err := s.db.QueryContext(ctx, `SELECT zip, city_slug, utility FROM municipal`)
	if err != nil {
		return Data{}, eris.Wrap(err, "sqlite: load municipal")
	}
	defer muniRows.Close() //nolint:errcheck
	for muniRows.Next() {
		var m model.MunicipalEntry
		if err := muniRows.Scan(&m.Zip, &m.CitySlug, &m.Utility); err != nil {
			return Data{}, eris.Wrap(err, "sqlite: scan municipal entry")
		}
		data.Municipal = append(data.Municipal, m)
	}
	if err := muniRows.Err(); err != nil {
		return Data{}, eris.Wrap(err, "sqlite: iterate municipal")
	}

	return data, nil
}

// Meta returns the persisted catalog version and build time.
func (s *SQLiteStore) Meta(ctx context.Context) (string, time.Time, error) {
	var version string
	var builtAt time.Time
	row := s.db.QueryRowContext(ctx, `SELECT version, built_at FROM catalog_meta WHERE id = 1`)
	if err := row.Scan(&version, &builtAt); err != nil {
		return "", time.Time{}, eris.Wrap(err, "sqlite: load meta")
	}
	return version, builtAt, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
