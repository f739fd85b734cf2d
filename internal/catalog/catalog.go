// Package catalog holds the read-only territory reference data: utility
// territories, city mappings, the direct ZIP index, the split-ZIP registry,
// and municipal exclusions. The catalog is built offline, persisted through a
// Store, and loaded once at process start; it is never mutated at runtime, so
// readers need no locking.
package catalog

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

// Data is the serialized form of a catalog build. It is what Stores persist
// and what the builder emits.
type Data struct {
	Version     string                 `json:"version"`
	BuiltAt     time.Time              `json:"built_at"`
	Territories []model.Territory      `json:"territories"`
	Cities      []model.CityMapping    `json:"cities"`
	Zips        []model.ZipEntry       `json:"zips"`
	SplitZips   []model.SplitZipEntry  `json:"split_zips"`
	Municipal   []model.MunicipalEntry `json:"municipal"`
}

// Catalog is the in-memory, read-only view over a catalog build.
type Catalog struct {
	version string
	builtAt time.Time

	territories    map[string]model.Territory
	cities         map[string]model.CityMapping
	zipIndex       map[string]model.ZipEntry
	splitZips      map[string]model.SplitZipEntry
	municipalZips  map[string]model.MunicipalEntry
	municipalSlugs map[string]model.MunicipalEntry
}

// New validates data and builds the lookup indexes. It fails if a ZIP appears
// in both the direct index and the split registry, or if a non-excluded city
// mapping references an unknown territory.
func New(data Data) (*Catalog, error) {
	c := &Catalog{
		version:        data.Version,
		builtAt:        data.BuiltAt,
		territories:    make(map[string]model.Territory, len(data.Territories)),
		cities:         make(map[string]model.CityMapping, len(data.Cities)),
		zipIndex:       make(map[string]model.ZipEntry, len(data.Zips)),
		splitZips:      make(map[string]model.SplitZipEntry, len(data.SplitZips)),
		municipalZips:  make(map[string]model.MunicipalEntry),
		municipalSlugs: make(map[string]model.MunicipalEntry),
	}

	for _, t := range data.Territories {
		if t.ID == "" {
			return nil, eris.New("catalog: territory with empty id")
		}
		c.territories[t.ID] = t
	}

	for _, cm := range data.Cities {
		if cm.Excluded {
			if cm.TerritoryID != "" {
				return nil, eris.Errorf("catalog: excluded city %s has territory %s", cm.CitySlug, cm.TerritoryID)
			}
		} else if _, ok := c.territories[cm.TerritoryID]; !ok {
			return nil, eris.Errorf("catalog: city %s references unknown territory %s", cm.CitySlug, cm.TerritoryID)
		}
		c.cities[cm.CitySlug] = cm
	}

	for _, s := range data.SplitZips {
		if len(s.CandidateTerritoryIDs) < 2 {
			return nil, eris.Errorf("catalog: split zip %s has fewer than 2 candidates", s.Zip)
		}
		for _, id := range s.CandidateTerritoryIDs {
			if _, ok := c.territories[id]; !ok {
				return nil, eris.Errorf("catalog: split zip %s references unknown territory %s", s.Zip, id)
			}
		}
		c.splitZips[s.Zip] = s
	}

	for _, z := range data.Zips {
		// A ZIP must never be resolvable from both the direct index and the
		// split registry; one authoritative path per ZIP.
		if _, dup := c.splitZips[z.Zip]; dup {
			return nil, eris.Errorf("catalog: zip %s present in both direct index and split registry", z.Zip)
		}
		if _, ok := c.territories[z.TerritoryID]; !ok {
			return nil, eris.Errorf("catalog: zip %s references unknown territory %s", z.Zip, z.TerritoryID)
		}
		c.zipIndex[z.Zip] = z
	}

	for _, m := range data.Municipal {
		if m.Zip != "" {
			c.municipalZips[m.Zip] = m
		}
		if m.CitySlug != "" {
			c.municipalSlugs[m.CitySlug] = m
		}
	}

	zap.L().Info("catalog loaded",
		zap.String("version", c.version),
		zap.Int("territories", len(c.territories)),
		zap.Int("cities", len(c.cities)),
		zap.Int("zips", len(c.zipIndex)),
		zap.Int("split_zips", len(c.splitZips)),
		zap.Int("municipal", len(data.Municipal)),
	)

	return c, nil
}

// Version returns the catalog build version.
func (c *Catalog) Version() string { return c.version }

// BuiltAt returns when the catalog artifact was built.
func (c *Catalog) BuiltAt() time.Time { return c.builtAt }

// Territory returns the territory with the given utility identifier.
func (c *Catalog) Territory(id string) (model.Territory, bool) {
	t, ok := c.territories[id]
	return t, ok
}

// Territories returns all territories keyed by identifier.
func (c *Catalog) Territories() map[string]model.Territory {
	return c.territories
}

// TerritoriesByID resolves a list of identifiers, skipping unknowns.
func (c *Catalog) TerritoriesByID(ids []string) []model.Territory {
	out := make([]model.Territory, 0, len(ids))
	for _, id := range ids {
		if t, ok := c.territories[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// City returns the mapping for a city slug.
func (c *Catalog) City(slug string) (model.CityMapping, bool) {
	cm, ok := c.cities[slug]
	return cm, ok
}

// Cities returns all city mappings keyed by slug.
func (c *Catalog) Cities() map[string]model.CityMapping {
	return c.cities
}

// Municipal reports whether the ZIP or city slug is served by a municipally
// owned, non-deregulated utility.
func (c *Catalog) Municipal(zip, citySlug string) (model.MunicipalEntry, bool) {
	if zip != "" {
		if m, ok := c.municipalZips[zip]; ok {
			return m, true
		}
	}
	if citySlug != "" {
		if m, ok := c.municipalSlugs[citySlug]; ok {
			return m, true
		}
	}
	return model.MunicipalEntry{}, false
}
