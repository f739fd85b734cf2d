// Package builder transforms raw geography inputs (a city roster, territory
// definitions, and optionally ZCTA boundary shapefiles) into a validated
// catalog artifact. It is batch tooling, run out of the request path.
package builder

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/choosepower/tdsp-resolver/internal/catalog"
	"github.com/choosepower/tdsp-resolver/internal/model"
)

// TerritoryDef is one territory in the YAML definitions file.
type TerritoryDef struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Zone     string   `yaml:"zone"`
	Counties []string `yaml:"counties"`
	// Cities lists city names known to be served by this territory.
	Cities []string `yaml:"cities"`
	// Keywords feed the geographic heuristic: a city name containing one of
	// these substrings is assigned here when no authoritative match exists.
	Keywords []string `yaml:"keywords"`
}

// Definitions is the parsed territory definitions file.
type Definitions struct {
	Version     string         `yaml:"version"`
	Territories []TerritoryDef `yaml:"territories"`
	// Municipal maps city names to their municipally owned utility.
	Municipal map[string]string `yaml:"municipal"`
	// Zips and SplitZips allow authoritative ZIP assignments in the
	// definitions file; shapefile-derived assignments are merged with these,
	// with the file winning on conflict.
	Zips      map[string]string   `yaml:"zips"`
	SplitZips map[string][]string `yaml:"split_zips"`
	// TierOverrides forces a tier for specific city slugs.
	TierOverrides map[string]int `yaml:"tier_overrides"`
}

// LoadDefinitions reads the YAML territory definitions file.
func LoadDefinitions(path string) (*Definitions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "builder: read definitions %s", path)
	}
	var defs Definitions
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return nil, eris.Wrap(err, "builder: parse definitions")
	}
	if len(defs.Territories) == 0 {
		return nil, eris.New("builder: definitions contain no territories")
	}
	return &defs, nil
}

// CityInput is one parsed city roster row.
type CityInput struct {
	Name       string
	Population int
	// Territory optionally pins the city to a territory id from the roster.
	Territory string
}

// Builder assembles a catalog from definitions and a city roster.
type Builder struct {
	defs *Definitions

	// knownCity maps city slug -> territory id from the definitions.
	knownCity map[string]string
	// municipalSlug maps excluded city slug -> utility name.
	municipalSlug map[string]string
	// largestID is the territory with the most known cities; the alphabetic
	// fallback biases toward it.
	largestID string
}

// New creates a Builder for the given definitions.
func New(defs *Definitions) *Builder {
	b := &Builder{
		defs:          defs,
		knownCity:     make(map[string]string),
		municipalSlug: make(map[string]string),
	}

	maxCities := -1
	for _, t := range defs.Territories {
		for _, city := range t.Cities {
			b.knownCity[Slugify(city)] = t.ID
		}
		if len(t.Cities) > maxCities {
			maxCities = len(t.Cities)
			b.largestID = t.ID
		}
	}
	for city, utility := range defs.Municipal {
		b.municipalSlug[Slugify(city)] = utility
	}
	return b
}

// Build produces the catalog data for a city roster. ZIP assignments come
// from the definitions file plus any shapefile-derived assignments merged in
// beforehand via MergeZipAssignments.
func (b *Builder) Build(cities []CityInput, zips []model.ZipEntry, splitZips []model.SplitZipEntry) (catalog.Data, error) {
	mappings := make([]model.CityMapping, 0, len(cities))
	seen := make(map[string]bool, len(cities))

	for _, city := range cities {
		slug := Slugify(city.Name)
		if slug == "" || slug == stateSuffix {
			zap.L().Warn("builder: skipping city with empty slug", zap.String("name", city.Name))
			continue
		}
		if seen[slug] {
			continue
		}
		seen[slug] = true

		cm := model.CityMapping{
			CitySlug: slug,
			CityName: strings.TrimSpace(city.Name),
			Tier:     tierForPopulation(city.Population),
		}
		if override, ok := b.defs.TierOverrides[slug]; ok {
			cm.Tier = override
		}
		cm.Priority = model.PriorityForTier(cm.Tier)

		b.assign(&cm, city)
		mappings = append(mappings, cm)
	}

	sort.Slice(mappings, func(i, j int) bool { return mappings[i].CitySlug < mappings[j].CitySlug })

	territories := make([]model.Territory, 0, len(b.defs.Territories))
	for _, t := range b.defs.Territories {
		slugs := make([]string, 0, len(t.Cities))
		for _, city := range t.Cities {
			slugs = append(slugs, Slugify(city))
		}
		territories = append(territories, model.Territory{
			ID:        t.ID,
			Name:      t.Name,
			Zone:      t.Zone,
			Counties:  t.Counties,
			CitySlugs: slugs,
		})
	}

	municipal := make([]model.MunicipalEntry, 0, len(b.municipalSlug))
	for slug, utility := range b.municipalSlug {
		municipal = append(municipal, model.MunicipalEntry{CitySlug: slug, Utility: utility})
	}
	sort.Slice(municipal, func(i, j int) bool { return municipal[i].CitySlug < municipal[j].CitySlug })

	data := catalog.Data{
		Version:     b.defs.Version,
		BuiltAt:     time.Now().UTC(),
		Territories: territories,
		Cities:      mappings,
		Zips:        zips,
		SplitZips:   splitZips,
		Municipal:   municipal,
	}
	if data.Version == "" {
		// Timestamp plus a short unique suffix, so rebuilds within the same
		// second still get distinct versions.
		data.Version = data.BuiltAt.Format("20060102150405") + "-" + uuid.NewString()[:8]
	}

	// Validate through the same path the loader uses, so build-time and
	// load-time invariants cannot drift apart.
	if _, err := catalog.New(data); err != nil {
		return catalog.Data{}, eris.Wrap(err, "builder: validate")
	}
	return data, nil
}

// assign sets the territory for one city mapping, in strict precedence order.
func (b *Builder) assign(cm *model.CityMapping, city CityInput) {
	// Explicit roster assignment wins.
	if city.Territory != "" {
		cm.TerritoryID = city.Territory
		return
	}

	// 1. Exact slug match against a territory's known city list.
	if id, ok := b.knownCity[cm.CitySlug]; ok {
		cm.TerritoryID = id
		return
	}

	// 2. Municipally served cities are excluded, never guessed.
	if _, ok := b.municipalSlug[cm.CitySlug]; ok {
		cm.Excluded = true
		return
	}

	// 3. Keyword heuristic.
	lowerName := strings.ToLower(city.Name)
	for _, t := range b.defs.Territories {
		for _, kw := range t.Keywords {
			if kw != "" && strings.Contains(lowerName, strings.ToLower(kw)) {
				cm.TerritoryID = t.ID
				cm.Heuristic = true
				return
			}
		}
	}

	// 4. Alphabetic-range fallback, biased toward the largest territory.
	cm.TerritoryID = b.alphabeticFallback(cm.CitySlug)
	cm.Heuristic = true
}

// alphabeticFallback splits the alphabet across territories, giving the
// largest territory a double-width range. A crude approximation, flagged
// Heuristic so downstream consumers never treat it as authoritative.
func (b *Builder) alphabeticFallback(slug string) string {
	ids := make([]string, 0, len(b.defs.Territories)+1)
	for _, t := range b.defs.Territories {
		ids = append(ids, t.ID)
		if t.ID == b.largestID {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return ""
	}

	first := slug[0]
	if first < 'a' || first > 'z' {
		return b.largestID
	}
	bucket := int(first-'a') * len(ids) / 26
	return ids[bucket]
}

func tierForPopulation(pop int) int {
	switch {
	case pop >= 500000:
		return model.TierMajorMetro
	case pop >= 100000:
		return model.TierLargeCity
	default:
		return model.TierStandard
	}
}

// MergeZipAssignments combines definition-file ZIP assignments with derived
// (shapefile) assignments. File entries win on conflict; a ZIP listed as
// split in either source is split in the output.
func MergeZipAssignments(defs *Definitions, derived []model.ZipEntry, derivedSplit []model.SplitZipEntry) ([]model.ZipEntry, []model.SplitZipEntry) {
	split := make(map[string]model.SplitZipEntry)
	for _, s := range derivedSplit {
		split[s.Zip] = s
	}
	for zip, candidates := range defs.SplitZips {
		split[zip] = model.SplitZipEntry{Zip: zip, CandidateTerritoryIDs: candidates}
	}

	direct := make(map[string]model.ZipEntry)
	for _, z := range derived {
		if _, isSplit := split[z.Zip]; !isSplit {
			direct[z.Zip] = z
		}
	}
	for zip, territoryID := range defs.Zips {
		if _, isSplit := split[zip]; isSplit {
			zap.L().Warn("builder: zip listed both direct and split; keeping split", zap.String("zip", zip))
			continue
		}
		direct[zip] = model.ZipEntry{Zip: zip, TerritoryID: territoryID}
	}

	zips := make([]model.ZipEntry, 0, len(direct))
	for _, z := range direct {
		zips = append(zips, z)
	}
	sort.Slice(zips, func(i, j int) bool { return zips[i].Zip < zips[j].Zip })

	splits := make([]model.SplitZipEntry, 0, len(split))
	for _, s := range split {
		splits = append(splits, s)
	}
	sort.Slice(splits, func(i, j int) bool { return splits[i].Zip < splits[j].Zip })

	return zips, splits
}
