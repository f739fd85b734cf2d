// Package model defines the domain types shared across the resolver:
// territories, city and ZIP mappings, resolution results, and the typed
// error taxonomy.
package model

// Grid zones used for territory grouping.
const (
	ZoneNorth   = "north"
	ZoneCoast   = "coast"
	ZoneSouth   = "south"
	ZoneWest    = "west"
	ZoneCentral = "central"
)

// City tiers drive display ordering and sitemap priority.
const (
	TierMajorMetro = 1
	TierLargeCity  = 2
	TierStandard   = 3
)

// Territory is one transmission and distribution service provider. ID is the
// utility identifier (DUNS) expected by pricing and ordering APIs.
type Territory struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Zone      string   `json:"zone"`
	Counties  []string `json:"counties,omitempty"`
	CitySlugs []string `json:"city_slugs,omitempty"`
}

// CityMapping associates a city slug with its serving territory. Excluded
// cities are served by a municipal utility and have no territory. Heuristic
// marks assignments produced by the builder's fallback rules rather than an
// authoritative source.
type CityMapping struct {
	CitySlug    string  `json:"city_slug"`
	CityName    string  `json:"city_name"`
	TerritoryID string  `json:"territory_id,omitempty"`
	Tier        int     `json:"tier"`
	Priority    float64 `json:"priority"`
	Excluded    bool    `json:"excluded,omitempty"`
	Heuristic   bool    `json:"heuristic,omitempty"`
}

// ZipEntry is one direct-index row: a ZIP served by exactly one territory.
type ZipEntry struct {
	Zip         string `json:"zip"`
	TerritoryID string `json:"territory_id"`
	CitySlug    string `json:"city_slug,omitempty"`
}

// SplitZipEntry is one split-registry row: a ZIP straddling two or more
// territories, requiring address-level disambiguation.
type SplitZipEntry struct {
	Zip                   string   `json:"zip"`
	CandidateTerritoryIDs []string `json:"candidate_territory_ids"`
	CitySlug              string   `json:"city_slug,omitempty"`
}

// MunicipalEntry marks a ZIP or city served by a municipally owned utility,
// outside the deregulated market. Either Zip or CitySlug may be empty.
type MunicipalEntry struct {
	Zip      string `json:"zip,omitempty"`
	CitySlug string `json:"city_slug,omitempty"`
	Utility  string `json:"utility"`
}

// PriorityForTier returns the sitemap priority for a city tier.
func PriorityForTier(tier int) float64 {
	switch tier {
	case TierMajorMetro:
		return 1.0
	case TierLargeCity:
		return 0.7
	default:
		return 0.4
	}
}
