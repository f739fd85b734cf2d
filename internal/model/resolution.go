package model

import "time"

// Method identifies which pipeline stage produced a resolution.
type Method string

const (
	MethodDirectMapping       Method = "direct_mapping"
	MethodSplitZipCandidate   Method = "split_zip_candidate"
	MethodAddressLookup       Method = "address_lookup"
	MethodGeographicHeuristic Method = "geographic_heuristic"
)

// Confidence classifies how certain a resolution is. Callers must branch on
// it before treating a resolution as final.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Address is a service address paired with its ZIP. Normalized is the
// canonical form used for cache keys and registry queries.
type Address struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Zip        string `json:"zip"`
}

// ServicePointRecord is one metered location returned by the external ESIID
// registry.
type ServicePointRecord struct {
	ESIID       string `json:"esiid"`
	Address     string `json:"address"`
	TerritoryID string `json:"territory_id"`
	TDSPName    string `json:"tdsp_name"`
}

// ResolutionResult is the uniform outcome of a successful resolution. A
// high-confidence result always carries a territory and never requires an
// address; a split-ZIP intermediate carries candidates instead.
type ResolutionResult struct {
	Method               Method      `json:"method"`
	Confidence           Confidence  `json:"confidence"`
	TerritoryID          string      `json:"territory_id,omitempty"`
	TerritoryName        string      `json:"territory_name,omitempty"`
	RequiresAddress      bool        `json:"requires_address"`
	CandidateTerritories []Territory `json:"candidate_territories,omitempty"`
	SourceZip            string      `json:"source_zip"`
	SourceAddress        string      `json:"source_address,omitempty"`
	ResolvedAt           time.Time   `json:"resolved_at"`
}

// Resolved reports whether the result carries a single final territory.
func (r ResolutionResult) Resolved() bool {
	return r.TerritoryID != "" && !r.RequiresAddress
}
