package resolver

import (
	"sort"

	"github.com/choosepower/tdsp-resolver/internal/catalog"
	"github.com/choosepower/tdsp-resolver/internal/model"
)

// prefixHeuristic infers a territory for ZIPs absent from both the direct
// index and the split registry, by majority vote over direct-index entries
// sharing the same three-digit prefix. It is a last resort: its results are
// always tagged geographic_heuristic and never confidence high, so callers
// cannot mistake them for authoritative mappings.
type prefixHeuristic struct {
	// byPrefix maps a three-digit ZIP prefix to territory vote counts.
	byPrefix map[string]map[string]int
	// zoneDefault maps a prefix to a hardcoded territory when the index has
	// no neighbors at all.
	zoneDefault map[string]string
}

func newPrefixHeuristic(cat *catalog.Catalog) *prefixHeuristic {
	h := &prefixHeuristic{
		byPrefix:    make(map[string]map[string]int),
		zoneDefault: defaultZoneMap(),
	}
	for zip, entry := range allDirectEntries(cat) {
		prefix := zip[:3]
		if h.byPrefix[prefix] == nil {
			h.byPrefix[prefix] = make(map[string]int)
		}
		h.byPrefix[prefix][entry.TerritoryID]++
	}
	return h
}

// Infer returns the best-guess territory for a ZIP with its confidence.
// Neighbor evidence from the direct index earns medium; the static zone
// table earns low; no answer at all returns ok = false.
func (h *prefixHeuristic) Infer(zip string) (territoryID string, conf model.Confidence, ok bool) {
	prefix := zip[:3]

	if votes := h.byPrefix[prefix]; len(votes) > 0 {
		ids := make([]string, 0, len(votes))
		for id := range votes {
			ids = append(ids, id)
		}
		// Deterministic tie-break on territory id.
		sort.Slice(ids, func(i, j int) bool {
			if votes[ids[i]] != votes[ids[j]] {
				return votes[ids[i]] > votes[ids[j]]
			}
			return ids[i] < ids[j]
		})
		return ids[0], model.ConfidenceMedium, true
	}

	if id, found := h.zoneDefault[prefix]; found {
		return id, model.ConfidenceLow, true
	}
	return "", "", false
}

// defaultZoneMap covers the broad ZIP prefix bands of the deregulated Texas
// market. Coarse by construction; every hit is confidence low.
func defaultZoneMap() map[string]string {
	m := make(map[string]string)
	set := func(from, to int, id string) {
		for p := from; p <= to; p++ {
			m[threeDigits(p)] = id
		}
	}
	set(750, 769, catalog.OncorID)       // North and Northeast Texas
	set(770, 778, catalog.CenterPointID) // Houston and the Gulf Coast
	set(783, 785, catalog.AEPCentralID)  // Corpus Christi and the Valley
	set(788, 789, catalog.AEPCentralID)
	set(790, 797, catalog.AEPNorthID) // Panhandle and West Texas
	set(779, 779, catalog.TNMPID)     // Galveston County corridor
	set(798, 799, catalog.TNMPID)     // Far West Texas
	return m
}

func threeDigits(p int) string {
	return string([]byte{byte('0' + p/100), byte('0' + (p/10)%10), byte('0' + p%10)})
}

// allDirectEntries exposes the direct index for vote counting.
func allDirectEntries(cat *catalog.Catalog) map[string]model.ZipEntry {
	return cat.ZipEntries()
}
