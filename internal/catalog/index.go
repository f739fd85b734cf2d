package catalog

import "github.com/choosepower/tdsp-resolver/internal/model"

// DirectKind classifies the outcome of a direct ZIP index lookup.
type DirectKind int

const (
	// DirectMiss means the ZIP is in neither the direct index nor the split registry.
	DirectMiss DirectKind = iota
	// DirectHit means the ZIP is served by exactly one territory.
	DirectHit
	// DirectSplit means the ZIP straddles territories; address resolution required.
	DirectSplit
)

// DirectResult is the outcome of ResolveDirect. Exactly one of Entry or
// Split is meaningful depending on Kind.
type DirectResult struct {
	Kind  DirectKind
	Entry model.ZipEntry
	Split model.SplitZipEntry
}

// ResolveDirect performs the O(1) ZIP fast path. The direct index and split
// registry are mutually exclusive by construction (enforced in New), so the
// split registry is consulted first for safety.
func (c *Catalog) ResolveDirect(zip string) DirectResult {
	if s, ok := c.splitZips[zip]; ok {
		return DirectResult{Kind: DirectSplit, Split: s}
	}
	if z, ok := c.zipIndex[zip]; ok {
		return DirectResult{Kind: DirectHit, Entry: z}
	}
	return DirectResult{Kind: DirectMiss}
}

// SplitZip returns the split registry entry for a ZIP, if present.
func (c *Catalog) SplitZip(zip string) (model.SplitZipEntry, bool) {
	s, ok := c.splitZips[zip]
	return s, ok
}

// ZipEntries returns the direct index keyed by ZIP.
func (c *Catalog) ZipEntries() map[string]model.ZipEntry {
	return c.zipIndex
}

// ZipCount and SplitZipCount expose index sizes for status reporting.
func (c *Catalog) ZipCount() int      { return len(c.zipIndex) }
func (c *Catalog) SplitZipCount() int { return len(c.splitZips) }
