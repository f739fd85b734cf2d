// Package resolver implements the resolution pipeline: validation, municipal
// exclusion, direct ZIP lookup, split-ZIP handling, address disambiguation
// against the external registry, and the geographic heuristic of last resort.
// Results are confidence-scored, cached, and rate limited per caller.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/choosepower/tdsp-resolver/internal/address"
	"github.com/choosepower/tdsp-resolver/internal/catalog"
	"github.com/choosepower/tdsp-resolver/internal/config"
	"github.com/choosepower/tdsp-resolver/internal/model"
	"github.com/choosepower/tdsp-resolver/pkg/esiid"
)

// Request is one resolution query. Identity is the caller identity used for
// rate limiting, typically the client IP.
type Request struct {
	Zip      string
	Address  string
	Identity string
}

// Resolver is the single entry point for territory resolution.
type Resolver struct {
	cat       *catalog.Catalog
	cache     *resultCache
	limits    *identityLimiter
	heuristic *prefixHeuristic
	dis       *disambiguator
	sf        singleflight.Group

	cfg config.ResolverConfig

	nowFunc func() time.Time
}

// New creates a Resolver over a loaded catalog and a registry client.
func New(cat *catalog.Catalog, registry esiid.Client, resolverCfg config.ResolverConfig, limitCfg config.RateLimitConfig, registryAttempts int) *Resolver {
	if resolverCfg.DirectTTL <= 0 {
		resolverCfg.DirectTTL = 30 * time.Minute
	}
	if resolverCfg.AddressTTL <= 0 {
		resolverCfg.AddressTTL = 30 * time.Minute
	}
	if resolverCfg.IntermediateTTL <= 0 {
		resolverCfg.IntermediateTTL = 5 * time.Minute
	}
	if resolverCfg.MinAddressLen <= 0 {
		resolverCfg.MinAddressLen = 5
	}

	return &Resolver{
		cat:       cat,
		cache:     newResultCache(resolverCfg.CacheMaxEntries),
		limits:    newIdentityLimiter(limitCfg),
		heuristic: newPrefixHeuristic(cat),
		dis:       newDisambiguator(registry, registryAttempts),
		cfg:       resolverCfg,
		nowFunc:   time.Now,
	}
}

// Catalog exposes the underlying catalog for handlers that need city and
// territory metadata alongside a resolution.
func (r *Resolver) Catalog() *catalog.Catalog { return r.cat }

// ValidateZip checks the ZIP format: exactly five digits within the Texas
// ranges (750xx-799xx, 885xx).
func ValidateZip(zip string) error {
	if len(zip) != 5 {
		return model.NewValidationError("zip code must be 5 digits")
	}
	for _, r := range zip {
		if r < '0' || r > '9' {
			return model.NewValidationError("zip code must be numeric")
		}
	}
	if prefix := zip[:2]; prefix != "75" && prefix != "76" && prefix != "77" && prefix != "78" && prefix != "79" {
		if zip[:3] != "885" {
			return model.NewValidationError(fmt.Sprintf("zip code %s is outside Texas", zip))
		}
	}
	return nil
}

// Resolve runs the full pipeline for one request.
func (r *Resolver) Resolve(ctx context.Context, req Request) (model.ResolutionResult, error) {
	var zero model.ResolutionResult

	hasAddress := strings.TrimSpace(req.Address) != ""
	class := classZip
	if hasAddress {
		class = classAddress
	}
	if retryAfter, ok := r.limits.Allow(req.Identity, class); !ok {
		return zero, model.NewRateLimitedError(retryAfter)
	}

	zip := strings.TrimSpace(req.Zip)
	if err := ValidateZip(zip); err != nil {
		return zero, err
	}

	if m, ok := r.cat.Municipal(zip, ""); ok {
		return zero, model.NewNonDeregulatedError(
			fmt.Sprintf("zip %s is served by %s; electricity choice is not available", zip, m.Utility),
			m.Utility,
			municipalRedirect(m),
		)
	}

	// The direct index outranks the address path: a directly indexed ZIP has
	// exactly one territory, so a supplied address changes nothing and must
	// not trigger a registry call. The address path serves split ZIPs and
	// index misses only.
	if !hasAddress || r.cat.ResolveDirect(zip).Kind == catalog.DirectHit {
		return r.resolveZip(zip)
	}
	return r.resolveAddress(ctx, zip, req.Address)
}

// resolveZip is the ZIP-only fast path. Purely in-memory.
func (r *Resolver) resolveZip(zip string) (model.ResolutionResult, error) {
	if cached, ok := r.cache.Get(zip); ok {
		return cached, nil
	}

	switch direct := r.cat.ResolveDirect(zip); direct.Kind {
	case catalog.DirectHit:
		t, _ := r.cat.Territory(direct.Entry.TerritoryID)
		result := model.ResolutionResult{
			Method:        model.MethodDirectMapping,
			Confidence:    model.ConfidenceHigh,
			TerritoryID:   t.ID,
			TerritoryName: t.Name,
			SourceZip:     zip,
			ResolvedAt:    r.nowFunc(),
		}
		r.cache.Set(zip, result, r.cfg.DirectTTL)
		return result, nil

	case catalog.DirectSplit:
		result := model.ResolutionResult{
			Method:               model.MethodSplitZipCandidate,
			Confidence:           model.ConfidenceLow,
			RequiresAddress:      true,
			CandidateTerritories: r.cat.TerritoriesByID(direct.Split.CandidateTerritoryIDs),
			SourceZip:            zip,
			ResolvedAt:           r.nowFunc(),
		}
		// Intermediate state the caller is expected to resolve; keep it short.
		r.cache.Set(zip, result, r.cfg.IntermediateTTL)
		return result, nil
	}

	territoryID, conf, ok := r.heuristic.Infer(zip)
	if !ok {
		return model.ResolutionResult{}, model.NewNotFoundError(
			fmt.Sprintf("no territory coverage for zip %s", zip))
	}
	t, found := r.cat.Territory(territoryID)
	if !found {
		return model.ResolutionResult{}, model.NewNotFoundError(
			fmt.Sprintf("no territory coverage for zip %s", zip))
	}
	result := model.ResolutionResult{
		Method:        model.MethodGeographicHeuristic,
		Confidence:    conf,
		TerritoryID:   t.ID,
		TerritoryName: t.Name,
		SourceZip:     zip,
		ResolvedAt:    r.nowFunc(),
	}
	r.cache.Set(zip, result, r.cfg.IntermediateTTL)
	return result, nil
}

// resolveAddress is the slow path: normalize, then disambiguate against the
// registry. Concurrent lookups for the same address collapse into a single
// registry call.
func (r *Resolver) resolveAddress(ctx context.Context, zip, rawAddress string) (model.ResolutionResult, error) {
	var zero model.ResolutionResult

	addr := address.New(rawAddress, zip)
	if address.MeaningfulLength(addr.Normalized) < r.cfg.MinAddressLen {
		return zero, model.NewValidationError("address is too short to resolve")
	}

	key := zip + "|" + addr.Normalized
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		if cached, ok := r.cache.Get(key); ok {
			return cached, nil
		}
		return r.lookupAddress(ctx, key, addr)
	})
	if err != nil {
		return zero, err
	}
	return v.(model.ResolutionResult), nil
}

func (r *Resolver) lookupAddress(ctx context.Context, key string, addr model.Address) (model.ResolutionResult, error) {
	var zero model.ResolutionResult

	split, isSplit := r.cat.SplitZip(addr.Zip)

	outcome, err := r.dis.Lookup(ctx, addr)
	if err != nil {
		// Degrade to the split-ZIP candidate list when we have one; the caller
		// still gets something actionable. Never guess a single territory.
		if isSplit {
			zap.L().Warn("registry lookup failed, degrading to split candidates",
				zap.String("zip", addr.Zip), zap.Error(err))
			return r.splitCandidateResult(addr, split), nil
		}
		return zero, model.NewUpstreamError("service point registry unavailable", err)
	}

	switch len(outcome.territoryIDs) {
	case 0:
		if isSplit {
			return r.splitCandidateResult(addr, split), nil
		}
		return zero, model.NewNotFoundError(
			fmt.Sprintf("no service points found for address in zip %s", addr.Zip))

	case 1:
		id := outcome.territoryIDs[0]
		name := outcome.points[0].TDSPName
		if t, ok := r.cat.Territory(id); ok {
			name = t.Name
		}
		result := model.ResolutionResult{
			Method:        model.MethodAddressLookup,
			Confidence:    model.ConfidenceHigh,
			TerritoryID:   id,
			TerritoryName: name,
			SourceZip:     addr.Zip,
			SourceAddress: addr.Normalized,
			ResolvedAt:    r.nowFunc(),
		}
		r.cache.Set(key, result, r.cfg.AddressTTL)
		return result, nil

	default:
		// The address itself spans territories (large complex on a seam). The
		// caller must prompt for a unit number or a more specific address.
		result := model.ResolutionResult{
			Method:               model.MethodAddressLookup,
			Confidence:           model.ConfidenceLow,
			RequiresAddress:      true,
			CandidateTerritories: r.candidatesFor(outcome),
			SourceZip:            addr.Zip,
			SourceAddress:        addr.Normalized,
			ResolvedAt:           r.nowFunc(),
		}
		r.cache.Set(key, result, r.cfg.IntermediateTTL)
		return result, nil
	}
}

func (r *Resolver) splitCandidateResult(addr model.Address, split model.SplitZipEntry) model.ResolutionResult {
	return model.ResolutionResult{
		Method:               model.MethodSplitZipCandidate,
		Confidence:           model.ConfidenceLow,
		RequiresAddress:      true,
		CandidateTerritories: r.cat.TerritoriesByID(split.CandidateTerritoryIDs),
		SourceZip:            addr.Zip,
		SourceAddress:        addr.Normalized,
		ResolvedAt:           r.nowFunc(),
	}
}

// candidatesFor maps registry territory ids to catalog territories, keeping
// registry-only ids as bare entries so no candidate silently disappears.
func (r *Resolver) candidatesFor(outcome lookupOutcome) []model.Territory {
	names := make(map[string]string)
	for _, p := range outcome.points {
		if names[p.TerritoryID] == "" {
			names[p.TerritoryID] = p.TDSPName
		}
	}

	out := make([]model.Territory, 0, len(outcome.territoryIDs))
	for _, id := range outcome.territoryIDs {
		if t, ok := r.cat.Territory(id); ok {
			out = append(out, t)
			continue
		}
		out = append(out, model.Territory{ID: id, Name: names[id]})
	}
	return out
}

func municipalRedirect(m model.MunicipalEntry) string {
	if m.CitySlug == "" {
		return ""
	}
	return "/municipal-utilities/" + m.CitySlug + "/"
}

// CacheLen reports the number of cached resolutions, for status endpoints.
func (r *Resolver) CacheLen() int { return r.cache.Len() }
