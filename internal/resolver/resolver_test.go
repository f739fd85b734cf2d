package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choosepower/tdsp-resolver/internal/catalog"
	"github.com/choosepower/tdsp-resolver/internal/config"
	"github.com/choosepower/tdsp-resolver/internal/model"
	"github.com/choosepower/tdsp-resolver/pkg/esiid"
)

// fakeRegistry implements esiid.Client with canned responses and a call
// counter.
type fakeRegistry struct {
	mu     sync.Mutex
	calls  int
	points []esiid.ServicePoint
	err    error
}

func (f *fakeRegistry) Search(_ context.Context, _, _ string) ([]esiid.ServicePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

func (f *fakeRegistry) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestResolver(t *testing.T, registry esiid.Client) *Resolver {
	t.Helper()
	cat, err := catalog.New(catalog.Seed())
	require.NoError(t, err)

	if registry == nil {
		registry = &fakeRegistry{}
	}
	return New(cat, registry, config.ResolverConfig{}, config.RateLimitConfig{Disabled: true}, 1)
}

func TestValidateZip(t *testing.T) {
	tests := []struct {
		name    string
		zip     string
		wantErr bool
	}{
		{"dallas", "75201", false},
		{"houston", "77001", false},
		{"el paso band", "88510", false},
		{"too short", "7520", true},
		{"too long", "752011", true},
		{"letters", "75a01", true},
		{"california", "90210", true},
		{"oklahoma", "73301", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateZip(tt.zip)
			if tt.wantErr {
				require.Error(t, err)
				var resErr *model.ResolutionError
				require.ErrorAs(t, err, &resErr)
				assert.Equal(t, model.ErrValidation, resErr.Type)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestResolveDirectMapping(t *testing.T) {
	r := newTestResolver(t, nil)

	result, err := r.Resolve(context.Background(), Request{Zip: "75201"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodDirectMapping, result.Method)
	assert.Equal(t, model.ConfidenceHigh, result.Confidence)
	assert.Equal(t, catalog.OncorID, result.TerritoryID)
	assert.Equal(t, "Oncor Electric Delivery", result.TerritoryName)
	assert.False(t, result.RequiresAddress)
	assert.True(t, result.Resolved())
}

func TestResolveIsDeterministic(t *testing.T) {
	r := newTestResolver(t, nil)

	first, err := r.Resolve(context.Background(), Request{Zip: "77001"})
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), Request{Zip: "77001"})
	require.NoError(t, err)

	assert.Equal(t, first.TerritoryID, second.TerritoryID)
	assert.Equal(t, catalog.CenterPointID, first.TerritoryID)
	assert.Equal(t, model.ConfidenceHigh, second.Confidence)
}

func TestResolveSplitZipWithoutAddress(t *testing.T) {
	r := newTestResolver(t, nil)

	result, err := r.Resolve(context.Background(), Request{Zip: "75001"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodSplitZipCandidate, result.Method)
	assert.Equal(t, model.ConfidenceLow, result.Confidence)
	assert.True(t, result.RequiresAddress)
	assert.Empty(t, result.TerritoryID)
	require.Len(t, result.CandidateTerritories, 2)
	assert.False(t, result.Resolved())
}

func TestResolveNonTexasZip(t *testing.T) {
	r := newTestResolver(t, nil)

	_, err := r.Resolve(context.Background(), Request{Zip: "90210"})
	var resErr *model.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, model.ErrValidation, resErr.Type)
	assert.False(t, resErr.Retryable())
}

func TestResolveMunicipalZip(t *testing.T) {
	r := newTestResolver(t, nil)

	_, err := r.Resolve(context.Background(), Request{Zip: "78701"})
	var resErr *model.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, model.ErrNonDeregulated, resErr.Type)
	assert.Equal(t, "Austin Energy", resErr.Utility)
	assert.Equal(t, "/municipal-utilities/austin-tx/", resErr.RedirectPath)
}

func TestResolveHeuristicNeighborPrefix(t *testing.T) {
	r := newTestResolver(t, nil)

	// 75299 shares the 752 prefix with the seeded Dallas ZIPs but is not in
	// the index itself.
	result, err := r.Resolve(context.Background(), Request{Zip: "75299"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodGeographicHeuristic, result.Method)
	assert.Equal(t, model.ConfidenceMedium, result.Confidence)
	assert.Equal(t, catalog.OncorID, result.TerritoryID)
}

func TestResolveHeuristicZoneFallback(t *testing.T) {
	r := newTestResolver(t, nil)

	// No seeded ZIP shares the 759 prefix; the static zone table answers.
	result, err := r.Resolve(context.Background(), Request{Zip: "75901"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodGeographicHeuristic, result.Method)
	assert.Equal(t, model.ConfidenceLow, result.Confidence)
	assert.NotEmpty(t, result.TerritoryID)
}

func TestResolveZipCaching(t *testing.T) {
	r := newTestResolver(t, nil)

	first, err := r.Resolve(context.Background(), Request{Zip: "75201"})
	require.NoError(t, err)
	cached, ok := r.cache.Get("75201")
	require.True(t, ok)
	assert.Equal(t, first.TerritoryID, cached.TerritoryID)
}

func TestResolveAddressSingleMatch(t *testing.T) {
	reg := &fakeRegistry{points: []esiid.ServicePoint{
		{ESIID: "10443720000000001", Address: "123 Main Street", TDSPDuns: catalog.OncorID, TDSPName: "Oncor", Status: "active"},
	}}
	r := newTestResolver(t, reg)

	result, err := r.Resolve(context.Background(), Request{Zip: "75001", Address: "123 Main St"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodAddressLookup, result.Method)
	assert.Equal(t, model.ConfidenceHigh, result.Confidence)
	assert.Equal(t, catalog.OncorID, result.TerritoryID)
	assert.Equal(t, "Oncor Electric Delivery", result.TerritoryName)
	assert.Equal(t, "123 Main Street", result.SourceAddress)
	assert.True(t, result.Resolved())
}

func TestResolveAddressSameTerritoryMatchesUnambiguous(t *testing.T) {
	// Several service points, one territory: still a high-confidence result.
	reg := &fakeRegistry{points: []esiid.ServicePoint{
		{ESIID: "1", TDSPDuns: catalog.TNMPID, TDSPName: "TNMP", Status: "active"},
		{ESIID: "2", TDSPDuns: catalog.TNMPID, TDSPName: "TNMP", Status: "active"},
		{ESIID: "3", TDSPDuns: catalog.TNMPID, TDSPName: "TNMP", Status: "active"},
	}}
	r := newTestResolver(t, reg)

	result, err := r.Resolve(context.Background(), Request{Zip: "77539", Address: "400 Oak Drive"})
	require.NoError(t, err)

	assert.Equal(t, model.ConfidenceHigh, result.Confidence)
	assert.Equal(t, catalog.TNMPID, result.TerritoryID)
}

func TestResolveAddressAmbiguous(t *testing.T) {
	reg := &fakeRegistry{points: []esiid.ServicePoint{
		{ESIID: "1", TDSPDuns: catalog.OncorID, TDSPName: "Oncor", Status: "active"},
		{ESIID: "2", TDSPDuns: catalog.TNMPID, TDSPName: "TNMP", Status: "active"},
	}}
	r := newTestResolver(t, reg)

	result, err := r.Resolve(context.Background(), Request{Zip: "75001", Address: "1 Tower Plaza"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodAddressLookup, result.Method)
	assert.Equal(t, model.ConfidenceLow, result.Confidence)
	assert.Empty(t, result.TerritoryID)
	assert.True(t, result.RequiresAddress)
	require.Len(t, result.CandidateTerritories, 2)
}

func TestResolveAddressNoMatchesOnSplitZipDegrades(t *testing.T) {
	reg := &fakeRegistry{} // zero matches
	r := newTestResolver(t, reg)

	result, err := r.Resolve(context.Background(), Request{Zip: "75001", Address: "999 Nowhere Lane"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodSplitZipCandidate, result.Method)
	assert.True(t, result.RequiresAddress)
	require.Len(t, result.CandidateTerritories, 2)
}

func TestResolveDirectZipIgnoresAddress(t *testing.T) {
	// A directly indexed ZIP resolves from the index even when an address is
	// supplied; the registry is never consulted.
	reg := &fakeRegistry{} // would return zero matches if asked
	r := newTestResolver(t, reg)

	result, err := r.Resolve(context.Background(), Request{Zip: "75201", Address: "999 Nowhere Lane"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodDirectMapping, result.Method)
	assert.Equal(t, model.ConfidenceHigh, result.Confidence)
	assert.Equal(t, catalog.OncorID, result.TerritoryID)
	assert.Zero(t, reg.callCount())
}

func TestResolveAddressNoMatchesOnUnindexedZip(t *testing.T) {
	reg := &fakeRegistry{} // zero matches
	r := newTestResolver(t, reg)

	// 75299 is in neither the direct index nor the split registry, so the
	// address path runs; with no service points there is nothing to resolve.
	_, err := r.Resolve(context.Background(), Request{Zip: "75299", Address: "999 Nowhere Lane"})
	var resErr *model.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, model.ErrNotFound, resErr.Type)
	assert.Equal(t, 1, reg.callCount())
}

func TestResolveAddressRegistryFailureDegradesForSplitZip(t *testing.T) {
	reg := &fakeRegistry{err: eris.New("registry down")}
	r := newTestResolver(t, reg)

	result, err := r.Resolve(context.Background(), Request{Zip: "75001", Address: "123 Main Street"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodSplitZipCandidate, result.Method)
	assert.Equal(t, model.ConfidenceLow, result.Confidence)
	require.Len(t, result.CandidateTerritories, 2)
}

func TestResolveAddressRegistryFailureSurfacesUpstream(t *testing.T) {
	reg := &fakeRegistry{err: eris.New("registry down")}
	r := newTestResolver(t, reg)

	_, err := r.Resolve(context.Background(), Request{Zip: "75299", Address: "123 Main Street"})
	var resErr *model.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, model.ErrUpstream, resErr.Type)
	assert.True(t, resErr.Retryable())
}

func TestResolveAddressTooShort(t *testing.T) {
	reg := &fakeRegistry{}
	r := newTestResolver(t, reg)

	_, err := r.Resolve(context.Background(), Request{Zip: "75001", Address: "ab"})
	var resErr *model.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, model.ErrValidation, resErr.Type)
	assert.Zero(t, reg.callCount())
}

func TestResolveAddressCachingAvoidsRepeatRegistryCalls(t *testing.T) {
	reg := &fakeRegistry{points: []esiid.ServicePoint{
		{ESIID: "1", TDSPDuns: catalog.OncorID, TDSPName: "Oncor", Status: "active"},
	}}
	r := newTestResolver(t, reg)

	// Differently formatted but equivalent addresses normalize to one key.
	_, err := r.Resolve(context.Background(), Request{Zip: "75001", Address: "123 Main St"})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), Request{Zip: "75001", Address: "123  main street"})
	require.NoError(t, err)

	assert.Equal(t, 1, reg.callCount())
}

func TestResolveRateLimited(t *testing.T) {
	cat, err := catalog.New(catalog.Seed())
	require.NoError(t, err)

	r := New(cat, &fakeRegistry{}, config.ResolverConfig{}, config.RateLimitConfig{
		ZipPerMinute: 60,
		ZipBurst:     3,
	}, 1)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, Request{Zip: "75201", Identity: "10.0.0.1"})
		require.NoError(t, err)
	}

	_, err = r.Resolve(ctx, Request{Zip: "75201", Identity: "10.0.0.1"})
	var resErr *model.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, model.ErrRateLimited, resErr.Type)
	assert.Greater(t, resErr.RetryAfter, time.Duration(0))

	// A different identity is unaffected.
	_, err = r.Resolve(ctx, Request{Zip: "75201", Identity: "10.0.0.2"})
	require.NoError(t, err)
}
