package resolver

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/choosepower/tdsp-resolver/internal/model"
	"github.com/choosepower/tdsp-resolver/internal/resilience"
	"github.com/choosepower/tdsp-resolver/pkg/esiid"
)

// disambiguator queries the external service-point registry for an address
// and reduces the matches to distinct territories. Registry calls run through
// a bounded retry and a circuit breaker; after repeated failures resolution
// fails fast and degrades to split-ZIP candidates upstream.
type disambiguator struct {
	registry esiid.Client
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
}

func newDisambiguator(registry esiid.Client, maxAttempts int) *disambiguator {
	retry := resilience.DefaultRetryConfig()
	if maxAttempts > 0 {
		retry.MaxAttempts = maxAttempts
	}
	retry.ShouldRetry = esiid.IsRetryable
	retry.OnRetry = resilience.RetryLogger("esiid", "search")

	return &disambiguator{
		registry: registry,
		retry:    retry,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			ShouldTrip: esiid.IsRetryable,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("registry circuit state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

// lookupOutcome summarizes a registry query: the matched service points and
// the distinct territories they belong to.
type lookupOutcome struct {
	points       []model.ServicePointRecord
	territoryIDs []string
}

// Lookup searches the registry for the normalized address. The returned
// territory ids are distinct and sorted; an address matching several service
// points in one territory is still unambiguous.
func (d *disambiguator) Lookup(ctx context.Context, addr model.Address) (lookupOutcome, error) {
	points, err := resilience.ExecuteVal(ctx, d.breaker, func(ctx context.Context) ([]esiid.ServicePoint, error) {
		return resilience.DoVal(ctx, d.retry, func(ctx context.Context) ([]esiid.ServicePoint, error) {
			return d.registry.Search(ctx, addr.Normalized, addr.Zip)
		})
	})
	if err != nil {
		return lookupOutcome{}, err
	}

	var out lookupOutcome
	seen := make(map[string]bool)
	for _, p := range points {
		out.points = append(out.points, model.ServicePointRecord{
			ESIID:       p.ESIID,
			Address:     p.Address,
			TerritoryID: p.TDSPDuns,
			TDSPName:    p.TDSPName,
		})
		if p.TDSPDuns != "" && !seen[p.TDSPDuns] {
			seen[p.TDSPDuns] = true
			out.territoryIDs = append(out.territoryIDs, p.TDSPDuns)
		}
	}
	sort.Strings(out.territoryIDs)
	return out, nil
}
