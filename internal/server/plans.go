package server

import (
	"context"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

// PlanFinder reports how many retail plans are available for a territory.
// The navigate endpoint surfaces the count so the frontend can show "N plans
// available" before redirecting.
type PlanFinder interface {
	PlanCount(ctx context.Context, territoryID string) (int, error)
}

// StaticPlanFinder serves fixed plan counts, seeded per territory. It stands
// in until the pricing service is wired up.
type StaticPlanFinder struct {
	counts       map[string]int
	defaultCount int
}

// NewStaticPlanFinder creates a StaticPlanFinder. Territories missing from
// counts report defaultCount.
func NewStaticPlanFinder(counts map[string]int, defaultCount int) *StaticPlanFinder {
	if counts == nil {
		counts = make(map[string]int)
	}
	return &StaticPlanFinder{counts: counts, defaultCount: defaultCount}
}

func (f *StaticPlanFinder) PlanCount(_ context.Context, territoryID string) (int, error) {
	if n, ok := f.counts[territoryID]; ok {
		return n, nil
	}
	return f.defaultCount, nil
}

// territoryInfo is the wire form of a territory in API responses.
type territoryInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Zone string `json:"zone,omitempty"`
}

func toTerritoryInfo(t model.Territory) territoryInfo {
	return territoryInfo{ID: t.ID, Name: t.Name, Zone: t.Zone}
}

func toTerritoryInfos(ts []model.Territory) []territoryInfo {
	out := make([]territoryInfo, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTerritoryInfo(t))
	}
	return out
}
