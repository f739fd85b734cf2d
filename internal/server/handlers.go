package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/choosepower/tdsp-resolver/internal/model"
	"github.com/choosepower/tdsp-resolver/internal/resolver"
)

// zipLookupResponse is the payload for GET /api/zip/{zip}.
type zipLookupResponse struct {
	Success              bool            `json:"success"`
	TerritoryID          string          `json:"territoryId"`
	TerritoryName        string          `json:"territoryName"`
	CitySlug             string          `json:"citySlug,omitempty"`
	CityDisplayName      string          `json:"cityDisplayName,omitempty"`
	Confidence           string          `json:"confidence"`
	RedirectPath         string          `json:"redirectPath,omitempty"`
	RequiresAddress      bool            `json:"requiresAddress"`
	CandidateTerritories []territoryInfo `json:"candidateTerritories,omitempty"`
}

func (s *Server) handleZipLookup(w http.ResponseWriter, r *http.Request) {
	zip := chi.URLParam(r, "zip")

	result, err := s.resolver.Resolve(r.Context(), resolver.Request{
		Zip:      zip,
		Identity: clientIdentity(r),
	})
	if err != nil {
		writeResolutionError(w, err, s.zipLimit)
		return
	}

	setCacheControl(w, 5*time.Minute)
	writeJSON(w, http.StatusOK, s.zipResponse(zip, result))
}

func (s *Server) zipResponse(zip string, result model.ResolutionResult) zipLookupResponse {
	resp := zipLookupResponse{
		Success:              true,
		TerritoryID:          result.TerritoryID,
		TerritoryName:        result.TerritoryName,
		Confidence:           string(result.Confidence),
		RequiresAddress:      result.RequiresAddress,
		CandidateTerritories: toTerritoryInfos(result.CandidateTerritories),
	}

	if entry, ok := s.resolver.Catalog().ZipEntries()[zip]; ok && entry.CitySlug != "" {
		resp.CitySlug = entry.CitySlug
		if cm, ok := s.resolver.Catalog().City(entry.CitySlug); ok {
			resp.CityDisplayName = cm.CityName
		}
		resp.RedirectPath = "/electricity-plans/" + entry.CitySlug + "/"
	}
	return resp
}

// navigateRequest is the payload for POST /api/zip/navigate. Plan counts are
// always validated; the flag is accepted for callers that send it.
type navigateRequest struct {
	Zip                    string `json:"zip"`
	ValidatePlansAvailable bool   `json:"validatePlansAvailable,omitempty"`
}

type navigateResponse struct {
	zipLookupResponse
	PlanCount        int   `json:"planCount"`
	ValidationTimeMs int64 `json:"validationTimeMs"`
}

func (s *Server) handleZipNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResolutionError(w, model.NewValidationError("invalid request body"), s.zipLimit)
		return
	}

	start := time.Now()
	result, err := s.resolver.Resolve(r.Context(), resolver.Request{
		Zip:      req.Zip,
		Identity: clientIdentity(r),
	})
	if err != nil {
		writeResolutionError(w, err, s.zipLimit)
		return
	}

	planCount := 0
	if result.TerritoryID != "" {
		planCount, err = s.plans.PlanCount(r.Context(), result.TerritoryID)
		if err != nil {
			zap.L().Warn("plan count lookup failed", zap.String("territory", result.TerritoryID), zap.Error(err))
		}
	}

	setCacheControl(w, 5*time.Minute)
	writeJSON(w, http.StatusOK, navigateResponse{
		zipLookupResponse: s.zipResponse(req.Zip, result),
		PlanCount:         planCount,
		ValidationTimeMs:  time.Since(start).Milliseconds(),
	})
}

// splitZipInfo flags multi-territory ZIPs in plan search responses.
type splitZipInfo struct {
	IsMultiTDSP            bool            `json:"isMultiTdsp"`
	AlternativeTerritories []territoryInfo `json:"alternativeTerritories,omitempty"`
}

// planSearchRequest is the payload for POST /api/plans/search.
type planSearchRequest struct {
	Zip      string            `json:"zip"`
	Address  string            `json:"address,omitempty"`
	UsageKwh int               `json:"usageKwh,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
}

type planSearchResponse struct {
	Success       bool           `json:"success"`
	TerritoryInfo *territoryInfo `json:"territoryInfo,omitempty"`
	SplitZipInfo  *splitZipInfo  `json:"splitZipInfo,omitempty"`
	SearchMethod  string         `json:"searchMethod,omitempty"`
	RequiresAddr  bool           `json:"requiresAddress"`
	Confidence    string         `json:"confidence,omitempty"`
	PlanCount     int            `json:"planCount"`
}

func (s *Server) handlePlanSearch(w http.ResponseWriter, r *http.Request) {
	var req planSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResolutionError(w, model.NewValidationError("invalid request body"), s.addressLimit)
		return
	}

	result, err := s.resolver.Resolve(r.Context(), resolver.Request{
		Zip:      req.Zip,
		Address:  req.Address,
		Identity: clientIdentity(r),
	})
	if err != nil {
		writeResolutionError(w, err, s.addressLimit)
		return
	}

	resp := planSearchResponse{
		Success:      result.Resolved(),
		SearchMethod: searchMethod(result),
		RequiresAddr: result.RequiresAddress,
		Confidence:   string(result.Confidence),
	}

	if result.TerritoryID != "" {
		if t, ok := s.resolver.Catalog().Territory(result.TerritoryID); ok {
			info := toTerritoryInfo(t)
			resp.TerritoryInfo = &info
		} else {
			resp.TerritoryInfo = &territoryInfo{ID: result.TerritoryID, Name: result.TerritoryName}
		}
		if n, err := s.plans.PlanCount(r.Context(), result.TerritoryID); err == nil {
			resp.PlanCount = n
		}
	}

	if split, ok := s.resolver.Catalog().SplitZip(req.Zip); ok {
		resp.SplitZipInfo = &splitZipInfo{
			IsMultiTDSP:            true,
			AlternativeTerritories: toTerritoryInfos(s.resolver.Catalog().TerritoriesByID(split.CandidateTerritoryIDs)),
		}
	} else if len(result.CandidateTerritories) > 1 {
		resp.SplitZipInfo = &splitZipInfo{
			IsMultiTDSP:            true,
			AlternativeTerritories: toTerritoryInfos(result.CandidateTerritories),
		}
	}

	setCacheControl(w, 5*time.Minute)
	writeJSON(w, http.StatusOK, resp)
}

// searchMethod maps the resolution method to the plan search vocabulary: an
// address resolved inside a split ZIP reports split_zip_resolved.
func searchMethod(result model.ResolutionResult) string {
	if result.Method == model.MethodAddressLookup && result.Resolved() {
		return "split_zip_resolved"
	}
	return string(result.Method)
}

// addressResolveRequest is the payload for POST /api/address/resolve.
type addressResolveRequest struct {
	Address string `json:"address"`
	Zip     string `json:"zip"`
}

type addressResolution struct {
	Method            string         `json:"method"`
	Confidence        string         `json:"confidence"`
	Territory         *territoryInfo `json:"territory,omitempty"`
	NormalizedAddress string         `json:"normalizedAddress"`
}

type addressResolveResponse struct {
	Success      bool              `json:"success"`
	Resolution   addressResolution `json:"resolution"`
	SplitZipInfo *splitZipInfo     `json:"splitZipInfo,omitempty"`
}

func (s *Server) handleAddressResolve(w http.ResponseWriter, r *http.Request) {
	var req addressResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResolutionError(w, model.NewValidationError("invalid request body"), s.addressLimit)
		return
	}
	if req.Address == "" {
		writeResolutionError(w, model.NewValidationError("address is required"), s.addressLimit)
		return
	}

	result, err := s.resolver.Resolve(r.Context(), resolver.Request{
		Zip:      req.Zip,
		Address:  req.Address,
		Identity: clientIdentity(r),
	})
	if err != nil {
		writeResolutionError(w, err, s.addressLimit)
		return
	}

	// An address matching several territories needs more specificity from the
	// user; surface it as the ambiguous outcome with the candidates attached.
	if result.Method == model.MethodAddressLookup && !result.Resolved() {
		writeResolutionError(w, model.NewAmbiguousError(
			"address matches service points in multiple territories; include a unit number",
			result.CandidateTerritories,
		), s.addressLimit)
		return
	}

	resp := addressResolveResponse{
		Success: result.Resolved(),
		Resolution: addressResolution{
			Method:            string(result.Method),
			Confidence:        string(result.Confidence),
			NormalizedAddress: result.SourceAddress,
		},
	}
	if result.TerritoryID != "" {
		resp.Resolution.Territory = &territoryInfo{ID: result.TerritoryID, Name: result.TerritoryName}
	}
	if len(result.CandidateTerritories) > 0 {
		resp.SplitZipInfo = &splitZipInfo{
			IsMultiTDSP:            true,
			AlternativeTerritories: toTerritoryInfos(result.CandidateTerritories),
		}
	}

	// Address-confirmed results are costlier to recompute; let callers hold
	// them longer.
	setCacheControl(w, 30*time.Minute)
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status         string `json:"status"`
	CatalogVersion string `json:"catalogVersion"`
	Zips           int    `json:"zips"`
	SplitZips      int    `json:"splitZips"`
	CachedResults  int    `json:"cachedResults"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	cat := s.resolver.Catalog()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		CatalogVersion: cat.Version(),
		Zips:           cat.ZipCount(),
		SplitZips:      cat.SplitZipCount(),
		CachedResults:  s.resolver.CacheLen(),
	})
}
