package esiid

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// searchResponse is the JSON response from the registry search endpoint.
type searchResponse struct {
	Count   int `json:"count"`
	Results []struct {
		ESIID          string `json:"esiid"`
		ServiceAddress string `json:"service_address"`
		TDSPDuns       string `json:"tdsp_duns"`
		TDSPName       string `json:"tdsp_name"`
		Status         string `json:"status"`
	} `json:"results"`
}

// Search queries the registry for service points matching the address within
// the ZIP. Inactive and de-energized service points are filtered out: their
// territory assignment may predate a boundary change.
func (c *client) Search(ctx context.Context, address, zip string) ([]ServicePoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "esiid: rate limit")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{
		"address": {address},
		"zip":     {zip},
	}
	reqURL := strings.TrimRight(c.baseURL, "/") + "/service-points?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "esiid: build request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "esiid: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "esiid: read body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "esiid: parse response")
	}

	points := make([]ServicePoint, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if !strings.EqualFold(r.Status, "active") && r.Status != "" {
			continue
		}
		points = append(points, ServicePoint{
			ESIID:    r.ESIID,
			Address:  r.ServiceAddress,
			TDSPDuns: r.TDSPDuns,
			TDSPName: r.TDSPName,
			Status:   strings.ToLower(r.Status),
		})
	}

	return points, nil
}
