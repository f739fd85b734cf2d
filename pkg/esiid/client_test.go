package esiid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithAPIKey("test-key"))
	return srv, c
}

func TestSearchParsesResults(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/service-points", r.URL.Path)
		assert.Equal(t, "123 Main Street", r.URL.Query().Get("address"))
		assert.Equal(t, "75001", r.URL.Query().Get("zip"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"count": 2,
			"results": []map[string]any{
				{"esiid": "1044372000000001", "service_address": "123 MAIN ST", "tdsp_duns": "1039940674000", "tdsp_name": "Oncor", "status": "ACTIVE"},
				{"esiid": "1044372000000002", "service_address": "123 MAIN ST UNIT B", "tdsp_duns": "1039940674000", "tdsp_name": "Oncor", "status": "active"},
			},
		})
	})

	points, err := c.Search(context.Background(), "123 Main Street", "75001")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "1044372000000001", points[0].ESIID)
	assert.Equal(t, "1039940674000", points[0].TDSPDuns)
	assert.Equal(t, "active", points[0].Status)
}

func TestSearchFiltersInactiveServicePoints(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"count": 3,
			"results": []map[string]any{
				{"esiid": "1", "tdsp_duns": "1039940674000", "status": "active"},
				{"esiid": "2", "tdsp_duns": "1039940674000", "status": "inactive"},
				{"esiid": "3", "tdsp_duns": "1039940674000", "status": "de-energized"},
			},
		})
	})

	points, err := c.Search(context.Background(), "123 Main Street", "75001")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "1", points[0].ESIID)
}

func TestSearchEmptyResults(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"count": 0, "results": []any{}})
	})

	points, err := c.Search(context.Background(), "999 Nowhere Lane", "75001")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestSearchAPIError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := c.Search(context.Background(), "123 Main Street", "75001")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestSearchMalformedResponse(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := c.Search(context.Background(), "123 Main Street", "75001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&APIError{StatusCode: 429}))
	assert.True(t, IsRetryable(&APIError{StatusCode: 500}))
	assert.True(t, IsRetryable(&APIError{StatusCode: 503}))
	assert.False(t, IsRetryable(&APIError{StatusCode: 400}))
	assert.False(t, IsRetryable(&APIError{StatusCode: 404}))
	assert.True(t, IsRetryable(eris.New("connection refused")))
	assert.False(t, IsRetryable(nil))
}
