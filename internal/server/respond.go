package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

// errorResponse is the uniform failure payload.
type errorResponse struct {
	Success      bool              `json:"success"`
	ErrorType    model.ErrorType   `json:"errorType"`
	Message      string            `json:"message"`
	Utility      string            `json:"utility,omitempty"`
	RedirectPath string            `json:"redirectPath,omitempty"`
	Candidates   []territoryInfo   `json:"candidates,omitempty"`
	RetryAfterMs int64             `json:"retryAfterMs,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// writeResolutionError maps the typed taxonomy to HTTP. NON_DEREGULATED is a
// 200: it is an expected outcome with its own user messaging, not a fault.
func writeResolutionError(w http.ResponseWriter, err error, limit int) {
	var resErr *model.ResolutionError
	if !errors.As(err, &resErr) {
		zap.L().Error("unclassified resolution failure", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			ErrorType: model.ErrUpstream,
			Message:   "internal error",
		})
		return
	}

	resp := errorResponse{
		ErrorType:    resErr.Type,
		Message:      resErr.Message,
		Utility:      resErr.Utility,
		RedirectPath: resErr.RedirectPath,
		Candidates:   toTerritoryInfos(resErr.Candidates),
	}

	switch resErr.Type {
	case model.ErrValidation:
		writeJSON(w, http.StatusBadRequest, resp)
	case model.ErrNotFound:
		writeJSON(w, http.StatusNotFound, resp)
	case model.ErrNonDeregulated:
		writeJSON(w, http.StatusOK, resp)
	case model.ErrAmbiguous:
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case model.ErrRateLimited:
		retryAfter := resErr.RetryAfter
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		seconds := int(retryAfter.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		w.Header().Set("X-RateLimit-Remaining", "0")
		resp.RetryAfterMs = retryAfter.Milliseconds()
		writeJSON(w, http.StatusTooManyRequests, resp)
	case model.ErrUpstream:
		writeJSON(w, http.StatusServiceUnavailable, resp)
	default:
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// clientIdentity extracts the caller identity for rate limiting: the first
// X-Forwarded-For hop when present, otherwise the remote address.
func clientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// setCacheControl advertises how long a caller may reuse the response.
func setCacheControl(w http.ResponseWriter, maxAge time.Duration) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))
}
