// Package esiid provides a client for the ESIID service-point registry used
// to disambiguate street addresses within split ZIP codes.
package esiid

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client looks up electric service points by street address.
type Client interface {
	// Search returns the service points matching a normalized address within
	// a ZIP code. Zero, one, or many records may match.
	Search(ctx context.Context, address, zip string) ([]ServicePoint, error)
}

// ServicePoint is one metered service location returned by the registry.
type ServicePoint struct {
	ESIID    string
	Address  string
	TDSPDuns string
	TDSPName string
	Status   string // "active", "inactive", "de-energized"
}

// APIError is a non-2xx registry response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("esiid: registry returned status %d", e.StatusCode)
}

// IsRetryable reports whether err represents a transient registry failure
// (429 or 5xx) that is safe to retry.
func IsRetryable(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return err != nil // network-level failures are retryable
}

// Option configures the registry client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithAPIKey sets the registry API key.
func WithAPIKey(key string) Option {
	return func(c *client) {
		c.apiKey = key
	}
}

// WithRateLimit sets the requests-per-second ceiling for registry calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds each registry request. Registry lookups are the only
// long-running operation in the resolver; on timeout the caller degrades to
// split-ZIP candidates rather than blocking.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewClient creates a registry Client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		timeout:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
