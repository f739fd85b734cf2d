package model

import "time"

// ErrorType is the typed taxonomy surfaced to callers. Each value maps to a
// distinct user experience, so handlers must never collapse them.
type ErrorType string

const (
	ErrValidation     ErrorType = "validation"
	ErrNotFound       ErrorType = "not_found"
	ErrNonDeregulated ErrorType = "non_deregulated"
	ErrAmbiguous      ErrorType = "ambiguous"
	ErrRateLimited    ErrorType = "rate_limited"
	ErrUpstream       ErrorType = "upstream_failure"
)

// ResolutionError is a typed resolution failure. NON_DEREGULATED is a
// legitimate outcome, not a fault; it rides the error channel only because it
// terminates resolution.
type ResolutionError struct {
	Type    ErrorType
	Message string

	// RetryAfter is set for rate-limited outcomes.
	RetryAfter time.Duration
	// Utility names the municipal provider for non-deregulated outcomes.
	Utility string
	// RedirectPath optionally points the caller at an informational page.
	RedirectPath string
	// Candidates carries the possible territories for ambiguous outcomes.
	Candidates []Territory

	cause error
}

func (e *ResolutionError) Error() string {
	if e.Message != "" {
		return string(e.Type) + ": " + e.Message
	}
	return string(e.Type)
}

func (e *ResolutionError) Unwrap() error { return e.cause }

// Retryable reports whether the caller may retry without changing the input.
func (e *ResolutionError) Retryable() bool {
	return e.Type == ErrRateLimited || e.Type == ErrUpstream
}

// NewValidationError reports malformed input; the user must correct it.
func NewValidationError(msg string) *ResolutionError {
	return &ResolutionError{Type: ErrValidation, Message: msg}
}

// NewNotFoundError reports a well-formed ZIP with no territory coverage.
func NewNotFoundError(msg string) *ResolutionError {
	return &ResolutionError{Type: ErrNotFound, Message: msg}
}

// NewNonDeregulatedError reports a ZIP or city served by a municipal utility.
func NewNonDeregulatedError(msg, utility, redirectPath string) *ResolutionError {
	return &ResolutionError{Type: ErrNonDeregulated, Message: msg, Utility: utility, RedirectPath: redirectPath}
}

// NewAmbiguousError reports an address matching service points in more than
// one territory; the user must supply more specificity.
func NewAmbiguousError(msg string, candidates []Territory) *ResolutionError {
	return &ResolutionError{Type: ErrAmbiguous, Message: msg, Candidates: candidates}
}

// NewRateLimitedError reports an exceeded request ceiling.
func NewRateLimitedError(retryAfter time.Duration) *ResolutionError {
	return &ResolutionError{Type: ErrRateLimited, Message: "request rate exceeded", RetryAfter: retryAfter}
}

// NewUpstreamError wraps an external registry failure.
func NewUpstreamError(msg string, cause error) *ResolutionError {
	return &ResolutionError{Type: ErrUpstream, Message: msg, cause: cause}
}
