package apperr

import "errors"

// Sentinel errors for the failure classes the pipelines distinguish.
// Call sites wrap these with fmt.Errorf("...: %w", ...) and callers
// classify with errors.Is.
var (
	// ErrConfig indicates a missing credential or setting. Fatal at
	// startup or on first use of the misconfigured client.
	ErrConfig = errors.New("missing configuration")

	// ErrUpstreamAuth indicates a third-party service rejected our
	// credential (HTTP 401/403).
	ErrUpstreamAuth = errors.New("upstream auth rejected")

	// ErrRateLimited indicates a third-party HTTP 429.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrTimeout indicates a bounded upstream call did not complete in
	// time. No partial result is usable.
	ErrTimeout = errors.New("upstream timeout")

	// ErrEmptyResponse indicates the generation service returned blank
	// text, treated as failure rather than success.
	ErrEmptyResponse = errors.New("upstream empty response")

	// ErrDimensionMismatch indicates an embedding whose length violates
	// the configured dimension contract.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrValidation indicates caller input out of bounds.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound indicates an absent document or session.
	ErrNotFound = errors.New("not found")
)
