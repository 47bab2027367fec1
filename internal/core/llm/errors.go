package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"campusassist/internal/apperr"
)

// classify maps provider errors onto the shared taxonomy so callers can
// decide degrade-vs-abort with errors.Is instead of string matching.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, apperr.ErrTimeout)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: status %d: %w", op, gerr.Code, apperr.ErrUpstreamAuth)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", op, apperr.ErrRateLimited)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
