package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds for upstream failures. Callers match with
// errors.Is to produce actionable messages: 401 means the credential is
// wrong, 429 means back off and retry later.
var (
	ErrInvalidCredentials = errors.New("invalid news api credentials")
	ErrRateLimited        = errors.New("news api rate limited")
	ErrTimeout            = errors.New("news api request timed out")
	ErrBadResponse        = errors.New("unexpected news api response")
)

// APIError is returned for any non-2xx upstream response. It carries the
// status code and the upstream error body, and unwraps to
// ErrInvalidCredentials or ErrRateLimited for the statuses that deserve
// distinct handling.
type APIError struct {
	StatusCode int
	Body       string
	kind       error
}

func newAPIError(statusCode int, body string) *APIError {
	e := &APIError{StatusCode: statusCode, Body: body}
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.kind = ErrInvalidCredentials
	case http.StatusTooManyRequests:
		e.kind = ErrRateLimited
	}
	return e
}

func (e *APIError) Error() string {
	if e.kind != nil {
		return fmt.Sprintf("%v (status %d): %s", e.kind, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("news api error (status %d): %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.kind
}
