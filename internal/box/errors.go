// Package box provides an HTTP client for the Box OAuth2 token endpoint and
// the content API calls the backup publisher needs: root-folder lookup,
// collaboration grants, and shared-link configuration. No SDK, no retries —
// the dominant failure mode (a single-use refresh token) makes blind retry
// unsafe, so every non-2xx response is terminal.
package box

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, box.ErrUnauthorized) to check.
var (
	ErrBadRequest   = errors.New("box: bad request")
	ErrUnauthorized = errors.New("box: unauthorized")
	ErrForbidden    = errors.New("box: forbidden")
	ErrNotFound     = errors.New("box: not found")
	ErrConflict     = errors.New("box: conflict")
	ErrThrottled    = errors.New("box: throttled")
	ErrServerError  = errors.New("box: server error")
)

// ErrFolderNotFound is returned by FindFolder when no folder with the
// requested name exists in the listing. The transfer step is required to
// have created the folder, so callers treat this as an invariant violation.
var ErrFolderNotFound = errors.New("box: folder not found")

// BoxError wraps a sentinel error with the HTTP status code, request ID,
// and the API error message body for debugging. Request bodies and tokens
// never appear here.
type BoxError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *BoxError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("box: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("box: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *BoxError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
