// Package sharepoint provides an authenticated HTTP client for the
// SharePoint REST API with automatic retry and error classification.
package sharepoint

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, sharepoint.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("sharepoint: bad request")
	ErrUnauthorized = errors.New("sharepoint: unauthorized")
	ErrForbidden    = errors.New("sharepoint: forbidden")
	ErrNotFound     = errors.New("sharepoint: not found")
	ErrThrottled    = errors.New("sharepoint: throttled")
	ErrServerError  = errors.New("sharepoint: server error")
)

// ErrAuthFailed is returned when the STS rejects the supplied credentials.
var ErrAuthFailed = errors.New("sharepoint: authentication failed")

// APIError wraps a sentinel error with the HTTP status code, the SharePoint
// correlation ID, and the API error message body for debugging.
type APIError struct {
	StatusCode    int
	CorrelationID string
	Message       string
	Err           error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("sharepoint: HTTP %d (correlation-id: %s): %s", e.StatusCode, e.CorrelationID, e.Message)
	}

	return fmt.Sprintf("sharepoint: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
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
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		// 509 Bandwidth Limit Exceeded (SharePoint).
		const statusBandwidthExceeded = 509
		return code == statusBandwidthExceeded
	}
}
