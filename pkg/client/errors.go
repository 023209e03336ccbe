package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kailas-cloud/agentmart/pkg/api"
)

// Sentinel errors matched by *APIError. Use errors.Is() to check.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnavailable    = errors.New("service unavailable")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       api.ErrorCode
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("agentmart: http %d", e.StatusCode)
	}
	return fmt.Sprintf("agentmart: %s (http %d)", e.Message, e.StatusCode)
}

// Is maps the status code onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrUnavailable:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// RequestError is a failure to complete the HTTP exchange.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string { return "agentmart: " + e.Op + ": " + e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// Timeout reports whether the request ran out of time.
func (e *RequestError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
