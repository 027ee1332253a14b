package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrOverloaded means the model kept rejecting requests with a rate-limit or
// overload status until the retry budget ran out.
var ErrOverloaded = errors.New("language model temporarily overloaded")

// PermanentError wraps a failure that retrying will not fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("language model call failed: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// StatusError carries the HTTP status a backend received.
type StatusError struct {
	Backend    string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Backend, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// IsRetryable reports whether err belongs to the rate-limit / overload class.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "overloaded")
}
