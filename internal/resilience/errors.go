package resilience

import (
	"context"
	"errors"
	"net/http"
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	HTTPStatus() int
}

// Status returns the HTTP status carried anywhere in err's chain.
func Status(err error) (int, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus(), true
	}
	return 0, false
}

// IsNotFound reports whether err carries a 404. A 404 from a per-entity
// endpoint means "no data for this id" rather than a failure.
func IsNotFound(err error) bool {
	code, ok := Status(err)
	return ok && code == http.StatusNotFound
}

// IsClientError reports whether err carries a 4xx status other than the
// retry-worthy 408 and 429.
func IsClientError(err error) bool {
	code, ok := Status(err)
	if !ok {
		return false
	}
	return code >= 400 && code < 500 && !IsTransientHTTPStatus(code)
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests:
		return true
	}
	return statusCode >= 500
}

// Retryable is the default retry predicate for upstream calls: server errors,
// throttling and network failures are retried; client errors and caller
// cancellation are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if code, ok := Status(err); ok {
		return IsTransientHTTPStatus(code)
	}
	// Anything else reached us from the transport: timeouts, resets,
	// refused connections, truncated bodies.
	return !isPermanent(err)
}

// permanentError marks an error that must never be retried.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Retryable rejects it (e.g. decode failures).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
