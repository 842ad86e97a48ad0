package scraper

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-operators/parser"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// HTTPStatusError is any non-2xx response without a more specific type.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d for %s", e.StatusCode, e.URL)
}

// PreloadedStateError means a detail page carried no usable embedded state.
// Err is set when the marker was found but its JSON did not decode.
type PreloadedStateError struct {
	Slug string
	Err  error
}

func (e *PreloadedStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode preloaded state for %s: %v", e.Slug, e.Err)
	}
	return "no preloaded state found for " + e.Slug
}

func (e *PreloadedStateError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var status *HTTPStatusError
	if errors.As(err, &status) {
		return "http_status"
	}
	var preloaded *PreloadedStateError
	if errors.As(err, &preloaded) {
		return "extraction"
	}
	var card *CardError
	if errors.As(err, &card) {
		return "schema"
	}
	var missing *parser.MissingKeyError
	if errors.As(err, &missing) {
		return "schema"
	}
	var typeErr *parser.TypeError
	if errors.As(err, &typeErr) {
		return "schema"
	}
	var unknown *parser.UnknownLoadoutTypeError
	if errors.As(err, &unknown) {
		return "classification"
	}
	return "other"
}
