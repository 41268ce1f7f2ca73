package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ---------------------------------------------------------------------------
// Sync Errors
// ---------------------------------------------------------------------------

var (
	// Error taxonomy shared by both platform adapters and the sync engines
	ErrTransientNetwork = errors.New("integration: transient network error")
	ErrRemoteAPI        = errors.New("integration: remote API error")
	ErrMalformedData    = errors.New("integration: malformed data")
	ErrAmbiguousMatch   = errors.New("integration: ambiguous destination match")
	ErrPriceParse       = errors.New("integration: price parse error")

	ErrRateLimited        = errors.New("integration: platform rate limited")
	ErrProductNotFound    = errors.New("integration: destination product not found")
	ErrVariantNotFound    = errors.New("integration: destination variant not found")
	ErrStoreNotConfigured = errors.New("integration: store not configured")
	ErrInvalidStoreConfig = errors.New("integration: invalid store configuration")
	ErrInvalidMarkupTiers = errors.New("integration: invalid markup tiers")
	ErrEmptyOrder         = errors.New("integration: order has no line items")
)

// ErrorKind is a stable, low-cardinality name for an error class.
// Used in sync reports, metrics labels and webhook responses.
type ErrorKind string

const (
	ErrorKindTransientNetwork ErrorKind = "TRANSIENT_NETWORK"
	ErrorKindRemoteAPI        ErrorKind = "REMOTE_API"
	ErrorKindMalformedData    ErrorKind = "MALFORMED_DATA"
	ErrorKindAmbiguousMatch   ErrorKind = "AMBIGUOUS_MATCH"
	ErrorKindPriceParse       ErrorKind = "PRICE_PARSE"
	ErrorKindRateLimited      ErrorKind = "RATE_LIMITED"
	ErrorKindNotFound         ErrorKind = "NOT_FOUND"
	ErrorKindConfiguration    ErrorKind = "CONFIGURATION"
	ErrorKindCancelled        ErrorKind = "CANCELLED"
	ErrorKindUnknown          ErrorKind = "UNKNOWN"
)

// KindOf classifies err into an ErrorKind
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return ErrorKindRateLimited
	case errors.Is(err, ErrTransientNetwork):
		return ErrorKindTransientNetwork
	case errors.Is(err, ErrRemoteAPI):
		return ErrorKindRemoteAPI
	case errors.Is(err, ErrMalformedData), errors.Is(err, ErrEmptyOrder):
		return ErrorKindMalformedData
	case errors.Is(err, ErrAmbiguousMatch):
		return ErrorKindAmbiguousMatch
	case errors.Is(err, ErrPriceParse):
		return ErrorKindPriceParse
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrVariantNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ErrStoreNotConfigured), errors.Is(err, ErrInvalidStoreConfig),
		errors.Is(err, ErrInvalidMarkupTiers):
		return ErrorKindConfiguration
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindCancelled
	default:
		return ErrorKindUnknown
	}
}

// RemoteAPIError describes a non-success response returned by a platform.
// It unwraps to ErrRemoteAPI (or ErrRateLimited for HTTP 429).
type RemoteAPIError struct {
	Platform   PlatformCode
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error implements error
func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("%s %s %s: HTTP %d: %s", e.Platform, e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap returns the taxonomy sentinel for the status code
func (e *RemoteAPIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return ErrRemoteAPI
}

// Retryable reports whether repeating the same request may succeed
func (e *RemoteAPIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// StatusCodeOf returns the HTTP status carried by err, or 0
func StatusCodeOf(err error) int {
	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
