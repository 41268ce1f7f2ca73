package dto

import (
	"net/http"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeValidation is used when a bound payload fails validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when a webhook signature is missing or wrong
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource or job is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used when a sync job is already running
	ErrCodeConflict = "ERR_CONFLICT"
)

// Sync error codes, one per integration.ErrorKind
const (
	ErrCodeMalformedData    = "ERR_MALFORMED_DATA"
	ErrCodeConfiguration    = "ERR_CONFIGURATION"
	ErrCodeDestinationData  = "ERR_DESTINATION_NOT_FOUND"
	ErrCodeAmbiguousMatch   = "ERR_AMBIGUOUS_MATCH"
	ErrCodePriceParse       = "ERR_PRICE_PARSE"
	ErrCodeRemoteAPI        = "ERR_REMOTE_API"
	ErrCodeTransientNetwork = "ERR_TRANSIENT_NETWORK"
	ErrCodeRateLimited      = "ERR_RATE_LIMITED"
	ErrCodeCancelled        = "ERR_CANCELLED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	// Order data that cannot be applied -> 422 Unprocessable Entity
	ErrCodeMalformedData:   http.StatusUnprocessableEntity,
	ErrCodeConfiguration:   http.StatusUnprocessableEntity,
	ErrCodeDestinationData: http.StatusUnprocessableEntity,
	ErrCodeAmbiguousMatch:  http.StatusUnprocessableEntity,
	ErrCodePriceParse:      http.StatusUnprocessableEntity,

	// Platform failures -> 502 Bad Gateway
	ErrCodeRemoteAPI:        http.StatusBadGateway,
	ErrCodeTransientNetwork: http.StatusBadGateway,
	ErrCodeRateLimited:      http.StatusBadGateway,
	ErrCodeCancelled:        http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorKindCodeMapping maps sync error kinds to API error codes
var ErrorKindCodeMapping = map[integration.ErrorKind]string{
	integration.ErrorKindMalformedData:    ErrCodeMalformedData,
	integration.ErrorKindConfiguration:    ErrCodeConfiguration,
	integration.ErrorKindNotFound:         ErrCodeDestinationData,
	integration.ErrorKindAmbiguousMatch:   ErrCodeAmbiguousMatch,
	integration.ErrorKindPriceParse:       ErrCodePriceParse,
	integration.ErrorKindRemoteAPI:        ErrCodeRemoteAPI,
	integration.ErrorKindTransientNetwork: ErrCodeTransientNetwork,
	integration.ErrorKindRateLimited:      ErrCodeRateLimited,
	integration.ErrorKindCancelled:        ErrCodeCancelled,
	integration.ErrorKindUnknown:          ErrCodeUnknown,
}

// CodeForKind converts an error kind to its API error code
// Unknown kinds map to ErrCodeUnknown
func CodeForKind(kind integration.ErrorKind) string {
	if code, ok := ErrorKindCodeMapping[kind]; ok {
		return code
	}
	return ErrCodeUnknown
}
