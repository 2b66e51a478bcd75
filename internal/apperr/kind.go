// Package apperr normalizes errors raised by the data-access layer into a closed
// taxonomy and provides the retry-with-backoff helper used around store calls.
//
// Every error that reaches a user or a log passes through Classify first. Raw
// backend errors (pgx errors, backend error bodies, transport failures) are never
// shown directly: known backend codes map to a fixed message, anything else falls
// back to a generic one.
package apperr

import "net/http"

// Kind is the normalized category of a classified error.
type Kind string

const (
	KindNetwork        Kind = "NETWORK_ERROR"
	KindAuthentication Kind = "AUTHENTICATION_ERROR"
	KindAuthorization  Kind = "AUTHORIZATION_ERROR"
	KindValidation     Kind = "VALIDATION_ERROR"
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	// KindRateLimit is reserved; nothing produces it yet.
	KindRateLimit Kind = "RATE_LIMIT"
	KindServer    Kind = "SERVER_ERROR"
	KindUnknown   Kind = "UNKNOWN_ERROR"
)

// Kinds lists the whole taxonomy in a stable order.
var Kinds = []Kind{
	KindNetwork,
	KindAuthentication,
	KindAuthorization,
	KindValidation,
	KindNotFound,
	KindConflict,
	KindRateLimit,
	KindServer,
	KindUnknown,
}

// Fixed user-facing messages.
const (
	MsgNetwork        = "Network error. Please check your connection and try again."
	MsgAuthentication = "Authentication required. Please sign in again."
	MsgAuthorization  = "You do not have permission to perform this action."
	MsgNotFound       = "The requested resource was not found."
	MsgConflict       = "This record already exists."
	MsgReference      = "The referenced record does not exist."
	MsgRequiredField  = "A required field is missing."
	MsgInvalidValue   = "One or more fields have an invalid value."
	MsgRateLimit      = "Too many requests. Please wait a moment and try again."
	MsgServer         = "A server error occurred. Please try again later."
	MsgUnexpected     = "An unexpected error occurred"
)

// Retryable reports whether an operation failing with this kind may be attempted again.
// Authentication, authorization and validation failures need the user to act first.
func (k Kind) Retryable() bool {
	switch k {
	case KindAuthentication, KindAuthorization, KindValidation:
		return false
	default:
		return true
	}
}

// HTTPStatus maps a kind to the status the API answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNetwork:
		return http.StatusBadGateway
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
