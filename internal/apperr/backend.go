package apperr

import (
	"fmt"
	"net/http"
)

// Backend error codes. The numeric ones are Postgres SQLSTATEs; the PGRST ones
// follow the REST gateway convention the API mirrors on the wire.
const (
	CodeNotFound            = "PGRST116"
	CodeAuthRequired        = "PGRST301"
	CodeForbidden           = "42501"
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
	CodeCheckViolation      = "23514"
	CodeInvalidText         = "22P02"
	CodeInternal            = "XX000"
)

// BackendError is the structured error shape returned by the backend. It is also
// the JSON body of every error response the API writes.
type BackendError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
	Hint    string `json:"hint,omitempty"`
	// Status is the HTTP status the error arrived with, zero when it did not come over HTTP.
	Status int `json:"-"`
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend error %s (%d %s): %s", e.Code, e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("backend error %s: %s", e.Code, e.Message)
}

// ToBackend renders a classified error as the wire body. Known kinds carry their
// canonical code so a client classifies the body back to the same kind.
func ToBackend(e *Error) *BackendError {
	code := e.Code
	if code == "" {
		code = codeForKind(e.Kind)
	}
	return &BackendError{
		Code:    code,
		Message: e.Message,
		Details: e.Details,
		Status:  e.Kind.HTTPStatus(),
	}
}

func codeForKind(k Kind) string {
	switch k {
	case KindNotFound:
		return CodeNotFound
	case KindAuthentication:
		return CodeAuthRequired
	case KindAuthorization:
		return CodeForbidden
	case KindConflict:
		return CodeUniqueViolation
	case KindValidation:
		return CodeCheckViolation
	default:
		return CodeInternal
	}
}
