package apperr

import "fmt"

// Error is a classified error. It is built once at the boundary where the raw
// error was caught and never mutated afterwards.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// Code is the backend code the error was classified from, when there was one.
	Code string `json:"code,omitempty"`
	// Details is passed through untouched from the backend error.
	Details any `json:"details,omitempty"`
	// Cause is kept for diagnostics only.
	Cause error `json:"-"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// New builds a classified error directly, for code that already knows the kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf classifies err and returns its kind.
func KindOf(err error) Kind {
	return Classify(err).Kind
}
