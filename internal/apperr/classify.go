package apperr

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Classify turns any caught value into exactly one *Error. It never panics and
// never returns nil. Dispatch order, first match wins:
//
//  1. an already classified *Error is returned as is
//  2. structured backend errors (BackendError by value or pointer, pgconn.PgError, pgx.ErrNoRows) map by code
//  3. transport failures become NETWORK_ERROR with a fixed message
//  4. any other error becomes UNKNOWN_ERROR carrying its own message
//  5. a string becomes UNKNOWN_ERROR with the string as message
//  6. everything else, nil included, becomes UNKNOWN_ERROR with a fixed fallback
func Classify(raw any) (classified *Error) {
	defer func() {
		if r := recover(); r != nil {
			classified = &Error{Kind: KindUnknown, Message: MsgUnexpected}
		}
	}()

	switch v := raw.(type) {
	case nil:
		return &Error{Kind: KindUnknown, Message: MsgUnexpected}
	case *Error:
		if v == nil {
			return &Error{Kind: KindUnknown, Message: MsgUnexpected}
		}
		return v
	case BackendError:
		return fromBackend(v.Code, v.Message, v.Details, nil)
	case string:
		if v == "" {
			return &Error{Kind: KindUnknown, Message: MsgUnexpected}
		}
		return &Error{Kind: KindUnknown, Message: v}
	case error:
		return classifyError(v)
	default:
		return &Error{Kind: KindUnknown, Message: MsgUnexpected}
	}
}

func classifyError(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) && classified != nil {
		return classified
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr != nil {
		return fromBackend(backendErr.Code, backendErr.Message, backendErr.Details, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		var details any
		if pgErr.Detail != "" {
			details = pgErr.Detail
		}
		return fromBackend(pgErr.Code, pgErr.Message, details, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fromBackend(CodeNotFound, "", nil, err)
	}

	if isNetworkError(err) {
		return &Error{Kind: KindNetwork, Message: MsgNetwork, Cause: err}
	}

	msg := err.Error()
	if msg == "" {
		msg = MsgUnexpected
	}
	return &Error{Kind: KindUnknown, Message: msg, Cause: err}
}

func fromBackend(code, message string, details any, cause error) *Error {
	e := &Error{Code: code, Details: details, Cause: cause}

	switch code {
	case CodeNotFound:
		e.Kind, e.Message = KindNotFound, MsgNotFound
	case CodeAuthRequired:
		e.Kind, e.Message = KindAuthentication, MsgAuthentication
	case CodeForbidden:
		e.Kind, e.Message = KindAuthorization, MsgAuthorization
	case CodeUniqueViolation:
		e.Kind, e.Message = KindConflict, MsgConflict
	case CodeForeignKeyViolation:
		e.Kind, e.Message = KindValidation, MsgReference
	case CodeNotNullViolation:
		e.Kind, e.Message = KindValidation, MsgRequiredField
	case CodeCheckViolation, CodeInvalidText:
		e.Kind, e.Message = KindValidation, MsgInvalidValue
	default:
		e.Kind, e.Message = KindServer, MsgServer
		if message != "" {
			e.Message = message
		}
	}
	return e
}

var networkPhrases = []string{
	"failed to fetch",
	"fetch failed",
	"network",
	"connection refused",
	"connection reset",
	"no such host",
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var urlErr *url.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	var connectErr *pgconn.ConnectError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &connectErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range networkPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
