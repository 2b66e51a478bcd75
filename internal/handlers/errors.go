package handlers

import (
	"errors"
	"strconv"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/middleware"
	"github.com/dimitrije/jobboard-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// respondError classifies err, records it and writes the BackendError body.
// Service sentinels map to their kinds directly; anything else goes through the
// classifier, and unclassifiable failures never leak their text to the caller.
func respondError(c *drift.Context, rec *apperr.Recorder, err error) {
	e := classifyServiceError(err)
	if e == nil {
		e = rec.Record(err, map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		if e.Kind == apperr.KindUnknown {
			e = &apperr.Error{Kind: apperr.KindServer, Code: apperr.CodeInternal, Message: apperr.MsgServer, Cause: e.Cause}
		}
	}
	middleware.RespondError(c, e)
}

func classifyServiceError(err error) *apperr.Error {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return &apperr.Error{Kind: apperr.KindConflict, Code: apperr.CodeUniqueViolation, Message: err.Error(), Cause: err}
	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, access.ErrInvalidRole):
		return &apperr.Error{Kind: apperr.KindValidation, Code: apperr.CodeCheckViolation, Message: err.Error(), Cause: err}
	case errors.Is(err, services.ErrInvalidCredentials):
		return &apperr.Error{Kind: apperr.KindAuthentication, Code: apperr.CodeAuthRequired, Message: err.Error(), Cause: err}
	case errors.Is(err, services.ErrIdentityNotFound),
		errors.Is(err, services.ErrGrantNotFound):
		return &apperr.Error{Kind: apperr.KindNotFound, Code: apperr.CodeNotFound, Message: err.Error(), Cause: err}
	}
	return nil
}

func badRequest(c *drift.Context, message string) {
	middleware.RespondError(c, &apperr.Error{Kind: apperr.KindValidation, Code: apperr.CodeCheckViolation, Message: message})
}

func unauthorized(c *drift.Context, message string) {
	middleware.RespondError(c, &apperr.Error{Kind: apperr.KindAuthentication, Code: apperr.CodeAuthRequired, Message: message})
}

func pagination(c *drift.Context) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
