package middleware

import (
	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/m1z23r/drift/pkg/drift"
)

// RespondError writes e as a BackendError body with the status of its kind and
// stops the chain.
func RespondError(c *drift.Context, e *apperr.Error) {
	body := apperr.ToBackend(e)
	_ = c.JSON(body.Status, body)
	c.Abort()
}

func unauthenticated(c *drift.Context, message string) {
	RespondError(c, &apperr.Error{
		Kind:    apperr.KindAuthentication,
		Code:    apperr.CodeAuthRequired,
		Message: message,
		Details: map[string]string{"redirect": access.LoginLocation(c.Request.URL.RequestURI())},
	})
}
