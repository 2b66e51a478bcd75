package middleware

import (
	"context"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/m1z23r/drift/pkg/drift"
)

const IdentityKey = "identity"

type IdentityResolver interface {
	Resolve(ctx context.Context, user models.SessionUser) access.Identity
}

type DenialRecorder interface {
	RecordAccessDenied(requirement, reason string)
}

// Require gates a route behind reqs. Unauthenticated requests get 401 with the
// login redirect, authenticated ones lacking a role get 403. On success the
// resolved identity is available through GetIdentity.
func Require(resolver IdentityResolver, denials DenialRecorder, reqs ...access.Requirement) drift.HandlerFunc {
	label := requirementLabel(reqs)

	return func(c *drift.Context) {
		state := access.GateState{}
		if user, ok := GetSessionUser(c); ok {
			identity := resolver.Resolve(c.Request.Context(), user)
			state.Identity = &identity
		}

		decision := access.Decide(state, c.Request.URL.RequestURI(), reqs...)
		switch {
		case decision.Unauthenticated():
			recordDenial(denials, label, "unauthenticated")
			RespondError(c, &apperr.Error{
				Kind:    apperr.KindAuthentication,
				Code:    apperr.CodeAuthRequired,
				Message: apperr.MsgAuthentication,
				Details: map[string]string{"redirect": decision.Location},
			})
			return
		case decision.Forbidden():
			recordDenial(denials, label, "forbidden")
			RespondError(c, &apperr.Error{
				Kind:    apperr.KindAuthorization,
				Code:    apperr.CodeForbidden,
				Message: apperr.MsgAuthorization,
				Details: map[string]string{"redirect": decision.Location, "required": label},
			})
			return
		}

		c.Set(IdentityKey, state.Identity)
		c.Next()
	}
}

func GetIdentity(c *drift.Context) *access.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(*access.Identity); ok {
			return id
		}
	}
	return nil
}

func recordDenial(denials DenialRecorder, requirement, reason string) {
	if denials != nil {
		denials.RecordAccessDenied(requirement, reason)
	}
}

func requirementLabel(reqs []access.Requirement) string {
	if len(reqs) == 0 {
		return string(access.RequireAuthenticated)
	}
	label := string(reqs[0])
	for _, r := range reqs[1:] {
		label += "," + string(r)
	}
	return label
}
