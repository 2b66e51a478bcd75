package access

import (
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/google/uuid"
)

// Identity is the resolved view of a signed-in user: who they are, their profile
// if one loaded, and the capability flags derived from their admin grant.
// It is recomputed from scratch on every session change.
type Identity struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	Profile      *models.Profile `json:"profile"`
	Role         Role            `json:"role"`
	IsAdmin      bool            `json:"is_admin"`
	IsSuperAdmin bool            `json:"is_super_admin"`
}

// Derive composes an Identity. A missing grant, or one with an unrecognized role
// tag, yields job_seeker. hr_manager is its own track and is not an admin.
func Derive(user models.SessionUser, profile *models.Profile, grant *models.AdminGrant) Identity {
	role := RoleJobSeeker
	if grant != nil {
		if r, err := ParseGrantRole(grant.Role); err == nil {
			role = r
		}
	}

	return Identity{
		ID:           user.ID,
		Email:        user.Email,
		Profile:      profile,
		Role:         role,
		IsAdmin:      RequireAdmin.Allows(role),
		IsSuperAdmin: RequireSuperAdmin.Allows(role),
	}
}

func (i Identity) Satisfies(req Requirement) bool {
	return req.Allows(i.Role)
}
