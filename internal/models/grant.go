package models

import (
	"time"

	"github.com/google/uuid"
)

// Elevated role tags stored in admin_grants.
const (
	GrantRoleAdmin      = "admin"
	GrantRoleHRManager  = "hr_manager"
	GrantRoleSuperAdmin = "super_admin"
)

type AdminGrant struct {
	ID         uuid.UUID `json:"id"`
	IdentityID uuid.UUID `json:"identity_id"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// GrantWithIdentity is an admin grant joined with the identity's email, used by listings.
type GrantWithIdentity struct {
	AdminGrant
	Email string `json:"email"`
}
