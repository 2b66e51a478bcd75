// Package access derives what a signed-in identity may do and decides whether a
// protected route renders or redirects.
package access

import (
	"errors"
	"fmt"

	"github.com/dimitrije/jobboard-api/internal/models"
)

type Role string

var ErrInvalidRole = errors.New("invalid grant role")

const (
	RoleJobSeeker  Role = "job_seeker"
	RoleAdmin      Role = models.GrantRoleAdmin
	RoleHRManager  Role = models.GrantRoleHRManager
	RoleSuperAdmin Role = models.GrantRoleSuperAdmin
)

// ParseGrantRole validates a role tag that may be stored in an admin grant.
// job_seeker is the absence of a grant and cannot be granted.
func ParseGrantRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleHRManager, RoleSuperAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w %q", ErrInvalidRole, s)
	}
}

// Requirement is a capability a route asks for.
type Requirement string

const (
	RequireAuthenticated Requirement = "authenticated"
	RequireAdmin         Requirement = "admin"
	RequireHRManager     Requirement = "hr_manager"
	RequireSuperAdmin    Requirement = "super_admin"
)

// allowed is the single declaration of which roles satisfy which requirement.
// Adding a role means adding it here and nowhere else.
var allowed = map[Requirement]map[Role]bool{
	RequireAuthenticated: {RoleJobSeeker: true, RoleAdmin: true, RoleHRManager: true, RoleSuperAdmin: true},
	RequireAdmin:         {RoleAdmin: true, RoleSuperAdmin: true},
	RequireHRManager:     {RoleHRManager: true, RoleSuperAdmin: true},
	RequireSuperAdmin:    {RoleSuperAdmin: true},
}

// Allows reports whether role satisfies req. Unknown requirements allow nothing.
func (req Requirement) Allows(role Role) bool {
	return allowed[req][role]
}

// ParseRequirement accepts the names used by the CLI and route config.
func ParseRequirement(s string) (Requirement, error) {
	switch s {
	case "authenticated", "user":
		return RequireAuthenticated, nil
	case "admin":
		return RequireAdmin, nil
	case "hr", "hr_manager", "hr-manager":
		return RequireHRManager, nil
	case "super_admin", "super-admin", "superadmin":
		return RequireSuperAdmin, nil
	default:
		return "", fmt.Errorf("unknown requirement %q", s)
	}
}
