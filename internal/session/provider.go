// Package session keeps the single in-memory answer to "who is signed in and
// what may they do", fed by the identity provider's session-change channel.
package session

import (
	"context"

	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/google/uuid"
)

// SignUpAttributes are passed through to the identity provider on sign-up.
// The profile row is created by the provider's own sign-up hook.
type SignUpAttributes struct {
	FirstName string
	LastName  string
}

type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, attrs SignUpAttributes) error
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	// CurrentSession returns nil when nobody is signed in.
	CurrentSession(ctx context.Context) (*models.Session, error)
	// Subscribe returns the session-change channel and a function that
	// unsubscribes and closes it.
	Subscribe() (<-chan models.SessionChange, func())
}

// ProfileStore returns (nil, nil) when the identity has no profile row.
type ProfileStore interface {
	GetProfile(ctx context.Context, identityID uuid.UUID) (*models.Profile, error)
}

// GrantStore returns (nil, nil) when the identity has no admin grant.
type GrantStore interface {
	GetAdminGrant(ctx context.Context, identityID uuid.UUID) (*models.AdminGrant, error)
}
