package handlers

import (
	"context"
	"time"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/events"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/internal/services"
	"github.com/google/uuid"
)

// IdentityServiceInterface defines the methods used by handlers from IdentityService
type IdentityServiceInterface interface {
	SignUp(ctx context.Context, email, password string, meta services.SignUpMetadata) (*models.Identity, error)
	Authenticate(ctx context.Context, email, password string) (*models.Identity, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	List(ctx context.Context, limit, offset int) ([]models.IdentityWithRole, error)
}

// ProfileServiceInterface defines the methods used by handlers from ProfileService
type ProfileServiceInterface interface {
	GetByIdentity(ctx context.Context, identityID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, identityID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
	ListCandidates(ctx context.Context, limit, offset int) ([]models.Profile, error)
}

// GrantServiceInterface defines the methods used by handlers from GrantService
type GrantServiceInterface interface {
	GetByIdentity(ctx context.Context, identityID uuid.UUID) (*models.AdminGrant, error)
	Set(ctx context.Context, identityID uuid.UUID, role access.Role) (*models.AdminGrant, error)
	Revoke(ctx context.Context, identityID uuid.UUID) error
	List(ctx context.Context) ([]models.GrantWithIdentity, error)
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, identityID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	RotateRefreshToken(ctx context.Context, identityID uuid.UUID, oldHash, newHash string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllIdentityTokens(ctx context.Context, identityID uuid.UUID) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(identityID uuid.UUID, email string) (*services.TokenPair, error)
	ValidateRefreshToken(token string) (uuid.UUID, error)
}

// IdentityResolverInterface defines the methods used by handlers from IdentityResolver
type IdentityResolverInterface interface {
	Resolve(ctx context.Context, user models.SessionUser) access.Identity
}

// HubInterface defines the methods used by the session event stream
type HubInterface interface {
	Register(client *events.Client)
	Unregister(client *events.Client)
}

// AuthMetrics receives authentication and stream events.
type AuthMetrics interface {
	RecordAuthEvent(event string)
	SSEConnected()
	SSEDisconnected()
}
