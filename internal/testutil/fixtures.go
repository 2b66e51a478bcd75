package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/jobboard-api/internal/database"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateIdentity inserts an identity without a profile. The password hash is
// not a valid argon2id hash, so the identity cannot sign in.
func (f *Fixtures) CreateIdentity(t *testing.T, opts ...IdentityOption) *models.Identity {
	t.Helper()
	f.counter++

	identity := &models.Identity{
		Email:        fmt.Sprintf("user%d@example.com", f.counter),
		PasswordHash: "fixture",
	}
	for _, opt := range opts {
		opt(identity)
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO identities (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at, updated_at
	`, identity.Email, identity.PasswordHash).Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}
	return identity
}

// IdentityOption configures a test identity
type IdentityOption func(*models.Identity)

func WithEmail(email string) IdentityOption {
	return func(i *models.Identity) {
		i.Email = email
	}
}

// CreateProfile inserts a profile for identity.
func (f *Fixtures) CreateProfile(t *testing.T, identity *models.Identity, firstName, lastName string) *models.Profile {
	t.Helper()

	p := &models.Profile{}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO profiles (identity_id, first_name, last_name)
		VALUES ($1, $2, $3)
		RETURNING id, identity_id, first_name, last_name, created_at, updated_at
	`, identity.ID, firstName, lastName).Scan(
		&p.ID, &p.IdentityID, &p.FirstName, &p.LastName, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	return p
}

// CreateGrant inserts an admin grant with role for identity.
func (f *Fixtures) CreateGrant(t *testing.T, identity *models.Identity, role string) *models.AdminGrant {
	t.Helper()

	g := &models.AdminGrant{}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO admin_grants (identity_id, role)
		VALUES ($1, $2)
		RETURNING id, identity_id, role, created_at
	`, identity.ID, role).Scan(&g.ID, &g.IdentityID, &g.Role, &g.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}
	return g
}

// CreateRefreshToken creates a test refresh token
func (f *Fixtures) CreateRefreshToken(t *testing.T, identityID uuid.UUID, tokenHash string, expiresAt time.Time) {
	t.Helper()

	_, err := f.db.Pool.Exec(context.Background(), `
		INSERT INTO refresh_tokens (identity_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, identityID, tokenHash, expiresAt)
	if err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}
}
