package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/jobboard-api/internal/database"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, identity_id, first_name, last_name, phone, location, bio, avatar_url, created_at, updated_at`

type ProfileService struct {
	db *database.DB
}

func NewProfileService(db *database.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetByIdentity returns nil without error when the identity has no profile.
func (s *ProfileService) GetByIdentity(ctx context.Context, identityID uuid.UUID) (*models.Profile, error) {
	profile, err := scanProfile(s.db.Pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles WHERE identity_id = $1
	`, identityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// CreateForIdentity is registered as a sign-up hook so every new identity gets
// its profile row in the same transaction.
func (s *ProfileService) CreateForIdentity(ctx context.Context, tx pgx.Tx, identity *models.Identity, meta SignUpMetadata) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO profiles (identity_id, first_name, last_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_id) DO NOTHING
	`, identity.ID, nullableString(meta.FirstName), nullableString(meta.LastName))
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of upd, creating the row if it is missing.
func (s *ProfileService) Update(ctx context.Context, identityID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	return scanProfile(s.db.Pool.QueryRow(ctx, `
		INSERT INTO profiles (identity_id, first_name, last_name, phone, location, bio, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity_id) DO UPDATE SET
			first_name = COALESCE(EXCLUDED.first_name, profiles.first_name),
			last_name = COALESCE(EXCLUDED.last_name, profiles.last_name),
			phone = COALESCE(EXCLUDED.phone, profiles.phone),
			location = COALESCE(EXCLUDED.location, profiles.location),
			bio = COALESCE(EXCLUDED.bio, profiles.bio),
			avatar_url = COALESCE(EXCLUDED.avatar_url, profiles.avatar_url),
			updated_at = NOW()
		RETURNING `+profileColumns,
		identityID, upd.FirstName, upd.LastName, upd.Phone, upd.Location, upd.Bio, upd.AvatarURL,
	))
}

// ListCandidates returns profiles of identities holding no admin grant.
func (s *ProfileService) ListCandidates(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT p.id, p.identity_id, p.first_name, p.last_name, p.phone, p.location, p.bio, p.avatar_url, p.created_at, p.updated_at
		FROM profiles p
		LEFT JOIN admin_grants g ON g.identity_id = p.identity_id
		WHERE g.id IS NULL
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.IdentityID, &p.FirstName, &p.LastName, &p.Phone,
		&p.Location, &p.Bio, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
