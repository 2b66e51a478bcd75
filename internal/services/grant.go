package services

import (
	"context"
	"errors"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/database"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrGrantNotFound = errors.New("admin grant not found")

type GrantService struct {
	db *database.DB
}

func NewGrantService(db *database.DB) *GrantService {
	return &GrantService{db: db}
}

// GetByIdentity returns nil without error when the identity holds no grant.
func (s *GrantService) GetByIdentity(ctx context.Context, identityID uuid.UUID) (*models.AdminGrant, error) {
	var g models.AdminGrant
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, identity_id, role, created_at
		FROM admin_grants WHERE identity_id = $1
	`, identityID).Scan(&g.ID, &g.IdentityID, &g.Role, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

// Set grants role to the identity, replacing any grant it already holds.
func (s *GrantService) Set(ctx context.Context, identityID uuid.UUID, role access.Role) (*models.AdminGrant, error) {
	if _, err := access.ParseGrantRole(string(role)); err != nil {
		return nil, err
	}

	var g models.AdminGrant
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO admin_grants (identity_id, role)
		VALUES ($1, $2)
		ON CONFLICT (identity_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING id, identity_id, role, created_at
	`, identityID, string(role)).Scan(&g.ID, &g.IdentityID, &g.Role, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GrantService) Revoke(ctx context.Context, identityID uuid.UUID) error {
	result, err := s.db.Pool.Exec(ctx, `DELETE FROM admin_grants WHERE identity_id = $1`, identityID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrGrantNotFound
	}
	return nil
}

func (s *GrantService) List(ctx context.Context) ([]models.GrantWithIdentity, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT g.id, g.identity_id, g.role, g.created_at, i.email
		FROM admin_grants g
		INNER JOIN identities i ON i.id = g.identity_id
		ORDER BY g.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []models.GrantWithIdentity
	for rows.Next() {
		var g models.GrantWithIdentity
		if err := rows.Scan(&g.ID, &g.IdentityID, &g.Role, &g.CreatedAt, &g.Email); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
