package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dimitrije/jobboard-api/internal/database"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrIdentityNotFound   = errors.New("identity not found")
)

// SignUpMetadata is the free-form data supplied at sign-up and handed to hooks.
type SignUpMetadata struct {
	FirstName string
	LastName  string
}

// SignUpHook runs inside the sign-up transaction after the identity row exists.
// A hook error aborts the sign-up.
type SignUpHook func(ctx context.Context, tx pgx.Tx, identity *models.Identity, meta SignUpMetadata) error

type IdentityService struct {
	db     *database.DB
	hasher *PasswordHasher
	hooks  []SignUpHook
}

func NewIdentityService(db *database.DB, hasher *PasswordHasher) *IdentityService {
	return &IdentityService{db: db, hasher: hasher}
}

func (s *IdentityService) OnSignUp(hook SignUpHook) {
	s.hooks = append(s.hooks, hook)
}

func (s *IdentityService) SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (*models.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	var identity models.Identity
	err = s.db.InTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO identities (email, password_hash)
			VALUES ($1, $2)
			RETURNING id, email, password_hash, created_at, updated_at
		`, email, hash).Scan(
			&identity.ID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt, &identity.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create identity: %w", err)
		}

		for _, hook := range s.hooks {
			if err := hook(ctx, tx, &identity, meta); err != nil {
				return fmt.Errorf("sign-up hook failed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &identity, nil
}

// Authenticate returns the identity for a matching email and password. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	identity, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) || errors.Is(err, ErrInvalidEmail) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, identity.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return identity, nil
}

func (s *IdentityService) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	var identity models.Identity
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM identities WHERE id = $1
	`, id).Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return &identity, nil
}

func (s *IdentityService) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var identity models.Identity
	err = s.db.Pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM identities WHERE email = $1
	`, email).Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return &identity, nil
}

// List returns identities with their effective role, newest first.
func (s *IdentityService) List(ctx context.Context, limit, offset int) ([]models.IdentityWithRole, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT i.id, i.email, COALESCE(g.role, 'job_seeker'), i.created_at
		FROM identities i
		LEFT JOIN admin_grants g ON g.identity_id = i.id
		ORDER BY i.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var identities []models.IdentityWithRole
	for rows.Next() {
		var i models.IdentityWithRole
		if err := rows.Scan(&i.ID, &i.Email, &i.Role, &i.CreatedAt); err != nil {
			return nil, err
		}
		identities = append(identities, i)
	}
	return identities, rows.Err()
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
