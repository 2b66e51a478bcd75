package services

import (
	"context"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type ProfileReader interface {
	GetByIdentity(ctx context.Context, identityID uuid.UUID) (*models.Profile, error)
}

type GrantReader interface {
	GetByIdentity(ctx context.Context, identityID uuid.UUID) (*models.AdminGrant, error)
}

// IdentityResolver composes the access view of an authenticated identity from
// its profile and grant rows.
type IdentityResolver struct {
	profiles ProfileReader
	grants   GrantReader
	recorder *apperr.Recorder
}

func NewIdentityResolver(profiles ProfileReader, grants GrantReader, recorder *apperr.Recorder) *IdentityResolver {
	return &IdentityResolver{profiles: profiles, grants: grants, recorder: recorder}
}

// Resolve never fails: a lookup that errors is recorded and treated as absent,
// which leaves the identity an authenticated job_seeker.
func (r *IdentityResolver) Resolve(ctx context.Context, user models.SessionUser) access.Identity {
	var (
		profile *models.Profile
		grant   *models.AdminGrant
	)

	var g errgroup.Group
	g.Go(func() error {
		p, err := r.profiles.GetByIdentity(ctx, user.ID)
		if err != nil {
			r.recorder.Record(err, map[string]any{"lookup": "profile", "identity_id": user.ID.String()})
			return nil
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		gr, err := r.grants.GetByIdentity(ctx, user.ID)
		if err != nil {
			r.recorder.Record(err, map[string]any{"lookup": "grant", "identity_id": user.ID.String()})
			return nil
		}
		grant = gr
		return nil
	})
	_ = g.Wait()

	return access.Derive(user, profile, grant)
}
