package client

import (
	"context"
	"net/http"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/internal/session"
	"github.com/dimitrije/jobboard-api/pkg/dto"
	"github.com/google/uuid"
)

var (
	_ session.ProfileStore = (*Client)(nil)
	_ session.GrantStore   = (*Client)(nil)
)

// GetProfile reads the profile of the signed-in identity. The API only serves
// the caller's own row; asking for anyone else is an authorization error.
func (c *Client) GetProfile(ctx context.Context, identityID uuid.UUID) (*models.Profile, error) {
	if err := c.checkSelf(identityID); err != nil {
		return nil, err
	}
	var env dto.ProfileEnvelope
	if err := c.do(ctx, http.MethodGet, "/users/me/profile", nil, &env, true); err != nil {
		return nil, err
	}
	return env.Profile, nil
}

func (c *Client) GetAdminGrant(ctx context.Context, identityID uuid.UUID) (*models.AdminGrant, error) {
	if err := c.checkSelf(identityID); err != nil {
		return nil, err
	}
	var env dto.GrantEnvelope
	if err := c.do(ctx, http.MethodGet, "/users/me/grant", nil, &env, true); err != nil {
		return nil, err
	}
	return env.Grant, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req dto.UpdateProfileRequest) (*models.Profile, error) {
	var env dto.ProfileEnvelope
	if err := c.do(ctx, http.MethodPatch, "/users/me/profile", req, &env, true); err != nil {
		return nil, err
	}
	return env.Profile, nil
}

// Me returns the identity as the API resolves it.
func (c *Client) Me(ctx context.Context) (*access.Identity, error) {
	var identity access.Identity
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &identity, true); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (c *Client) checkSelf(identityID uuid.UUID) error {
	s := c.Session()
	if s == nil {
		return notSignedIn()
	}
	if s.User.ID != identityID {
		return &apperr.Error{Kind: apperr.KindAuthorization, Code: apperr.CodeForbidden, Message: apperr.MsgAuthorization}
	}
	return nil
}
