package handlers

import (
	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/events"
	"github.com/dimitrije/jobboard-api/internal/middleware"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	resolver       IdentityResolverInterface
	profileService ProfileServiceInterface
	grantService   GrantServiceInterface
	publisher      events.Publisher
	recorder       *apperr.Recorder
	logger         zerolog.Logger
}

func NewUserHandler(
	resolver IdentityResolverInterface,
	profileService ProfileServiceInterface,
	grantService GrantServiceInterface,
	publisher events.Publisher,
	recorder *apperr.Recorder,
	logger zerolog.Logger,
) *UserHandler {
	return &UserHandler{
		resolver:       resolver,
		profileService: profileService,
		grantService:   grantService,
		publisher:      publisher,
		recorder:       recorder,
		logger:         logger.With().Str("component", "users").Logger(),
	}
}

// GetMe returns the resolved identity. A failed profile or grant read degrades
// to job_seeker instead of failing the request.
func (h *UserHandler) GetMe(c *drift.Context) {
	user, ok := middleware.GetSessionUser(c)
	if !ok {
		unauthorized(c, "not authenticated")
		return
	}

	identity := h.resolver.Resolve(c.Request.Context(), user)
	_ = c.JSON(200, identity)
}

func (h *UserHandler) GetProfile(c *drift.Context) {
	identityID := middleware.GetIdentityID(c)
	if identityID == uuid.Nil {
		unauthorized(c, "not authenticated")
		return
	}

	profile, err := h.profileService.GetByIdentity(c.Request.Context(), identityID)
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}

	_ = c.JSON(200, dto.ProfileEnvelope{Profile: profile})
}

func (h *UserHandler) UpdateProfile(c *drift.Context) {
	identityID := middleware.GetIdentityID(c)
	if identityID == uuid.Nil {
		unauthorized(c, "not authenticated")
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Empty() {
		badRequest(c, "no profile fields to update")
		return
	}

	ctx := c.Request.Context()
	profile, err := h.profileService.Update(ctx, identityID, req.ToUpdate())
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}
	publishChange(ctx, h.publisher, h.logger, models.SessionUserUpdated, identityID)

	_ = c.JSON(200, dto.ProfileEnvelope{Profile: profile})
}

func (h *UserHandler) GetGrant(c *drift.Context) {
	identityID := middleware.GetIdentityID(c)
	if identityID == uuid.Nil {
		unauthorized(c, "not authenticated")
		return
	}

	grant, err := h.grantService.GetByIdentity(c.Request.Context(), identityID)
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}

	_ = c.JSON(200, dto.GrantEnvelope{Grant: grant})
}
