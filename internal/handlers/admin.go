package handlers

import (
	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/events"
	"github.com/dimitrije/jobboard-api/internal/middleware"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/rs/zerolog"
)

type AdminHandler struct {
	identityService IdentityServiceInterface
	profileService  ProfileServiceInterface
	grantService    GrantServiceInterface
	publisher       events.Publisher
	recorder        *apperr.Recorder
	logger          zerolog.Logger
}

func NewAdminHandler(
	identityService IdentityServiceInterface,
	profileService ProfileServiceInterface,
	grantService GrantServiceInterface,
	publisher events.Publisher,
	recorder *apperr.Recorder,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		identityService: identityService,
		profileService:  profileService,
		grantService:    grantService,
		publisher:       publisher,
		recorder:        recorder,
		logger:          logger.With().Str("component", "admin").Logger(),
	}
}

func (h *AdminHandler) ListUsers(c *drift.Context) {
	limit, offset := pagination(c)

	identities, err := h.identityService.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}
	if identities == nil {
		identities = []models.IdentityWithRole{}
	}

	_ = c.JSON(200, dto.IdentityListResponse{Identities: identities, Limit: limit, Offset: offset})
}

// ListCandidates serves the HR track: job seekers with their profiles.
func (h *AdminHandler) ListCandidates(c *drift.Context) {
	limit, offset := pagination(c)

	candidates, err := h.profileService.ListCandidates(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}
	if candidates == nil {
		candidates = []models.Profile{}
	}

	_ = c.JSON(200, dto.CandidateListResponse{Candidates: candidates, Limit: limit, Offset: offset})
}

func (h *AdminHandler) ListGrants(c *drift.Context) {
	grants, err := h.grantService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}
	if grants == nil {
		grants = []models.GrantWithIdentity{}
	}

	_ = c.JSON(200, dto.GrantListResponse{Grants: grants})
}

func (h *AdminHandler) SetGrant(c *drift.Context) {
	targetID, err := uuid.Parse(c.Param("identityId"))
	if err != nil {
		badRequest(c, "invalid identity id")
		return
	}
	if targetID == middleware.GetIdentityID(c) {
		badRequest(c, "cannot change your own grant")
		return
	}

	var req dto.SetGrantRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	role, err := access.ParseGrantRole(req.Role)
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.identityService.GetByID(ctx, targetID); err != nil {
		respondError(c, h.recorder, err)
		return
	}

	grant, err := h.grantService.Set(ctx, targetID, role)
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}
	h.logger.Info().Str("identity_id", targetID.String()).Str("role", string(role)).Msg("admin grant set")
	publishChange(ctx, h.publisher, h.logger, models.SessionUserUpdated, targetID)

	_ = c.JSON(200, dto.GrantEnvelope{Grant: grant})
}

func (h *AdminHandler) RevokeGrant(c *drift.Context) {
	targetID, err := uuid.Parse(c.Param("identityId"))
	if err != nil {
		badRequest(c, "invalid identity id")
		return
	}
	if targetID == middleware.GetIdentityID(c) {
		badRequest(c, "cannot change your own grant")
		return
	}

	ctx := c.Request.Context()
	if err := h.grantService.Revoke(ctx, targetID); err != nil {
		respondError(c, h.recorder, err)
		return
	}
	h.logger.Info().Str("identity_id", targetID.String()).Msg("admin grant revoked")
	publishChange(ctx, h.publisher, h.logger, models.SessionUserUpdated, targetID)

	_ = c.JSON(200, dto.MessageResponse{Message: "grant revoked"})
}
