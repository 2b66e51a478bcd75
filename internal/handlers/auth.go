package handlers

import (
	"context"

	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/events"
	"github.com/dimitrije/jobboard-api/internal/metrics"
	"github.com/dimitrije/jobboard-api/internal/middleware"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/internal/services"
	"github.com/dimitrije/jobboard-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	identityService IdentityServiceInterface
	tokenService    TokenServiceInterface
	jwtService      JWTServiceInterface
	publisher       events.Publisher
	metrics         AuthMetrics
	recorder        *apperr.Recorder
	logger          zerolog.Logger
}

func NewAuthHandler(
	identityService IdentityServiceInterface,
	tokenService TokenServiceInterface,
	jwtService JWTServiceInterface,
	publisher events.Publisher,
	metrics AuthMetrics,
	recorder *apperr.Recorder,
	logger zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		identityService: identityService,
		tokenService:    tokenService,
		jwtService:      jwtService,
		publisher:       publisher,
		metrics:         metrics,
		recorder:        recorder,
		logger:          logger.With().Str("component", "auth").Logger(),
	}
}

func (h *AuthHandler) SignUp(c *drift.Context) {
	var req dto.SignUpRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(c, "email and password are required")
		return
	}

	ctx := c.Request.Context()
	identity, err := h.identityService.SignUp(ctx, req.Email, req.Password, services.SignUpMetadata{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}
	h.metrics.RecordAuthEvent(metrics.EventSignUp)

	session, err := h.issueSession(ctx, identity.ID, identity.Email)
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}
	h.publish(ctx, models.SessionSignedIn, identity.ID)

	_ = c.JSON(201, session)
}

func (h *AuthHandler) SignIn(c *drift.Context) {
	var req dto.SignInRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(c, "email and password are required")
		return
	}

	ctx := c.Request.Context()
	identity, err := h.identityService.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.metrics.RecordAuthEvent(metrics.EventSignInFailed)
		respondError(c, h.recorder, err)
		return
	}

	session, err := h.issueSession(ctx, identity.ID, identity.Email)
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}
	h.metrics.RecordAuthEvent(metrics.EventSignIn)
	h.publish(ctx, models.SessionSignedIn, identity.ID)

	_ = c.JSON(200, session)
}

func (h *AuthHandler) RefreshToken(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		badRequest(c, "refresh_token is required")
		return
	}

	identityID, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		unauthorized(c, "invalid refresh token")
		return
	}

	tokenHash := services.HashToken(req.RefreshToken)
	ctx := c.Request.Context()

	storedID, err := h.tokenService.ValidateRefreshToken(ctx, tokenHash)
	if err != nil || storedID != identityID {
		unauthorized(c, "refresh token not found or expired")
		return
	}

	identity, err := h.identityService.GetByID(ctx, identityID)
	if err != nil {
		unauthorized(c, "identity not found")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(identity.ID, identity.Email)
	if err != nil {
		respondError(c, h.recorder, err)
		return
	}

	if err := h.tokenService.RotateRefreshToken(ctx, identity.ID, tokenHash, services.HashToken(tokenPair.RefreshToken), tokenPair.RefreshExpiresAt); err != nil {
		respondError(c, h.recorder, err)
		return
	}
	h.metrics.RecordAuthEvent(metrics.EventRefresh)
	h.publish(ctx, models.SessionTokenRefreshed, identity.ID)

	_ = c.JSON(200, sessionResponse(tokenPair, identity.ID, identity.Email))
}

// SignOut revokes the presented refresh token only. Other sessions of the
// identity stay valid.
func (h *AuthHandler) SignOut(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if req.RefreshToken != "" {
		tokenHash := services.HashToken(req.RefreshToken)
		if err := h.tokenService.RevokeRefreshToken(c.Request.Context(), tokenHash); err != nil {
			h.recorder.Record(err, map[string]any{"operation": "sign_out"})
		}
	}
	h.metrics.RecordAuthEvent(metrics.EventSignOut)

	_ = c.JSON(200, dto.MessageResponse{Message: "signed out"})
}

func (h *AuthHandler) SignOutAll(c *drift.Context) {
	identityID := middleware.GetIdentityID(c)
	if identityID == uuid.Nil {
		unauthorized(c, "not authenticated")
		return
	}

	ctx := c.Request.Context()
	if err := h.tokenService.RevokeAllIdentityTokens(ctx, identityID); err != nil {
		respondError(c, h.recorder, err)
		return
	}
	h.metrics.RecordAuthEvent(metrics.EventSignOut)
	h.publish(ctx, models.SessionSignedOut, identityID)

	_ = c.JSON(200, dto.MessageResponse{Message: "all sessions signed out"})
}

// Session reports the identity behind the presented access token.
func (h *AuthHandler) Session(c *drift.Context) {
	user, ok := middleware.GetSessionUser(c)
	if !ok {
		unauthorized(c, "not authenticated")
		return
	}
	_ = c.JSON(200, dto.SessionUser{ID: user.ID, Email: user.Email})
}

func (h *AuthHandler) issueSession(ctx context.Context, identityID uuid.UUID, email string) (*dto.SessionResponse, error) {
	tokenPair, err := h.jwtService.GenerateTokenPair(identityID, email)
	if err != nil {
		return nil, err
	}

	if err := h.tokenService.StoreRefreshToken(ctx, identityID, services.HashToken(tokenPair.RefreshToken), tokenPair.RefreshExpiresAt); err != nil {
		return nil, err
	}
	return sessionResponse(tokenPair, identityID, email), nil
}

func (h *AuthHandler) publish(ctx context.Context, changeType string, identityID uuid.UUID) {
	publishChange(ctx, h.publisher, h.logger, changeType, identityID)
}

func publishChange(ctx context.Context, publisher events.Publisher, logger zerolog.Logger, changeType string, identityID uuid.UUID) {
	if publisher == nil {
		return
	}
	err := publisher.Publish(ctx, models.SessionChange{Type: changeType, IdentityID: identityID})
	if err != nil {
		logger.Warn().Err(err).Str("type", changeType).Str("identity_id", identityID.String()).Msg("failed to publish session change")
	}
}

func sessionResponse(pair *services.TokenPair, identityID uuid.UUID, email string) *dto.SessionResponse {
	return &dto.SessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		ExpiresAt:    pair.ExpiresAt,
		User:         dto.SessionUser{ID: identityID, Email: email},
	}
}
