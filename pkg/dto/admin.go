package dto

import "github.com/dimitrije/jobboard-api/internal/models"

type SetGrantRequest struct {
	Role string `json:"role"`
}

type IdentityListResponse struct {
	Identities []models.IdentityWithRole `json:"identities"`
	Limit      int                       `json:"limit"`
	Offset     int                       `json:"offset"`
}

type CandidateListResponse struct {
	Candidates []models.Profile `json:"candidates"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

type GrantListResponse struct {
	Grants []models.GrantWithIdentity `json:"grants"`
}
