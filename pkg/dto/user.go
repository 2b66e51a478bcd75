package dto

import "github.com/dimitrije/jobboard-api/internal/models"

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Location  *string `json:"location,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func (r UpdateProfileRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Phone == nil &&
		r.Location == nil && r.Bio == nil && r.AvatarURL == nil
}

func (r UpdateProfileRequest) ToUpdate() models.ProfileUpdate {
	return models.ProfileUpdate{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Location:  r.Location,
		Bio:       r.Bio,
		AvatarURL: r.AvatarURL,
	}
}

// ProfileEnvelope distinguishes an absent profile (null) from an error.
type ProfileEnvelope struct {
	Profile *models.Profile `json:"profile"`
}

// GrantEnvelope is null for identities without an admin grant.
type GrantEnvelope struct {
	Grant *models.AdminGrant `json:"grant"`
}
