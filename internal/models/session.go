package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionUser is the authenticated identity carried by a session.
type SessionUser struct {
	ID    uuid.UUID `json:"id" yaml:"id"`
	Email string    `json:"email" yaml:"email"`
}

// Session is issued by the identity provider on sign-in and refreshed by it.
type Session struct {
	AccessToken  string      `json:"access_token" yaml:"access_token"`
	RefreshToken string      `json:"refresh_token" yaml:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at" yaml:"expires_at"`
	User         SessionUser `json:"user" yaml:"user"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Session change types pushed by the identity provider.
const (
	SessionInitial        = "initial_session"
	SessionSignedIn       = "signed_in"
	SessionSignedOut      = "signed_out"
	SessionTokenRefreshed = "token_refreshed"
	SessionUserUpdated    = "user_updated"
)

// SessionChange is one notification on the provider's session-change channel.
// Session is nil for signed_out.
type SessionChange struct {
	Type       string    `json:"type"`
	IdentityID uuid.UUID `json:"identity_id"`
	Session    *Session  `json:"session,omitempty"`
}
