package client

import (
	"context"
	"net/http"

	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/internal/session"
	"github.com/dimitrije/jobboard-api/pkg/dto"
)

var _ session.IdentityProvider = (*Client)(nil)

// SignUp registers an identity. The API signs the new identity in, so a
// signed_in change follows.
func (c *Client) SignUp(ctx context.Context, email, password string, attrs session.SignUpAttributes) error {
	var resp dto.SessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/signup", dto.SignUpRequest{
		Email:     email,
		Password:  password,
		FirstName: attrs.FirstName,
		LastName:  attrs.LastName,
	}, &resp, false)
	if err != nil {
		return err
	}
	c.signedIn(toSession(&resp))
	return nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) error {
	var resp dto.SessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/signin", dto.SignInRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return err
	}
	c.signedIn(toSession(&resp))
	return nil
}

// SignOut revokes the held refresh token. The local session is dropped even
// when the API call fails.
func (c *Client) SignOut(ctx context.Context) error {
	current := c.Session()
	if current == nil {
		return nil
	}

	err := c.do(ctx, http.MethodPost, "/auth/signout", dto.RefreshTokenRequest{RefreshToken: current.RefreshToken}, nil, false)
	c.signedOut(current.User)
	return err
}

// SignOutAll revokes every refresh token of the identity on every device.
func (c *Client) SignOutAll(ctx context.Context) error {
	current := c.Session()
	if current == nil {
		return notSignedIn()
	}

	err := c.do(ctx, http.MethodPost, "/auth/signout-all", nil, nil, true)
	c.signedOut(current.User)
	return err
}

// CurrentSession confirms the held session with the API. A session the API no
// longer accepts is dropped and reported as nil.
func (c *Client) CurrentSession(ctx context.Context) (*models.Session, error) {
	if c.Session() == nil {
		return nil, nil
	}

	var user dto.SessionUser
	err := c.do(ctx, http.MethodGet, "/auth/session", nil, &user, true)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindAuthentication {
			if held := c.Session(); held != nil {
				c.signedOut(held.User)
			}
			return nil, nil
		}
		return nil, err
	}
	return c.Session(), nil
}

// Subscribe returns a channel of session changes made through this client.
// A reader that falls behind loses the oldest pending change, never the newest.
func (c *Client) Subscribe() (<-chan models.SessionChange, func()) {
	ch := make(chan models.SessionChange, 16)

	c.subsMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subsMu.Unlock()

	return ch, func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

func (c *Client) emit(change models.SessionChange) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- change:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- change
		}
	}
}

func (c *Client) signedIn(s *models.Session) {
	c.setSession(s)
	c.emit(models.SessionChange{Type: models.SessionSignedIn, IdentityID: s.User.ID, Session: s})
}

// signedOut drops the session and emits signed_out once, however many paths
// end the same session.
func (c *Client) signedOut(user models.SessionUser) {
	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.mu.Unlock()
	if had {
		c.emit(models.SessionChange{Type: models.SessionSignedOut, IdentityID: user.ID})
	}
}

// accessToken returns a usable access token, refreshing it first when it is
// about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	s := c.Session()
	if s == nil {
		return "", notSignedIn()
	}
	if !s.Expired(c.now().Add(refreshSkew)) {
		return s.AccessToken, nil
	}
	if err := c.refresh(ctx, s.AccessToken); err != nil {
		return "", err
	}
	return c.Session().AccessToken, nil
}

// refresh rotates the token pair. stale is the access token the caller saw;
// if another goroutine already replaced it the refresh is skipped. A rejected
// refresh token ends the session.
func (c *Client) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	s := c.Session()
	if s == nil {
		return notSignedIn()
	}
	if s.AccessToken != stale {
		return nil
	}

	payload, err := encodeBody(dto.RefreshTokenRequest{RefreshToken: s.RefreshToken})
	if err != nil {
		return err
	}
	var resp dto.SessionResponse
	if err := c.roundTrip(ctx, http.MethodPost, "/auth/refresh", payload, &resp, ""); err != nil {
		if apperr.KindOf(err) == apperr.KindAuthentication {
			c.signedOut(s.User)
		}
		return err
	}

	next := toSession(&resp)
	c.setSession(next)
	c.emit(models.SessionChange{Type: models.SessionTokenRefreshed, IdentityID: next.User.ID, Session: next})
	c.logger.Debug().Str("identity_id", next.User.ID.String()).Msg("access token refreshed")
	return nil
}

func notSignedIn() *apperr.Error {
	return &apperr.Error{
		Kind:    apperr.KindAuthentication,
		Code:    apperr.CodeAuthRequired,
		Message: apperr.MsgAuthentication,
		Cause:   ErrNotSignedIn,
	}
}
