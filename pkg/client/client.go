// Package client is the Go SDK for the jobboard API. A Client holds one
// session in memory and implements the identity provider, profile store and
// grant store the session resolver consumes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/pkg/dto"
	"github.com/rs/zerolog"
)

const (
	apiPrefix = "/api/v1"
	// refreshSkew refreshes the access token slightly before it expires.
	refreshSkew = 30 * time.Second
)

var ErrNotSignedIn = errors.New("not signed in")

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "client").Logger()
	}
}

// WithRetry adds options to every apperr.Retry call the client makes.
func WithRetry(opts ...apperr.RetryOption) Option {
	return func(c *Client) {
		c.retry = append(c.retry, opts...)
	}
}

// WithSession restores a previously issued session, for example from a cache file.
func WithSession(s *models.Session) Option {
	return func(c *Client) {
		c.session = s
	}
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
	retry   []apperr.RetryOption
	now     func() time.Time

	mu      sync.RWMutex
	session *models.Session

	// refreshMu serializes token refreshes so concurrent requests rotate once.
	refreshMu sync.Mutex

	subsMu sync.Mutex
	subs   map[int]chan models.SessionChange
	nextID int
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  zerolog.Nop(),
		now:     time.Now,
		subs:    make(map[int]chan models.SessionChange),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the held session, or nil.
func (c *Client) Session() *models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) setSession(s *models.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// do runs one API call under the retry policy. Every failure comes back
// classified as an *apperr.Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	payload, err := encodeBody(body)
	if err != nil {
		return apperr.Classify(err)
	}

	opts := append([]apperr.RetryOption{
		apperr.WithOnRetry(func(attempt int, e *apperr.Error, wait time.Duration) {
			c.logger.Warn().
				Str("method", method).
				Str("path", path).
				Int("attempt", attempt+1).
				Str("kind", string(e.Kind)).
				Dur("wait", wait).
				Msg("retrying request")
		}),
	}, c.retry...)

	return apperr.Do(ctx, func(ctx context.Context) error {
		return c.send(ctx, method, path, payload, out, authed)
	}, opts...)
}

// send performs a single request. An authenticated request answered with 401
// is retried once after a token refresh.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any, authed bool) error {
	var token string
	if authed {
		var err error
		if token, err = c.accessToken(ctx); err != nil {
			return err
		}
	}

	err := c.roundTrip(ctx, method, path, payload, out, token)
	if !authed || !isUnauthorized(err) {
		return err
	}

	if refreshErr := c.refresh(ctx, token); refreshErr != nil {
		return refreshErr
	}
	if token, err = c.accessToken(ctx); err != nil {
		return err
	}
	return c.roundTrip(ctx, method, path, payload, out, token)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out any, token string) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

// decodeError reads the BackendError body of a failed response. Bodies that
// are not a BackendError get a code derived from the status.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var be apperr.BackendError
	if err := json.Unmarshal(raw, &be); err != nil || be.Code == "" {
		be = apperr.BackendError{Code: codeForStatus(resp.StatusCode), Message: strings.TrimSpace(string(raw))}
	}
	be.Status = resp.StatusCode
	return &be
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return apperr.CodeAuthRequired
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusNotFound:
		return apperr.CodeNotFound
	case http.StatusConflict:
		return apperr.CodeUniqueViolation
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.CodeCheckViolation
	default:
		return apperr.CodeInternal
	}
}

func isUnauthorized(err error) bool {
	var be *apperr.BackendError
	return errors.As(err, &be) && be.Status == http.StatusUnauthorized
}

func toSession(resp *dto.SessionResponse) *models.Session {
	return &models.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.ExpiresAt,
		User:         models.SessionUser{ID: resp.User.ID, Email: resp.User.Email},
	}
}
