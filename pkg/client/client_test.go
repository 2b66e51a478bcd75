package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/internal/session"
	"github.com/dimitrije/jobboard-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a scripted stand-in for the jobboard API.
type fakeAPI struct {
	t      *testing.T
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]*atomic.Int32
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{t: t, routes: make(map[string]http.HandlerFunc), hits: make(map[string]*atomic.Int32)}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) handle(method, path string, h http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := method + " " + apiPrefix + path
	a.routes[key] = h
	a.hits[key] = new(atomic.Int32)
}

func (a *fakeAPI) count(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.hits[method+" "+apiPrefix+path]; ok {
		return int(c.Load())
	}
	return 0
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	a.mu.Lock()
	h, ok := a.routes[key]
	if ok {
		a.hits[key].Add(1)
	}
	a.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBackendError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apperr.BackendError{Code: code, Message: message})
}

// noWait records backoff waits without sleeping.
type noWait struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (n *noWait) sleep(_ context.Context, d time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waits = append(n.waits, d)
	return nil
}

func newTestClient(srv *httptest.Server, opts ...Option) (*Client, *noWait) {
	clock := &noWait{}
	opts = append([]Option{WithRetry(apperr.WithSleeper(clock.sleep))}, opts...)
	return New(srv.URL, opts...), clock
}

func sessionResponse(user dto.SessionUser, access string, expiresAt time.Time) dto.SessionResponse {
	return dto.SessionResponse{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		ExpiresIn:    int64(time.Until(expiresAt).Seconds()),
		ExpiresAt:    expiresAt,
		User:         user,
	}
}

func heldSession(user dto.SessionUser, access string, expiresAt time.Time) *models.Session {
	return &models.Session{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		ExpiresAt:    expiresAt,
		User:         models.SessionUser{ID: user.ID, Email: user.Email},
	}
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func nextChange(t *testing.T, ch <-chan models.SessionChange) models.SessionChange {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no session change emitted")
		return models.SessionChange{}
	}
}

func TestClient_SignIn_EmitsSignedIn(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodPost, "/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var req dto.SignInRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "abel@example.com", req.Email)
		writeJSON(w, http.StatusOK, sessionResponse(user, "a1", time.Now().Add(time.Hour)))
	})

	c, _ := newTestClient(srv)
	changes, stop := c.Subscribe()
	defer stop()

	require.NoError(t, c.SignIn(context.Background(), "abel@example.com", "correct-horse"))

	change := nextChange(t, changes)
	assert.Equal(t, models.SessionSignedIn, change.Type)
	require.NotNil(t, change.Session)
	assert.Equal(t, "a1", change.Session.AccessToken)
	assert.Equal(t, user.ID, c.Session().User.ID)
}

func TestClient_SignIn_InvalidCredentialsNotRetried(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle(http.MethodPost, "/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		writeBackendError(w, http.StatusUnauthorized, apperr.CodeAuthRequired, "invalid email or password")
	})

	c, clock := newTestClient(srv)
	err := c.SignIn(context.Background(), "abel@example.com", "wrong")

	var classified *apperr.Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, apperr.KindAuthentication, classified.Kind)
	assert.Equal(t, apperr.MsgAuthentication, classified.Message)
	assert.Equal(t, 1, api.count(http.MethodPost, "/auth/signin"))
	assert.Empty(t, clock.waits)
	assert.Nil(t, c.Session())
}

func TestClient_RetriesServerErrorsWithBackoff(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	var calls atomic.Int32
	api.handle(http.MethodPost, "/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeBackendError(w, http.StatusInternalServerError, apperr.CodeInternal, "temporarily unavailable")
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(user, "a1", time.Now().Add(time.Hour)))
	})

	c, clock := newTestClient(srv)
	require.NoError(t, c.SignIn(context.Background(), "abel@example.com", "correct-horse"))

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.waits)
}

func TestClient_NetworkFailureExhaustsAttempts(t *testing.T) {
	_, srv := newFakeAPI(t)
	srv.Close()

	c, clock := newTestClient(srv, WithRetry(apperr.WithMaxAttempts(3)))
	err := c.SignIn(context.Background(), "abel@example.com", "pw")

	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
	assert.Len(t, clock.waits, 2)
}

func TestClient_StatusFallbackForBareErrors(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodGet, "/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	})

	c, _ := newTestClient(srv, WithSession(heldSession(user, "a1", time.Now().Add(time.Hour))))
	_, err := c.GetProfile(context.Background(), user.ID)

	var classified *apperr.Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, apperr.KindAuthorization, classified.Kind)
	assert.Equal(t, apperr.CodeForbidden, classified.Code)
}

func TestClient_GetProfile_AbsentIsNil(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodGet, "/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a1", bearer(r))
		writeJSON(w, http.StatusOK, dto.ProfileEnvelope{})
	})

	c, _ := newTestClient(srv, WithSession(heldSession(user, "a1", time.Now().Add(time.Hour))))
	profile, err := c.GetProfile(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestClient_GetProfile_OtherIdentityForbidden(t *testing.T) {
	_, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}

	c, _ := newTestClient(srv, WithSession(heldSession(user, "a1", time.Now().Add(time.Hour))))
	_, err := c.GetProfile(context.Background(), uuid.New())

	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestClient_NotSignedIn(t *testing.T) {
	_, srv := newFakeAPI(t)
	c, _ := newTestClient(srv)

	_, err := c.GetAdminGrant(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}

func TestClient_RefreshesExpiredTokenBeforeRequest(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodPost, "/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req dto.RefreshTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "refresh-old", req.RefreshToken)
		writeJSON(w, http.StatusOK, sessionResponse(user, "new", time.Now().Add(time.Hour)))
	})
	api.handle(http.MethodGet, "/users/me/grant", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "new", bearer(r))
		writeJSON(w, http.StatusOK, dto.GrantEnvelope{Grant: &models.AdminGrant{IdentityID: user.ID, Role: models.GrantRoleAdmin}})
	})

	c, _ := newTestClient(srv, WithSession(heldSession(user, "old", time.Now().Add(-time.Minute))))
	changes, stop := c.Subscribe()
	defer stop()

	grant, err := c.GetAdminGrant(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, models.GrantRoleAdmin, grant.Role)
	assert.Equal(t, models.SessionTokenRefreshed, nextChange(t, changes).Type)
	assert.Equal(t, "new", c.Session().AccessToken)
}

func TestClient_RefreshesOnUnauthorizedAndRepeatsOnce(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodPost, "/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionResponse(user, "new", time.Now().Add(time.Hour)))
	})
	api.handle(http.MethodGet, "/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) != "new" {
			writeBackendError(w, http.StatusUnauthorized, apperr.CodeAuthRequired, "invalid or expired token")
			return
		}
		first := "Abel"
		writeJSON(w, http.StatusOK, dto.ProfileEnvelope{Profile: &models.Profile{IdentityID: user.ID, FirstName: &first}})
	})

	c, _ := newTestClient(srv, WithSession(heldSession(user, "revoked", time.Now().Add(time.Hour))))
	profile, err := c.GetProfile(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, "Abel", *profile.FirstName)
	assert.Equal(t, 2, api.count(http.MethodGet, "/users/me/profile"))
	assert.Equal(t, 1, api.count(http.MethodPost, "/auth/refresh"))
}

func TestClient_RejectedRefreshEndsSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodPost, "/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeBackendError(w, http.StatusUnauthorized, apperr.CodeAuthRequired, "refresh token not found or expired")
	})

	c, _ := newTestClient(srv, WithSession(heldSession(user, "old", time.Now().Add(-time.Minute))))
	changes, stop := c.Subscribe()
	defer stop()

	_, err := c.GetProfile(context.Background(), user.ID)

	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
	assert.Nil(t, c.Session())
	assert.Equal(t, models.SessionSignedOut, nextChange(t, changes).Type)
}

func TestClient_CurrentSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodGet, "/auth/session", func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) == "valid" {
			writeJSON(w, http.StatusOK, user)
			return
		}
		writeBackendError(w, http.StatusUnauthorized, apperr.CodeAuthRequired, "invalid or expired token")
	})
	api.handle(http.MethodPost, "/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeBackendError(w, http.StatusUnauthorized, apperr.CodeAuthRequired, "refresh token not found or expired")
	})

	t.Run("no session", func(t *testing.T) {
		c, _ := newTestClient(srv)
		s, err := c.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("accepted", func(t *testing.T) {
		c, _ := newTestClient(srv, WithSession(heldSession(user, "valid", time.Now().Add(time.Hour))))
		s, err := c.CurrentSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, user.ID, s.User.ID)
	})

	t.Run("rejected", func(t *testing.T) {
		c, _ := newTestClient(srv, WithSession(heldSession(user, "stale", time.Now().Add(time.Hour))))
		s, err := c.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Nil(t, c.Session())
	})
}

func TestClient_SignOutDropsSessionEvenOnFailure(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodPost, "/auth/signout", func(w http.ResponseWriter, r *http.Request) {
		var req dto.RefreshTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "refresh-a1", req.RefreshToken)
		writeBackendError(w, http.StatusBadRequest, apperr.CodeCheckViolation, "invalid request body")
	})

	c, _ := newTestClient(srv, WithSession(heldSession(user, "a1", time.Now().Add(time.Hour))))
	changes, stop := c.Subscribe()
	defer stop()

	err := c.SignOut(context.Background())

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Nil(t, c.Session())
	change := nextChange(t, changes)
	assert.Equal(t, models.SessionSignedOut, change.Type)
	assert.Nil(t, change.Session)
}

func TestClient_UpdateProfile(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodPatch, "/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		var req dto.UpdateProfileRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Bio)
		writeJSON(w, http.StatusOK, dto.ProfileEnvelope{Profile: &models.Profile{IdentityID: user.ID, Bio: req.Bio}})
	})

	c, _ := newTestClient(srv, WithSession(heldSession(user, "a1", time.Now().Add(time.Hour))))
	bio := "Backend engineer"
	profile, err := c.UpdateProfile(context.Background(), dto.UpdateProfileRequest{Bio: &bio})

	require.NoError(t, err)
	assert.Equal(t, "Backend engineer", *profile.Bio)
}

func TestClient_SubscriberKeepsNewestChange(t *testing.T) {
	_, srv := newFakeAPI(t)
	c, _ := newTestClient(srv)
	changes, stop := c.Subscribe()
	defer stop()

	id := uuid.New()
	for i := 0; i < 20; i++ {
		c.emit(models.SessionChange{Type: models.SessionUserUpdated, IdentityID: id})
	}
	c.emit(models.SessionChange{Type: models.SessionSignedOut, IdentityID: id})

	var last models.SessionChange
	for len(changes) > 0 {
		last = <-changes
	}
	assert.Equal(t, models.SessionSignedOut, last.Type)
}

func TestClient_DrivesSessionResolver(t *testing.T) {
	api, srv := newFakeAPI(t)
	user := dto.SessionUser{ID: uuid.New(), Email: "abel@example.com"}
	api.handle(http.MethodPost, "/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionResponse(user, "a1", time.Now().Add(time.Hour)))
	})
	api.handle(http.MethodGet, "/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		first := "Abel"
		writeJSON(w, http.StatusOK, dto.ProfileEnvelope{Profile: &models.Profile{IdentityID: user.ID, FirstName: &first}})
	})
	api.handle(http.MethodGet, "/users/me/grant", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.GrantEnvelope{})
	})

	c, _ := newTestClient(srv)
	r := session.New(c, c, c)
	r.Start(context.Background())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := r.WaitSettled(ctx)
	require.NoError(t, err)

	require.NoError(t, r.SignIn(ctx, "abel@example.com", "correct-horse"))
	require.Eventually(t, func() bool {
		identity, ok := r.CurrentIdentity()
		return ok && identity.Profile != nil
	}, 2*time.Second, 10*time.Millisecond)

	identity, _ := r.CurrentIdentity()
	assert.Equal(t, "Abel", *identity.Profile.FirstName)
	assert.Equal(t, "job_seeker", string(identity.Role))
}
