package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	id        uuid.UUID
	password  string
	firstName string
	grant     string
}

// fakeAPI is an in-memory jobboard API with just enough behavior for the CLI.
type fakeAPI struct {
	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	revoked  []string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{accounts: make(map[string]*account), tokens: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/signup", api.signUp)
	mux.HandleFunc("POST /api/v1/auth/signin", api.signIn)
	mux.HandleFunc("POST /api/v1/auth/signout", api.signOut)
	mux.HandleFunc("POST /api/v1/auth/refresh", api.refresh)
	mux.HandleFunc("GET /api/v1/auth/session", api.authed(func(w http.ResponseWriter, r *http.Request, email string, acc *account) {
		writeJSON(w, http.StatusOK, dto.SessionUser{ID: acc.id, Email: email})
	}))
	mux.HandleFunc("GET /api/v1/users/me/profile", api.authed(func(w http.ResponseWriter, r *http.Request, email string, acc *account) {
		first := acc.firstName
		writeJSON(w, http.StatusOK, dto.ProfileEnvelope{Profile: &models.Profile{IdentityID: acc.id, FirstName: &first}})
	}))
	mux.HandleFunc("PATCH /api/v1/users/me/profile", api.authed(func(w http.ResponseWriter, r *http.Request, email string, acc *account) {
		var req dto.UpdateProfileRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		first := acc.firstName
		writeJSON(w, http.StatusOK, dto.ProfileEnvelope{Profile: &models.Profile{IdentityID: acc.id, FirstName: &first, Bio: req.Bio}})
	}))
	mux.HandleFunc("GET /api/v1/users/me/grant", api.authed(func(w http.ResponseWriter, r *http.Request, email string, acc *account) {
		if acc.grant == "" {
			writeJSON(w, http.StatusOK, dto.GrantEnvelope{})
			return
		}
		writeJSON(w, http.StatusOK, dto.GrantEnvelope{Grant: &models.AdminGrant{IdentityID: acc.id, Role: acc.grant}})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) addAccount(email, password, firstName, grant string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[email] = &account{id: uuid.New(), password: password, firstName: firstName, grant: grant}
}

func (a *fakeAPI) issue(w http.ResponseWriter, status int, email string, acc *account) {
	access := uuid.NewString()
	a.tokens[access] = email
	writeJSON(w, status, dto.SessionResponse{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         dto.SessionUser{ID: acc.id, Email: email},
	})
}

func (a *fakeAPI) signUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, taken := a.accounts[req.Email]; taken {
		writeJSON(w, http.StatusConflict, apperr.BackendError{Code: apperr.CodeUniqueViolation, Message: "email already registered"})
		return
	}
	acc := &account{id: uuid.New(), password: req.Password, firstName: req.FirstName}
	a.accounts[req.Email] = acc
	a.issue(w, http.StatusCreated, req.Email, acc)
}

func (a *fakeAPI) signIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[req.Email]
	if !ok || acc.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, apperr.BackendError{Code: apperr.CodeAuthRequired, Message: "invalid email or password"})
		return
	}
	a.issue(w, http.StatusOK, req.Email, acc)
}

func (a *fakeAPI) signOut(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked = append(a.revoked, req.RefreshToken)
	delete(a.tokens, strings.TrimPrefix(req.RefreshToken, "refresh-"))
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "signed out"})
}

func (a *fakeAPI) refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	defer a.mu.Unlock()
	old := strings.TrimPrefix(req.RefreshToken, "refresh-")
	email, ok := a.tokens[old]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, apperr.BackendError{Code: apperr.CodeAuthRequired, Message: "refresh token not found or expired"})
		return
	}
	delete(a.tokens, old)
	a.issue(w, http.StatusOK, email, a.accounts[email])
}

func (a *fakeAPI) authed(fn func(w http.ResponseWriter, r *http.Request, email string, acc *account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		a.mu.Lock()
		email, ok := a.tokens[token]
		acc := a.accounts[email]
		a.mu.Unlock()

		if !ok || acc == nil {
			writeJSON(w, http.StatusUnauthorized, apperr.BackendError{Code: apperr.CodeAuthRequired, Message: "invalid or expired token"})
			return
		}
		fn(w, r, email, acc)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type cliEnv struct {
	cfg       *config.ClientConfig
	cachePath string
}

func newCLIEnv(t *testing.T, srv *httptest.Server) cliEnv {
	t.Helper()
	return cliEnv{
		cfg: &config.ClientConfig{
			APIURL:           srv.URL,
			LogLevel:         "error",
			RetryMaxAttempts: 1,
			RetryBaseDelay:   time.Millisecond,
		},
		cachePath: filepath.Join(t.TempDir(), "session.yaml"),
	}
}

// run executes one CLI invocation in a fresh command tree, like a new process.
func (e cliEnv) run(args ...string) (stdout string, err error) {
	root := NewRootCmd(e.cfg)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--session-file", e.cachePath))
	err = root.Execute()
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.Code
}

func TestCLI_LoginWhoAmILogout(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.addAccount("abel@example.com", "correct-horse", "Abel", "")
	env := newCLIEnv(t, srv)

	out, err := env.run("login", "--email", "abel@example.com", "--password", "correct-horse")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as abel@example.com (job_seeker)")

	out, err = env.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Name:         Abel")
	assert.Contains(t, out, "Role:         job_seeker")
	assert.Contains(t, out, "Admin:        false")

	out, err = env.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	assert.Len(t, api.revoked, 1)

	_, err = env.run("whoami")
	assert.Equal(t, exitNotSignedIn, exitCode(t, err))
}

func TestCLI_LoginWrongPassword(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.addAccount("abel@example.com", "correct-horse", "Abel", "")
	env := newCLIEnv(t, srv)

	_, err := env.run("login", "--email", "abel@example.com", "--password", "wrong")

	assert.Equal(t, exitNotSignedIn, exitCode(t, err))
	assert.Equal(t, apperr.MsgAuthentication, err.Error())
}

func TestCLI_SignUp(t *testing.T) {
	_, srv := newFakeAPI(t)
	env := newCLIEnv(t, srv)

	out, err := env.run("signup", "--email", "new@example.com", "--password", "s3cret-pass", "--first-name", "Nia")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed up as new@example.com (job_seeker)")

	_, err = env.run("signup", "--email", "new@example.com", "--password", "s3cret-pass")
	require.Error(t, err)
	assert.Equal(t, apperr.MsgConflict, err.Error())
}

func TestCLI_Check(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.addAccount("hr@example.com", "pw-hr-manager", "Hana", "hr_manager")
	env := newCLIEnv(t, srv)

	_, err := env.run("check", "admin", "--path", "/admin/jobs")
	assert.Equal(t, exitNotSignedIn, exitCode(t, err))
	assert.Contains(t, err.Error(), "/login?redirect=")

	_, err = env.run("login", "--email", "hr@example.com", "--password", "pw-hr-manager")
	require.NoError(t, err)

	out, err := env.run("check", "hr")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed: hr_manager")

	_, err = env.run("check", "admin")
	assert.Equal(t, exitForbidden, exitCode(t, err))
	assert.Contains(t, err.Error(), "/unauthorized")

	_, err = env.run("check", "root")
	require.Error(t, err)
}

func TestCLI_WhoAmIJSON(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.addAccount("root@example.com", "pw-super-admin", "Sam", "super_admin")
	env := newCLIEnv(t, srv)

	_, err := env.run("login", "--email", "root@example.com", "--password", "pw-super-admin")
	require.NoError(t, err)

	out, err := env.run("whoami", "--json")
	require.NoError(t, err)

	var identity struct {
		Email        string `json:"email"`
		Role         string `json:"role"`
		IsAdmin      bool   `json:"is_admin"`
		IsSuperAdmin bool   `json:"is_super_admin"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &identity))
	assert.Equal(t, "root@example.com", identity.Email)
	assert.Equal(t, "super_admin", identity.Role)
	assert.True(t, identity.IsAdmin)
	assert.True(t, identity.IsSuperAdmin)
}

func TestCLI_ProfileUpdate(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.addAccount("abel@example.com", "correct-horse", "Abel", "")
	env := newCLIEnv(t, srv)

	_, err := env.run("login", "--email", "abel@example.com", "--password", "correct-horse")
	require.NoError(t, err)

	out, err := env.run("profile", "--bio", "Go developer")
	require.NoError(t, err)
	assert.Contains(t, out, "Bio:          Go developer")
}

func TestCLI_StaleCachedSessionIsForgotten(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.addAccount("abel@example.com", "correct-horse", "Abel", "")
	env := newCLIEnv(t, srv)

	_, err := env.run("login", "--email", "abel@example.com", "--password", "correct-horse")
	require.NoError(t, err)

	api.mu.Lock()
	api.tokens = make(map[string]string)
	api.mu.Unlock()

	_, err = env.run("whoami")
	assert.Equal(t, exitNotSignedIn, exitCode(t, err))

	s, err := NewSessionCache(env.cachePath).Load()
	require.NoError(t, err)
	assert.Nil(t, s)
}
