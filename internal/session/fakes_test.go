package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/google/uuid"
)

type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]models.SessionUser
	current  *models.Session

	currentErr   error
	currentGate  chan struct{}
	signInErr    error
	signOutErr   error
	signOutCalls int

	changes      chan models.SessionChange
	unsubscribed atomic.Bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts: make(map[string]models.SessionUser),
		changes:  make(chan models.SessionChange, 16),
	}
}

func (p *fakeProvider) addAccount(email string) models.SessionUser {
	p.mu.Lock()
	defer p.mu.Unlock()
	user := models.SessionUser{ID: uuid.New(), Email: email}
	p.accounts[email] = user
	return user
}

func sessionFor(user models.SessionUser) *models.Session {
	return &models.Session{
		AccessToken:  "access-" + user.Email,
		RefreshToken: "refresh-" + user.Email,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         user,
	}
}

func (p *fakeProvider) SignUp(_ context.Context, email, _ string, _ SignUpAttributes) error {
	p.mu.Lock()
	_, exists := p.accounts[email]
	p.mu.Unlock()
	if exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	user := p.addAccount(email)
	p.push(models.SessionChange{Type: models.SessionSignedIn, IdentityID: user.ID, Session: sessionFor(user)})
	return nil
}

func (p *fakeProvider) SignIn(_ context.Context, email, _ string) error {
	if p.signInErr != nil {
		return p.signInErr
	}
	p.mu.Lock()
	user, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok {
		return errors.New("no such account")
	}
	p.push(models.SessionChange{Type: models.SessionSignedIn, IdentityID: user.ID, Session: sessionFor(user)})
	return nil
}

func (p *fakeProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.signOutCalls++
	p.current = nil
	p.mu.Unlock()
	return p.signOutErr
}

func (p *fakeProvider) CurrentSession(ctx context.Context) (*models.Session, error) {
	if p.currentGate != nil {
		select {
		case <-p.currentGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.currentErr
}

func (p *fakeProvider) Subscribe() (<-chan models.SessionChange, func()) {
	return p.changes, func() { p.unsubscribed.Store(true) }
}

func (p *fakeProvider) push(change models.SessionChange) {
	p.mu.Lock()
	p.current = change.Session
	p.mu.Unlock()
	p.changes <- change
}

type fakeStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.Profile
	grants   map[uuid.UUID]*models.AdminGrant
	gates    map[uuid.UUID]chan struct{}
	err      map[uuid.UUID]error
	calls    atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[uuid.UUID]*models.Profile),
		grants:   make(map[uuid.UUID]*models.AdminGrant),
		gates:    make(map[uuid.UUID]chan struct{}),
		err:      make(map[uuid.UUID]error),
	}
}

func (s *fakeStore) setProfile(id uuid.UUID, firstName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = &models.Profile{ID: uuid.New(), IdentityID: id, FirstName: &firstName}
}

func (s *fakeStore) setGrant(id uuid.UUID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[id] = &models.AdminGrant{ID: uuid.New(), IdentityID: id, Role: role}
}

// block makes profile reads for id wait until the returned release func is called.
func (s *fakeStore) block(id uuid.UUID) func() {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[id] = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (s *fakeStore) wait(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	gate := s.gates[id]
	s.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeStore) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	s.calls.Add(1)
	if err := s.wait(ctx, id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err[id]; err != nil {
		return nil, err
	}
	return s.profiles[id], nil
}

func (s *fakeStore) GetAdminGrant(_ context.Context, id uuid.UUID) (*models.AdminGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grants[id], nil
}

// failingGrants always fails, like an unreachable role store.
type failingGrants struct{ err error }

func (f failingGrants) GetAdminGrant(context.Context, uuid.UUID) (*models.AdminGrant, error) {
	return nil, f.err
}
