package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/events"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockIdentityService mocks the IdentityService
type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) SignUp(ctx context.Context, email, password string, meta services.SignUpMetadata) (*models.Identity, error) {
	args := m.Called(ctx, email, password, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityService) Authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityService) GetByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockIdentityService) List(ctx context.Context, limit, offset int) ([]models.IdentityWithRole, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IdentityWithRole), args.Error(1)
}

// MockProfileService mocks the ProfileService
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) GetByIdentity(ctx context.Context, identityID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileService) Update(ctx context.Context, identityID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	args := m.Called(ctx, identityID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileService) ListCandidates(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

// MockGrantService mocks the GrantService
type MockGrantService struct {
	mock.Mock
}

func (m *MockGrantService) GetByIdentity(ctx context.Context, identityID uuid.UUID) (*models.AdminGrant, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminGrant), args.Error(1)
}

func (m *MockGrantService) Set(ctx context.Context, identityID uuid.UUID, role access.Role) (*models.AdminGrant, error) {
	args := m.Called(ctx, identityID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminGrant), args.Error(1)
}

func (m *MockGrantService) Revoke(ctx context.Context, identityID uuid.UUID) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

func (m *MockGrantService) List(ctx context.Context) ([]models.GrantWithIdentity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GrantWithIdentity), args.Error(1)
}

// MockTokenService mocks the TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) StoreRefreshToken(ctx context.Context, identityID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, identityID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockTokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenService) RotateRefreshToken(ctx context.Context, identityID uuid.UUID, oldHash, newHash string, expiresAt time.Time) error {
	args := m.Called(ctx, identityID, oldHash, newHash, expiresAt)
	return args.Error(0)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockTokenService) RevokeAllIdentityTokens(ctx context.Context, identityID uuid.UUID) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

// MockJWTService mocks the JWTService
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateTokenPair(identityID uuid.UUID, email string) (*services.TokenPair, error) {
	args := m.Called(identityID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockJWTService) ValidateRefreshToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// MockIdentityResolver mocks the server-side IdentityResolver
type MockIdentityResolver struct {
	mock.Mock
}

func (m *MockIdentityResolver) Resolve(ctx context.Context, user models.SessionUser) access.Identity {
	args := m.Called(ctx, user)
	return args.Get(0).(access.Identity)
}

// RecordingPublisher keeps every published session change.
type RecordingPublisher struct {
	mu      sync.Mutex
	changes []models.SessionChange
	Err     error
}

func (p *RecordingPublisher) Publish(_ context.Context, change models.SessionChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.Err
}

func (p *RecordingPublisher) Changes() []models.SessionChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.SessionChange, len(p.changes))
	copy(out, p.changes)
	return out
}

// MockHub mocks the session events hub
type MockHub struct {
	mock.Mock
}

func (m *MockHub) Register(client *events.Client) {
	m.Called(client)
}

func (m *MockHub) Unregister(client *events.Client) {
	m.Called(client)
}

// CountingMetrics counts auth events and open streams.
type CountingMetrics struct {
	mu     sync.Mutex
	Events map[string]int
	Open   int
}

func NewCountingMetrics() *CountingMetrics {
	return &CountingMetrics{Events: make(map[string]int)}
}

func (m *CountingMetrics) RecordAuthEvent(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events[event]++
}

func (m *CountingMetrics) SSEConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Open++
}

func (m *CountingMetrics) SSEDisconnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Open--
}

func (m *CountingMetrics) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Events[event]
}
