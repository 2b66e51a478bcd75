package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateTokenPair(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)
	before := time.Now()

	pair, err := svc.GenerateTokenPair(uuid.New(), "abel@example.com")

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(15*60), pair.ExpiresIn)
	assert.WithinDuration(t, before.Add(15*time.Minute), pair.ExpiresAt, 2*time.Second)
	assert.WithinDuration(t, before.Add(24*time.Hour), pair.RefreshExpiresAt, 2*time.Second)
}

func TestJWTService_ExpiriesMatchTokens(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-time.Minute) }

	pair, err := svc.GenerateTokenPair(uuid.New(), "abel@example.com")
	require.NoError(t, err)

	access, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, pair.ExpiresAt.Equal(access.ExpiresAt.Time))

	refresh := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(pair.RefreshToken, refresh)
	require.NoError(t, err)
	assert.True(t, pair.RefreshExpiresAt.Equal(refresh.ExpiresAt.Time))
	assert.Equal(t, "refresh", refresh.Use)
	assert.Empty(t, refresh.Email)
	assert.NotEmpty(t, refresh.ID)
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)
	identityID := uuid.New()

	pair, err := svc.GenerateTokenPair(identityID, "abel@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)

	require.NoError(t, err)
	assert.Equal(t, identityID, claims.IdentityID)
	assert.Equal(t, "abel@example.com", claims.Email)
	assert.Equal(t, "jobboard-api", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"jobboard"}, claims.Audience)
	assert.Equal(t, identityID.String(), claims.Subject)
	assert.Equal(t, "access", claims.Use)
}

func TestJWTService_ValidateAccessToken_Rejected(t *testing.T) {
	issuer := NewJWTService("secret-1", 15*time.Minute, 24*time.Hour)
	other := NewJWTService("secret-2", 15*time.Minute, 24*time.Hour)
	shortLived := NewJWTService("secret-1", time.Millisecond, 24*time.Hour)

	pair, err := issuer.GenerateTokenPair(uuid.New(), "abel@example.com")
	require.NoError(t, err)
	expired, err := shortLived.GenerateTokenPair(uuid.New(), "abel@example.com")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	identityID := uuid.New()
	now := time.Now()
	forged := func(mutate func(*Claims)) string {
		c := issuer.claims(identityID, "abel@example.com", tokenUseAccess, now, now.Add(time.Hour))
		mutate(c)
		token, err := issuer.sign(c)
		require.NoError(t, err)
		return token
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone,
		issuer.claims(identityID, "abel@example.com", tokenUseAccess, now, now.Add(time.Hour))).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		svc   *JWTService
		token string
	}{
		{"wrong secret", other, pair.AccessToken},
		{"expired", issuer, expired.AccessToken},
		{"refresh token as access token", issuer, pair.RefreshToken},
		{"empty", issuer, ""},
		{"garbage", issuer, "not-a-jwt-token"},
		{"partial jwt", issuer, "eyJhbGciOiJIUzI1NiJ9."},
		{"unsigned", issuer, unsigned},
		{"foreign issuer", issuer, forged(func(c *Claims) { c.Issuer = "elsewhere" })},
		{"foreign audience", issuer, forged(func(c *Claims) { c.Audience = jwt.ClaimStrings{"billing"} })},
		{"no expiry", issuer, forged(func(c *Claims) { c.ExpiresAt = nil })},
		{"no identity", issuer, forged(func(c *Claims) { c.IdentityID = uuid.Nil })},
		{"subject mismatch", issuer, forged(func(c *Claims) { c.Subject = uuid.NewString() })},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.svc.ValidateAccessToken(tc.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_ValidateRefreshToken(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)
	identityID := uuid.New()

	pair, err := svc.GenerateTokenPair(identityID, "abel@example.com")
	require.NoError(t, err)

	got, err := svc.ValidateRefreshToken(pair.RefreshToken)

	require.NoError(t, err)
	assert.Equal(t, identityID, got)
}

func TestJWTService_ValidateRefreshToken_Expired(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, time.Millisecond)

	pair, err := svc.GenerateTokenPair(uuid.New(), "abel@example.com")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = svc.ValidateRefreshToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestJWTService_TokensAreNotInterchangeable(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)

	pair, err := svc.GenerateTokenPair(uuid.New(), "abel@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenUse)
	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenUse)
}

func TestJWTService_RefreshTokensAreUnique(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 24*time.Hour)
	identityID := uuid.New()

	first, err := svc.GenerateTokenPair(identityID, "abel@example.com")
	require.NoError(t, err)
	second, err := svc.GenerateTokenPair(identityID, "abel@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, HashToken(first.RefreshToken), HashToken(second.RefreshToken))
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("refresh"), HashToken("refresh"))
	assert.Len(t, HashToken("refresh"), 64)
	assert.NotEqual(t, HashToken("refresh"), HashToken("other"))
}
