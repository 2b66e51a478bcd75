package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "jobboard-api"
	tokenAudience = "jobboard"

	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

var ErrWrongTokenUse = errors.New("token issued for a different use")

// JWTService signs and verifies session tokens. Access and refresh tokens
// share a secret and are told apart by their use claim.
type JWTService struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	parser        *jwt.Parser
	now           func() time.Time
}

type Claims struct {
	IdentityID uuid.UUID `json:"identity_id"`
	Email      string    `json:"email,omitempty"`
	Use        string    `json:"use"`
	jwt.RegisteredClaims
}

// TokenPair is one issued session. ExpiresAt is the access token's expiry,
// RefreshExpiresAt is what the refresh token row is stored with.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

func NewJWTService(secret string, accessExpiry, refreshExpiry time.Duration) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithAudience(tokenAudience),
			jwt.WithExpirationRequired(),
		),
		now: time.Now,
	}
}

func (s *JWTService) GenerateTokenPair(identityID uuid.UUID, email string) (*TokenPair, error) {
	now := s.now().Truncate(time.Second)
	pair := &TokenPair{
		ExpiresIn:        int64(s.accessExpiry.Seconds()),
		ExpiresAt:        now.Add(s.accessExpiry),
		RefreshExpiresAt: now.Add(s.refreshExpiry),
	}

	var err error
	pair.AccessToken, err = s.sign(s.claims(identityID, email, tokenUseAccess, now, pair.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := s.claims(identityID, "", tokenUseRefresh, now, pair.RefreshExpiresAt)
	refresh.ID = uuid.NewString()
	pair.RefreshToken, err = s.sign(refresh)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return pair, nil
}

func (s *JWTService) claims(identityID uuid.UUID, email, use string, issued, expires time.Time) *Claims {
	return &Claims{
		IdentityID: identityID,
		Email:      email,
		Use:        use,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   identityID.String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
		},
	}
}

func (s *JWTService) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, tokenUseAccess)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	return claims, nil
}

func (s *JWTService) ValidateRefreshToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.parse(tokenString, tokenUseRefresh)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	return claims.IdentityID, nil
}

func (s *JWTService) parse(tokenString, use string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Use != use {
		return nil, ErrWrongTokenUse
	}
	if claims.IdentityID == uuid.Nil || claims.Subject != claims.IdentityID.String() {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// HashToken is the form refresh tokens are stored and looked up by.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
