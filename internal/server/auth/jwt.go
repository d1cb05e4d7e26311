// Package auth contains the stateless building blocks of the session core:
// signing and verifying JWTs and verifying passwords against adaptive hashes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens. It is stored in the
// "typ" claim so a refresh token can never be presented as an access token.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims are the registered JWT claims plus the application payload.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Kind  Kind        `json:"typ"`
}

// TokenService signs and verifies the tokens handed to clients.
type TokenService interface {
	GenerateAccessToken(payload models.JwtPayload) (string, error)
	GenerateRefreshToken(payload models.JwtPayload) (string, error)
	VerifyAccessToken(token string) (models.JwtPayload, error)
}

// JWTConfig carries the signing material and lifetimes for JWTService.
// RefreshSecret may be left empty to sign both kinds with Secret.
type JWTConfig struct {
	Secret        []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// JWTService implements TokenService with HS256-signed JWTs.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewJWTService(cfg JWTConfig) *JWTService {
	refreshSecret := cfg.RefreshSecret
	if len(refreshSecret) == 0 {
		refreshSecret = cfg.Secret
	}
	return &JWTService{
		accessSecret:  cfg.Secret,
		refreshSecret: refreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

func (s *JWTService) GenerateAccessToken(payload models.JwtPayload) (string, error) {
	return GenerateToken(payload, KindAccess, s.accessSecret, s.accessTTL, s.now())
}

func (s *JWTService) GenerateRefreshToken(payload models.JwtPayload) (string, error) {
	return GenerateToken(payload, KindRefresh, s.refreshSecret, s.refreshTTL, s.now())
}

// VerifyAccessToken checks signature, algorithm, expiry and kind. Every
// failure is reported as TOKEN_INVALID.
func (s *JWTService) VerifyAccessToken(token string) (models.JwtPayload, error) {
	claims, err := ParseToken(token, s.accessSecret, s.now)
	if err != nil {
		return models.JwtPayload{}, fmt.Errorf("%w: %v", common.ErrTokenInvalid, err)
	}
	if claims.Kind != KindAccess {
		return models.JwtPayload{}, fmt.Errorf("%w: unexpected token kind %q", common.ErrTokenInvalid, claims.Kind)
	}
	return models.JwtPayload{Sub: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// GenerateToken signs payload as a token of the given kind valid for ttl
// from now. Each token gets a random jti so tokens minted within the same
// second for the same user are still distinct.
func GenerateToken(payload models.JwtPayload, kind Kind, secretKey []byte, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.Sub,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: payload.Email,
		Role:  payload.Role,
		Kind:  kind,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString with secretKey and returns its claims.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// verification yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte, now func() time.Time) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
