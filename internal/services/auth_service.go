package services

import (
	"fmt"
	"time"

	"flowboard/config"
	flowboard_errors "flowboard/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService verifies bearer tokens issued by the identity provider.
// Credential issuance lives outside this service; it only checks
// signature and expiry against the shared secret.
type AuthService struct {
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: time.Duration(cfg.JWTExpiryMin) * time.Minute,
	}
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

// ParseAccessToken validates the token's signature and expiry and returns
// its claims.
func (s *AuthService) ParseAccessToken(token string) (*AccessClaims, error) {
	if token == "" {
		return nil, flowboard_errors.ErrUnauthorized
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, flowboard_errors.ErrUnauthorized
	}
	return claims, nil
}

// Authenticate resolves a bearer token to a user id. This is the single
// admission check for WebSocket connections and REST requests.
func (s *AuthService) Authenticate(token string) (uuid.UUID, error) {
	claims, err := s.ParseAccessToken(token)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, flowboard_errors.ErrUnauthorized
	}
	return userID, nil
}

// GenerateAccessToken signs a token for the given user. Used by the seed
// tooling and tests; production tokens come from the identity provider
// sharing the same secret.
func (s *AuthService) GenerateAccessToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
