package services

import (
	"testing"
	"time"

	"flowboard/config"
	flowboard_errors "flowboard/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(secret string, expiryMin int) *AuthService {
	return NewAuthService(&config.Config{JWTSecret: secret, JWTExpiryMin: expiryMin})
}

func TestAuthenticate_RoundTrip(t *testing.T) {
	svc := newAuthService("test-secret", 60)
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID)
	require.NoError(t, err)

	got, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestAuthenticate_RejectsExpiredToken(t *testing.T) {
	userID := uuid.New()
	now := time.Now()
	claims := AccessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	svc := newAuthService("test-secret", 60)
	_, err = svc.Authenticate(token)
	assert.ErrorIs(t, err, flowboard_errors.ErrUnauthorized)
}

func TestAuthenticate_RejectsWrongSecret(t *testing.T) {
	issuer := newAuthService("secret-a", 60)
	verifier := newAuthService("secret-b", 60)

	token, err := issuer.GenerateAccessToken(uuid.New())
	require.NoError(t, err)

	_, err = verifier.Authenticate(token)
	assert.ErrorIs(t, err, flowboard_errors.ErrUnauthorized)
}

func TestAuthenticate_RejectsGarbage(t *testing.T) {
	svc := newAuthService("test-secret", 60)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Authenticate(token)
		assert.ErrorIs(t, err, flowboard_errors.ErrUnauthorized, "token %q", token)
	}
}

func TestAuthenticate_RejectsNonUUIDSubject(t *testing.T) {
	claims := AccessClaims{
		UserID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	svc := newAuthService("test-secret", 60)
	_, err = svc.Authenticate(token)
	assert.ErrorIs(t, err, flowboard_errors.ErrUnauthorized)
}

func TestAuthenticate_RejectsUnsignedAlgorithm(t *testing.T) {
	claims := AccessClaims{
		UserID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	svc := newAuthService("test-secret", 60)
	_, err = svc.Authenticate(token)
	assert.ErrorIs(t, err, flowboard_errors.ErrUnauthorized)
}
