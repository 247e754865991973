package services_test

import (
	"errors"
	"testing"
	"time"

	"task-weather-api/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T, now *time.Time) *services.JWTTokenService {
	t.Helper()
	svc, err := services.NewTokenService(services.TokenConfig{
		Secret: "test-secret",
		Issuer: "task-weather-api",
		TTL:    30 * time.Minute,
		Now:    func() time.Time { return *now },
	})
	require.NoError(t, err)
	return svc
}

func TestTokenService_AcceptedBeforeExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTokenService(t, &now)

	token, expiresAt, err := svc.Issue("alice")
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), expiresAt)

	subject, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	now = now.Add(29 * time.Minute)
	subject, err = svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestTokenService_RejectedAfterExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTokenService(t, &now)

	token, _, err := svc.Issue("alice")
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestTokenService_RejectsTampering(t *testing.T) {
	now := time.Now()
	svc := newTokenService(t, &now)

	token, _, err := svc.Issue("alice")
	require.NoError(t, err)

	other, err := services.NewTokenService(services.TokenConfig{
		Secret: "another-secret",
		Issuer: "task-weather-api",
		TTL:    time.Minute,
	})
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, services.ErrInvalidToken, "signature from another key")

	_, err = svc.Verify(token + "x")
	assert.ErrorIs(t, err, services.ErrInvalidToken, "corrupted signature")

	_, err = svc.Verify("not.a.jwt")
	assert.ErrorIs(t, err, services.ErrInvalidToken, "malformed")

	_, err = svc.Verify("")
	assert.ErrorIs(t, err, services.ErrInvalidToken, "empty")
}

func TestTokenService_RejectsForeignClaims(t *testing.T) {
	now := time.Now()
	svc := newTokenService(t, &now)

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name  string
		token string
	}{
		{
			name: "no expiry",
			token: sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
				Subject: "alice",
				Issuer:  "task-weather-api",
			}),
		},
		{
			name: "wrong issuer",
			token: sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
				Subject:   "alice",
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}),
		},
		{
			name: "missing subject",
			token: sign(jwt.SigningMethodHS256, []byte("test-secret"), jwt.RegisteredClaims{
				Issuer:    "task-weather-api",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}),
		},
		{
			name: "different HMAC algorithm",
			token: sign(jwt.SigningMethodHS512, []byte("test-secret"), jwt.RegisteredClaims{
				Subject:   "alice",
				Issuer:    "task-weather-api",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}),
		},
		{
			name: "unsigned",
			token: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{
				Subject:   "alice",
				Issuer:    "task-weather-api",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token)
			if !errors.Is(err, services.ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenService_UniqueTokenIDs(t *testing.T) {
	now := time.Now()
	svc := newTokenService(t, &now)

	first, _, err := svc.Issue("alice")
	require.NoError(t, err)
	second, _, err := svc.Issue("alice")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := services.NewTokenService(services.TokenConfig{TTL: time.Minute})
	assert.Error(t, err)

	_, err = services.NewTokenService(services.TokenConfig{Secret: "s"})
	assert.Error(t, err)

	now := time.Now()
	svc := newTokenService(t, &now)
	_, _, err = svc.Issue("")
	assert.Error(t, err)
}
