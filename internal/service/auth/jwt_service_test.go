package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlog/cardlog/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   "thisisasecretkeythatis32charslong!!",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	}
}

func newTestService(t *testing.T) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)
	return svc.(*hmacJWTService)
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTSecret = "tooshort"

	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.False(t, claims.ExpiresAt.IsZero())
}

func TestValidateTokenRejectsRefreshToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	refresh, err := svc.GenerateRefreshToken(ctx, uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	// And the other way around.
	access, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(ctx, access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	issued := time.Now().Add(-24 * time.Hour)
	svc.timeFunc = func() time.Time { return issued }

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	// Move the clock well past the token lifetime plus clock skew.
	svc.timeFunc = time.Now

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenMalformed(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ValidateToken(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenWrongKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = "anothersecretkeythatis32charslong!!!"
	other, err := NewJWTService(otherCfg)
	require.NoError(t, err)

	_, err = other.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBcryptVerifier(t *testing.T) {
	verifier := NewBcryptVerifier()

	hash, err := verifier.Hash("correct-horse-battery")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct-horse-battery", hash)

	assert.NoError(t, verifier.Compare(hash, "correct-horse-battery"))
	assert.Error(t, verifier.Compare(hash, "wrong-password"))
}
