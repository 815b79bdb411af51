package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"suitehub/internal/platform/config"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})

	token, err := svc.GenerateAccessToken("acct_1", "ann@acme.io", "Ann")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acct_1", claims.UserID)
	assert.Equal(t, "ann@acme.io", claims.Email)
	assert.Equal(t, "suitehub", claims.Issuer)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})

	other := NewTokenService(config.JWTConfig{Secret: "other", AccessTokenTTL: time.Hour})
	forged, err := other.GenerateAccessToken("acct_1", "ann@acme.io", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.Error(t, err, "signature from another secret")

	expired := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: -time.Minute})
	stale, err := expired.GenerateAccessToken("acct_1", "ann@acme.io", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(stale)
	assert.Error(t, err, "expired token")

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
