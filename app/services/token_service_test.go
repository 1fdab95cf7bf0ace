package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHMACTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(
		accessTTL,
		refreshTTL,
		"lead-pipeline",
		"lead-pipeline-admins",
		false,
		"", "",
		"test-secret-key-at-least-32-bytes!!",
	)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_RequiresSecretForHMAC(t *testing.T) {
	_, err := NewTokenService(time.Hour, 24*time.Hour, "iss", "aud", false, "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key is required")
}

func TestGenerateAdminTokens_RoundTrip(t *testing.T) {
	svc := newHMACTokenService(t, time.Hour, 24*time.Hour)

	access, refresh, err := svc.GenerateAdminTokens(17, "superadmin")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := svc.ValidateAdminToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(17), claims.AdminID)
	assert.Equal(t, "superadmin", claims.Role)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.TokenID)

	refreshClaims, err := svc.ValidateAdminToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
	assert.Equal(t, "superadmin", refreshClaims.Role)
}

func TestValidateAdminToken_RejectsGarbage(t *testing.T) {
	svc := newHMACTokenService(t, time.Hour, 24*time.Hour)

	_, err := svc.ValidateAdminToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateAdminToken_RejectsWrongSecret(t *testing.T) {
	svc := newHMACTokenService(t, time.Hour, 24*time.Hour)
	other, err := NewTokenService(time.Hour, 24*time.Hour, "lead-pipeline", "lead-pipeline-admins", false, "", "", "a-completely-different-secret-key!!")
	require.NoError(t, err)

	access, _, err := svc.GenerateAdminTokens(1, "admin")
	require.NoError(t, err)

	_, err = other.ValidateAdminToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateAdminToken_Expired(t *testing.T) {
	svc := newHMACTokenService(t, -time.Minute, 24*time.Hour)

	access, _, err := svc.GenerateAdminTokens(1, "admin")
	require.NoError(t, err)

	_, err = svc.ValidateAdminToken(access)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshAdminToken(t *testing.T) {
	svc := newHMACTokenService(t, time.Hour, 24*time.Hour)

	access, refresh, err := svc.GenerateAdminTokens(9, "admin")
	require.NoError(t, err)

	newAccess, newRefresh, err := svc.RefreshAdminToken(refresh)
	require.NoError(t, err)
	require.NotEmpty(t, newAccess)
	require.NotEmpty(t, newRefresh)

	claims, err := svc.ValidateAdminToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.AdminID)
	assert.Equal(t, "admin", claims.Role)

	// Refreshing with an access token must fail
	_, _, err = svc.RefreshAdminToken(access)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a refresh token")
}

func TestRevokeToken(t *testing.T) {
	svc := newHMACTokenService(t, time.Hour, 24*time.Hour)

	access, _, err := svc.GenerateAdminTokens(3, "admin")
	require.NoError(t, err)

	claims, err := svc.ValidateAdminToken(access)
	require.NoError(t, err)
	assert.False(t, svc.IsTokenRevoked(claims.TokenID))

	require.NoError(t, svc.RevokeToken(access))
	assert.True(t, svc.IsTokenRevoked(claims.TokenID))

	_, err = svc.ValidateAdminToken(access)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// Revoking an already revoked token is a no-op
	require.NoError(t, svc.RevokeToken(access))
}
