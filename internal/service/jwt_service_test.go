package service

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guzzle999/coinkept-backend/internal/config"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestJWTService(t *testing.T, accessExpiry time.Duration) *JWTService {
	t.Helper()

	svc, err := NewJWTService(&config.JWTConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessExpiry:  accessExpiry,
	}, testLogger())
	require.NoError(t, err)

	return svc
}

func TestNewJWTService_RejectsBadSecrets(t *testing.T) {
	logger := testLogger()

	_, err := NewJWTService(&config.JWTConfig{
		AccessSecret:  "short",
		RefreshSecret: testRefreshSecret,
	}, logger)
	assert.Error(t, err)

	_, err = NewJWTService(&config.JWTConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testAccessSecret,
	}, logger)
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	svc := newTestJWTService(t, time.Hour)

	token, err := svc.IssueAccessToken("user-123")
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.Type)
}

func TestTokens_UniquePerIssue(t *testing.T) {
	svc := newTestJWTService(t, time.Hour)

	// Same subject, same second: the JTI must still differ.
	first, err := svc.IssueAccessToken("user-123")
	require.NoError(t, err)
	second, err := svc.IssueAccessToken("user-123")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	expiresAt := time.Now().Add(time.Hour)
	firstRefresh, err := svc.SignRefreshToken("user-123", false, expiresAt)
	require.NoError(t, err)
	secondRefresh, err := svc.SignRefreshToken("user-123", false, expiresAt)
	require.NoError(t, err)
	assert.NotEqual(t, firstRefresh, secondRefresh)

	claims, err := svc.VerifyRefreshToken(firstRefresh)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestAccessToken_Expired(t *testing.T) {
	svc := newTestJWTService(t, -time.Minute)

	token, err := svc.IssueAccessToken("user-123")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccessToken_Malformed(t *testing.T) {
	svc := newTestJWTService(t, time.Hour)

	_, err := svc.VerifyAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	token, err := svc.IssueAccessToken("user-123")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token + "x")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestAccessToken_RejectsRefreshToken(t *testing.T) {
	svc := newTestJWTService(t, time.Hour)

	// A refresh token must never pass as an access token, even before the
	// type tag is checked: the secrets differ.
	refreshToken, err := svc.SignRefreshToken("user-123", false, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(refreshToken)
	assert.Error(t, err)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	svc := newTestJWTService(t, time.Hour)

	expiresAt := time.Now().Add(7 * 24 * time.Hour)
	token, err := svc.SignRefreshToken("user-456", true, expiresAt)
	require.NoError(t, err)

	claims, err := svc.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-456", claims.Subject)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
	assert.True(t, claims.Remember)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	svc := newTestJWTService(t, time.Hour)

	accessToken, err := svc.IssueAccessToken("user-123")
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(accessToken)
	assert.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	svc := newTestJWTService(t, time.Hour)

	other, err := NewJWTService(&config.JWTConfig{
		AccessSecret:  "another-access-secret-0123456789abc",
		RefreshSecret: "another-refresh-secret-0123456789ab",
		AccessExpiry:  time.Hour,
	}, testLogger())
	require.NoError(t, err)

	token, err := svc.IssueAccessToken("user-123")
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
