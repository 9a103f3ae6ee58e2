package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/config"
	"github.com/guzzle999/coinkept-backend/internal/models"
)

// RefreshTokenStore persists refresh credential records. Token values are
// unique; a single insert or delete is atomic. Implementations live in the
// repository package.
type RefreshTokenStore interface {
	Insert(ctx context.Context, data models.RefreshTokenData) error
	FindByToken(ctx context.Context, token string) (*models.RefreshTokenData, error)
	DeleteByToken(ctx context.Context, token string) (bool, error)
	DeleteByUserID(ctx context.Context, userID string) (int, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// RefreshClaims is what a verified refresh credential asserts.
type RefreshClaims struct {
	UserID   string
	Remember bool
}

// RefreshTokenService owns the refresh credential lifecycle. It is the only
// writer to the store; handlers never touch the store directly.
type RefreshTokenService struct {
	store          RefreshTokenStore
	jwtService     *JWTService
	refreshExpiry  time.Duration
	rememberExpiry time.Duration
	logger         *logrus.Logger
}

func NewRefreshTokenService(store RefreshTokenStore, jwtService *JWTService, cfg *config.JWTConfig, logger *logrus.Logger) *RefreshTokenService {
	return &RefreshTokenService{
		store:          store,
		jwtService:     jwtService,
		refreshExpiry:  cfg.RefreshExpiry,
		rememberExpiry: cfg.RememberExpiry,
		logger:         logger,
	}
}

// Create mints a signed refresh token and persists the matching record.
// The remember flag extends the lifetime window; the signed expiry and the
// stored expiry are the same instant.
func (s *RefreshTokenService) Create(ctx context.Context, userID string, remember bool) (string, time.Time, error) {
	now := time.Now()
	// JWT exp carries second precision; truncate so the signed expiry and
	// the stored one are the same instant, not just close.
	expiresAt := now.Add(s.window(remember)).Truncate(time.Second)

	token, err := s.jwtService.SignRefreshToken(userID, remember, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}

	data := models.RefreshTokenData{
		Token:     token,
		UserID:    userID,
		Remember:  remember,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := s.store.Insert(ctx, data); err != nil {
		s.logger.WithError(err).Error("Failed to persist refresh token")
		return "", time.Time{}, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return token, expiresAt, nil
}

// Verify checks the signature first so forged or expired tokens are rejected
// without a store round-trip, then looks up the record: the store is the
// authoritative revocation check. An invalid credential is (nil, nil); an
// error is only returned when the store itself fails.
func (s *RefreshTokenService) Verify(ctx context.Context, token string) (*RefreshClaims, error) {
	claims, err := s.jwtService.VerifyRefreshToken(token)
	if err != nil {
		return nil, nil
	}

	data, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if data == nil || time.Now().After(data.ExpiresAt) {
		return nil, nil
	}

	return &RefreshClaims{UserID: claims.Subject, Remember: claims.Remember}, nil
}

// Rotate deletes the old record before creating the new one. A crash between
// the two steps loses the session (re-login required) rather than leaving two
// simultaneously valid credentials.
func (s *RefreshTokenService) Rotate(ctx context.Context, oldToken, userID string, remember bool) (string, time.Time, error) {
	if _, err := s.store.DeleteByToken(ctx, oldToken); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to delete rotated token: %w", err)
	}

	return s.Create(ctx, userID, remember)
}

// Revoke deletes one record. Revoking an absent token is a no-op.
func (s *RefreshTokenService) Revoke(ctx context.Context, token string) error {
	if _, err := s.store.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll deletes every record for the subject ("logout everywhere").
func (s *RefreshTokenService) RevokeAll(ctx context.Context, userID string) (int, error) {
	count, err := s.store.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return count, nil
}

// Sweep removes already-expired records. The count is observability only.
func (s *RefreshTokenService) Sweep(ctx context.Context) (int, error) {
	count, err := s.store.DeleteExpiredBefore(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired refresh tokens: %w", err)
	}
	if count > 0 {
		s.logger.WithField("count", count).Info("Swept expired refresh tokens")
	}
	return count, nil
}

func (s *RefreshTokenService) window(remember bool) time.Duration {
	if remember {
		return s.rememberExpiry
	}
	return s.refreshExpiry
}
