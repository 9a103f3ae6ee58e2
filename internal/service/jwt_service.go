package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/config"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrTokenExpired means the token was well-formed and correctly signed
	// but its expiry has passed. Exposed separately so clients can tell
	// "retry refresh" from "retry login".
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed covers bad structure and bad signatures.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrWrongTokenType means a valid token of the other kind was presented,
	// e.g. a refresh token replayed as an access token.
	ErrWrongTokenType = errors.New("wrong token type")
)

type Claims struct {
	Type     string `json:"type"`
	Remember bool   `json:"remember,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies both token kinds. Access and refresh tokens
// use distinct secrets, both injected at construction.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	logger        *logrus.Logger
}

func NewJWTService(cfg *config.JWTConfig, logger *logrus.Logger) (*JWTService, error) {
	if len(cfg.AccessSecret) < 32 || len(cfg.RefreshSecret) < 32 {
		return nil, fmt.Errorf("jwt secrets must be at least 32 bytes")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must be distinct")
	}

	return &JWTService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessExpiry:  cfg.AccessExpiry,
		logger:        logger,
	}, nil
}

// AccessExpiry is the fixed lifetime of issued access tokens. The remember
// flag never changes it; only refresh credential lifetime varies.
func (s *JWTService) AccessExpiry() time.Duration {
	return s.accessExpiry
}

func (s *JWTService) IssueAccessToken(userID string) (string, error) {
	now := time.Now()

	claims := &Claims{
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign access token")
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// VerifyAccessToken fails with ErrTokenExpired, ErrTokenMalformed or
// ErrWrongTokenType; it never consults any store.
func (s *JWTService) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.verify(tokenString, s.accessSecret)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// SignRefreshToken embeds the remember flag and the exact expiry instant the
// caller persists alongside, so signed and stored expiry never diverge. The
// JTI makes every credential unique: two logins for the same subject in the
// same second must still mint distinct tokens, or they would share one store
// record and revoke each other.
func (s *JWTService) SignRefreshToken(userID string, remember bool, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Type:     TokenTypeRefresh,
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.refreshSecret)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign refresh token")
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signed, nil
}

func (s *JWTService) VerifyRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.verify(tokenString, s.refreshSecret)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (s *JWTService) verify(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
