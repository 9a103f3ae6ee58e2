package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/models"
	"github.com/guzzle999/coinkept-backend/internal/service"
)

type contextKey string

const (
	// UserContextKey holds the authenticated *models.User.
	UserContextKey contextKey = "user"
)

// AccountStore is the narrow slice of the user repository the middleware
// needs: token subjects are re-checked against the account table so a
// deleted account's outstanding access tokens stop working.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type AuthMiddleware struct {
	jwtService *service.JWTService
	accounts   AccountStore
	logger     *logrus.Logger
}

func NewAuthMiddleware(jwtService *service.JWTService, accounts AccountStore, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		accounts:   accounts,
		logger:     logger,
	}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, "UNAUTHORIZED", "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondUnauthorized(w, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.VerifyAccessToken(parts[1])
		if err != nil {
			m.logger.WithError(err).Debug("Access token verification failed")
			if errors.Is(err, service.ErrTokenExpired) {
				m.respondUnauthorized(w, "TOKEN_EXPIRED", "Access token expired")
				return
			}
			m.respondUnauthorized(w, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		user, err := m.accounts.GetByID(r.Context(), claims.Subject)
		if err != nil {
			m.logger.WithError(err).Error("Failed to load account for token subject")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"Something went wrong"}}`))
			return
		}
		if user == nil {
			m.respondUnauthorized(w, "UNAUTHORIZED", "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the account injected by RequireAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
