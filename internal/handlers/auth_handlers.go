package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/middleware"
	"github.com/guzzle999/coinkept-backend/internal/models"
	"github.com/guzzle999/coinkept-backend/internal/service"
)

const (
	refreshCookieName = "refreshToken"
	minPasswordLength = 6
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AccountStore is the account collaborator contract. The session controller
// reads accounts and bumps the last-login timestamp; it never mutates them
// otherwise.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLoginAt(ctx context.Context, id string) error
}

// CategorySeeder seeds the default category set for a new account.
type CategorySeeder interface {
	SeedDefaults(ctx context.Context, userID string) error
}

type AuthHandlers struct {
	accounts            AccountStore
	categories          CategorySeeder
	passwordService     *service.PasswordService
	jwtService          *service.JWTService
	refreshTokenService *service.RefreshTokenService
	logger              *logrus.Logger
}

func NewAuthHandlers(
	accounts AccountStore,
	categories CategorySeeder,
	passwordService *service.PasswordService,
	jwtService *service.JWTService,
	refreshTokenService *service.RefreshTokenService,
	logger *logrus.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		accounts:            accounts,
		categories:          categories,
		passwordService:     passwordService,
		jwtService:          jwtService,
		refreshTokenService: refreshTokenService,
		logger:              logger,
	}
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type AuthResponse struct {
	Message     string            `json:"message"`
	User        models.PublicUser `json:"user"`
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresIn   int64             `json:"expires_in"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if name == "" || email == "" || req.Password == "" || req.ConfirmPassword == "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "All fields are required")
		return
	}

	if req.Password != req.ConfirmPassword {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Passwords do not match")
		return
	}

	if len(req.Password) < minPasswordLength {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Password must be at least 6 characters")
		return
	}

	if !emailRegex.MatchString(email) {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid email format")
		return
	}

	existing, err := h.accounts.GetByEmail(r.Context(), email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to check existing account")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed")
		return
	}
	if existing != nil {
		respondWithError(w, http.StatusConflict, "CONFLICT", "Email already registered")
		return
	}

	digest, err := h.passwordService.Hash(r.Context(), req.Password)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed")
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: digest,
	}

	if err := h.accounts.Create(r.Context(), user); err != nil {
		h.logger.WithError(err).Error("Failed to create account")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed")
		return
	}

	if err := h.categories.SeedDefaults(r.Context(), user.ID); err != nil {
		// The account exists; default categories can be recreated by hand.
		h.logger.WithError(err).Warn("Failed to seed default categories")
	}

	if !h.issueSession(w, r, user, false, http.StatusCreated, "User registered successfully") {
		return
	}
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Email and password are required")
		return
	}

	user, err := h.accounts.GetByEmail(r.Context(), email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up account")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	// Unknown email and wrong password answer identically so the endpoint
	// never reveals whether an address is registered.
	if user == nil {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password")
		return
	}

	match, err := h.passwordService.Verify(r.Context(), req.Password, user.PasswordHash)
	if err != nil {
		h.logger.WithError(err).Error("Failed to verify password")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}
	if !match {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password")
		return
	}

	if err := h.accounts.UpdateLastLoginAt(r.Context(), user.ID); err != nil {
		h.logger.WithError(err).Warn("Failed to update last login")
	}

	if !h.issueSession(w, r, user, req.RememberMe, http.StatusOK, "Login successful") {
		return
	}
}

func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token required")
		return
	}

	claims, err := h.refreshTokenService.Verify(r.Context(), cookie.Value)
	if err != nil {
		h.logger.WithError(err).Error("Failed to verify refresh token")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Token refresh failed")
		return
	}
	if claims == nil {
		// Whatever the client held is gone; make sure it stops sending it.
		h.clearRefreshCookie(w)
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid refresh token")
		return
	}

	user, err := h.accounts.GetByID(r.Context(), claims.UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load account for refresh")
		h.clearRefreshCookie(w)
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Token refresh failed")
		return
	}
	if user == nil {
		// The account was deleted while the credential was still live; don't
		// mint anything for it.
		h.clearRefreshCookie(w)
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not found")
		return
	}

	newToken, expiresAt, err := h.refreshTokenService.Rotate(r.Context(), cookie.Value, claims.UserID, claims.Remember)
	if err != nil {
		h.logger.WithError(err).Error("Failed to rotate refresh token")
		h.clearRefreshCookie(w)
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Token refresh failed")
		return
	}

	accessToken, err := h.jwtService.IssueAccessToken(claims.UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue access token")
		h.clearRefreshCookie(w)
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Token refresh failed")
		return
	}

	h.setRefreshCookie(w, r, newToken, expiresAt)
	respondWithJSON(w, http.StatusOK, AuthResponse{
		Message:     "Token refreshed",
		User:        user.Public(),
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwtService.AccessExpiry().Seconds()),
	})
}

// Logout revokes the presented refresh credential best-effort: an absent or
// already-revoked token still answers 200.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := h.refreshTokenService.Revoke(r.Context(), cookie.Value); err != nil {
			h.logger.WithError(err).Warn("Failed to revoke refresh token on logout")
		}
	}

	h.clearRefreshCookie(w)
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

func (h *AuthHandlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	if _, err := h.refreshTokenService.RevokeAll(r.Context(), user.ID); err != nil {
		h.logger.WithError(err).Error("Failed to revoke all refresh tokens")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Logout all failed")
		return
	}

	h.clearRefreshCookie(w)
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out from all devices",
	})
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]models.PublicUser{
		"user": user.Public(),
	})
}

// ForgotPassword always answers the same body, whether or not the account
// exists. Actual reset delivery is not implemented.
func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Email is required")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "If an account with that email exists, password reset instructions have been sent.",
	})
}

func (h *AuthHandlers) issueSession(w http.ResponseWriter, r *http.Request, user *models.User, remember bool, status int, message string) bool {
	accessToken, err := h.jwtService.IssueAccessToken(user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue access token")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate tokens")
		return false
	}

	refreshToken, expiresAt, err := h.refreshTokenService.Create(r.Context(), user.ID, remember)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create refresh token")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate tokens")
		return false
	}

	h.setRefreshCookie(w, r, refreshToken, expiresAt)
	respondWithJSON(w, status, AuthResponse{
		Message:     message,
		User:        user.Public(),
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwtService.AccessExpiry().Seconds()),
	})
	return true
}

// setRefreshCookie keeps the refresh credential out of reach of page scripts:
// HTTP-only, SameSite strict, secure outside plain-HTTP development.
func (h *AuthHandlers) setRefreshCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

