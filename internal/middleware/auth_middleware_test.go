package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guzzle999/coinkept-backend/internal/config"
	"github.com/guzzle999/coinkept-backend/internal/models"
	"github.com/guzzle999/coinkept-backend/internal/service"
)

type fakeAccountStore struct {
	users map[string]*models.User
	err   error
}

func (f *fakeAccountStore) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func newTestMiddleware(t *testing.T, accessExpiry time.Duration, accounts AccountStore) (*AuthMiddleware, *service.JWTService) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	jwtService, err := service.NewJWTService(&config.JWTConfig{
		AccessSecret:  "middleware-access-secret-0123456789",
		RefreshSecret: "middleware-refresh-secret-012345678",
		AccessExpiry:  accessExpiry,
	}, logger)
	require.NoError(t, err)

	return NewAuthMiddleware(jwtService, accounts, logger), jwtService
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(user.ID))
	})
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error.Code
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	mw, _ := newTestMiddleware(t, time.Hour, &fakeAccountStore{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec.Body.Bytes()))
}

func TestRequireAuth_BadFormat(t *testing.T) {
	mw, _ := newTestMiddleware(t, time.Hour, &fakeAccountStore{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc123")
	mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	mw, jwtService := newTestMiddleware(t, -time.Minute, &fakeAccountStore{})

	token, err := jwtService.IssueAccessToken("user-1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", errorCode(t, rec.Body.Bytes()))
}

func TestRequireAuth_ValidToken(t *testing.T) {
	accounts := &fakeAccountStore{users: map[string]*models.User{
		"user-1": {ID: "user-1", Email: "a@b.co"},
	}}
	mw, jwtService := newTestMiddleware(t, time.Hour, accounts)

	token, err := jwtService.IssueAccessToken("user-1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestRequireAuth_DeletedAccount(t *testing.T) {
	mw, jwtService := newTestMiddleware(t, time.Hour, &fakeAccountStore{users: map[string]*models.User{}})

	token, err := jwtService.IssueAccessToken("gone-user")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec.Body.Bytes()))
}

func TestRequireAuth_StoreFailure(t *testing.T) {
	mw, jwtService := newTestMiddleware(t, time.Hour, &fakeAccountStore{err: assert.AnError})

	token, err := jwtService.IssueAccessToken("user-1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	mw.RequireAuth(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec.Body.Bytes()))
}
