package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guzzle999/coinkept-backend/internal/middleware"
	"github.com/guzzle999/coinkept-backend/internal/models"
)

// Validation failures answer before any storage call, so a handler with no
// repository behind it is enough to exercise them.
func newValidationOnlyTransactionHandlers() *TransactionHandlers {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewTransactionHandlers(nil, logger)
}

func authedRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	user := &models.User{ID: "user-1", Email: "a@b.co"}
	return req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, user))
}

func TestTransactionCreate_RequiresAuth(t *testing.T) {
	h := newValidationOnlyTransactionHandlers()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewReader(nil))
	h.Create(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransactionCreate_Validation(t *testing.T) {
	h := newValidationOnlyTransactionHandlers()

	tests := []struct {
		name string
		req  TransactionRequest
	}{
		{"missing fields", TransactionRequest{Type: "income"}},
		{"bad type", TransactionRequest{Type: "transfer", Amount: 10, Category: "Salary", Date: "2026-01-15"}},
		{"negative amount", TransactionRequest{Type: "income", Amount: -10, Category: "Salary", Date: "2026-01-15"}},
		{"bad date", TransactionRequest{Type: "income", Amount: 10, Category: "Salary", Date: "15/01/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, authedRequest(t, http.MethodPost, "/api/v1/transactions", tt.req))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_FAILED", decodeErrorResponse(t, rec).Error.Code)
		})
	}
}

func TestTransactionList_BadFilters(t *testing.T) {
	h := newValidationOnlyTransactionHandlers()

	for _, query := range []string{
		"?type=transfer",
		"?startDate=yesterday",
		"?endDate=15/01/2026",
		"?limit=0",
		"?limit=abc",
	} {
		rec := httptest.NewRecorder()
		h.List(rec, authedRequest(t, http.MethodGet, "/api/v1/transactions"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestParseTransactionFilters(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/transactions?type=expense&category=Food&startDate=2026-01-01&endDate=2026-01-31&limit=50", nil)

	filters, errMsg := parseTransactionFilters(req)
	require.Empty(t, errMsg)

	assert.Equal(t, "expense", filters.Type)
	assert.Equal(t, "Food", filters.Category)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), filters.StartDate)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), filters.EndDate)
	assert.Equal(t, 50, filters.Limit)
}

func TestParseDate(t *testing.T) {
	date, err := parseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), date)

	date, err = parseDate("2026-03-15T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, date.Hour())

	_, err = parseDate("March 15")
	assert.Error(t, err)
}
