package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newValidationOnlyCategoryHandlers() *CategoryHandlers {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCategoryHandlers(nil, logger)
}

func TestCategoryList_RequiresAuth(t *testing.T) {
	h := newValidationOnlyCategoryHandlers()

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCategoryList_BadTypeFilter(t *testing.T) {
	h := newValidationOnlyCategoryHandlers()

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/api/v1/categories?type=transfer", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeErrorResponse(t, rec).Error.Code)
}

func TestCategoryCreate_Validation(t *testing.T) {
	h := newValidationOnlyCategoryHandlers()

	tests := []struct {
		name string
		req  CreateCategoryRequest
	}{
		{"missing name", CreateCategoryRequest{Type: "expense"}},
		{"missing type", CreateCategoryRequest{Name: "Groceries"}},
		{"bad type", CreateCategoryRequest{Name: "Groceries", Type: "transfer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, authedRequest(t, http.MethodPost, "/api/v1/categories", tt.req))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_FAILED", decodeErrorResponse(t, rec).Error.Code)
		})
	}
}
