package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/middleware"
	"github.com/guzzle999/coinkept-backend/internal/models"
	"github.com/guzzle999/coinkept-backend/internal/repository"
)

type CategoryHandlers struct {
	categories *repository.CategoryRepository
	logger     *logrus.Logger
}

func NewCategoryHandlers(categories *repository.CategoryRepository, logger *logrus.Logger) *CategoryHandlers {
	return &CategoryHandlers{
		categories: categories,
		logger:     logger,
	}
}

type CreateCategoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type UpdateCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (h *CategoryHandlers) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	categoryType := r.URL.Query().Get("type")
	if categoryType != "" && categoryType != "income" && categoryType != "expense" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Type must be income or expense")
		return
	}

	categories, err := h.categories.ListByUserID(r.Context(), user.ID, categoryType)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list categories")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch categories")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string][]models.Category{"categories": categories})
}

func (h *CategoryHandlers) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	category, err := h.categories.GetByID(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get category")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch category")
		return
	}
	if category == nil {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Category not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]*models.Category{"category": category})
}

func (h *CategoryHandlers) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || req.Type == "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Name and type are required")
		return
	}
	if req.Type != "income" && req.Type != "expense" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Type must be income or expense")
		return
	}

	exists, err := h.nameExists(r, user.ID, req.Type, name, "")
	if err != nil {
		h.logger.WithError(err).Error("Failed to check category names")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create category")
		return
	}
	if exists {
		respondWithError(w, http.StatusConflict, "CONFLICT", "Category name already exists")
		return
	}

	category := &models.Category{
		UserID: user.ID,
		Name:   name,
		Type:   req.Type,
		Color:  defaultString(req.Color, "#6366f1"),
		Icon:   defaultString(req.Icon, "📊"),
	}

	if err := h.categories.Create(r.Context(), category); err != nil {
		h.logger.WithError(err).Error("Failed to create category")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create category")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Category created successfully",
		"category": category,
	})
}

func (h *CategoryHandlers) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	id := mux.Vars(r)["id"]

	var req UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if req.Name != "" && name == "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Category name cannot be empty")
		return
	}

	if name != "" {
		category, err := h.categories.GetByID(r.Context(), id, user.ID)
		if err != nil {
			h.logger.WithError(err).Error("Failed to get category")
			respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update category")
			return
		}
		if category == nil {
			respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Category not found")
			return
		}

		exists, err := h.nameExists(r, user.ID, category.Type, name, id)
		if err != nil {
			h.logger.WithError(err).Error("Failed to check category names")
			respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update category")
			return
		}
		if exists {
			respondWithError(w, http.StatusConflict, "CONFLICT", "Category name already exists")
			return
		}
	}

	updated, err := h.categories.Update(r.Context(), id, user.ID, name, req.Color, req.Icon)
	if err != nil {
		h.logger.WithError(err).Error("Failed to update category")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update category")
		return
	}
	if !updated {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Category not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Category updated successfully"})
}

func (h *CategoryHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	deleted, err := h.categories.Delete(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete category")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete category")
		return
	}
	if !deleted {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Category not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}

func (h *CategoryHandlers) nameExists(r *http.Request, userID, categoryType, name, excludeID string) (bool, error) {
	existing, err := h.categories.ListByUserID(r.Context(), userID, categoryType)
	if err != nil {
		return false, err
	}

	lower := strings.ToLower(name)
	for _, cat := range existing {
		if strings.ToLower(cat.Name) == lower && cat.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
