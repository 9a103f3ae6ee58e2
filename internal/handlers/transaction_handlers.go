package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/middleware"
	"github.com/guzzle999/coinkept-backend/internal/models"
	"github.com/guzzle999/coinkept-backend/internal/repository"
)

type TransactionHandlers struct {
	transactions *repository.TransactionRepository
	logger       *logrus.Logger
}

func NewTransactionHandlers(transactions *repository.TransactionRepository, logger *logrus.Logger) *TransactionHandlers {
	return &TransactionHandlers{
		transactions: transactions,
		logger:       logger,
	}
}

type TransactionRequest struct {
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

func (h *TransactionHandlers) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	filters, errMsg := parseTransactionFilters(r)
	if errMsg != "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", errMsg)
		return
	}

	transactions, err := h.transactions.ListByUserID(r.Context(), user.ID, filters)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list transactions")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch transactions")
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}

	respondWithJSON(w, http.StatusOK, map[string][]models.Transaction{"transactions": transactions})
}

func (h *TransactionHandlers) Statistics(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	filters, errMsg := parseTransactionFilters(r)
	if errMsg != "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", errMsg)
		return
	}

	stats, err := h.transactions.GetStatistics(r.Context(), user.ID, filters)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute statistics")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch statistics")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]*models.Statistics{"statistics": stats})
}

func (h *TransactionHandlers) CategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	txnType := mux.Vars(r)["type"]
	if txnType != "income" && txnType != "expense" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid type. Must be income or expense")
		return
	}

	filters, errMsg := parseTransactionFilters(r)
	if errMsg != "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", errMsg)
		return
	}

	breakdown, err := h.transactions.GetCategoryBreakdown(r.Context(), user.ID, txnType, filters)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute category breakdown")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch category breakdown")
		return
	}
	if breakdown == nil {
		breakdown = []models.CategoryBreakdown{}
	}

	respondWithJSON(w, http.StatusOK, map[string][]models.CategoryBreakdown{"breakdown": breakdown})
}

func (h *TransactionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	txn, err := h.transactions.GetByID(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get transaction")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch transaction")
		return
	}
	if txn == nil {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Transaction not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]*models.Transaction{"transaction": txn})
}

func (h *TransactionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body")
		return
	}

	if req.Type == "" || req.Amount == 0 || req.Category == "" || req.Date == "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Type, amount, category, and date are required")
		return
	}
	if req.Type != "income" && req.Type != "expense" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Type must be income or expense")
		return
	}
	if req.Amount <= 0 {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Amount must be a positive number")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid date format")
		return
	}

	txn := &models.Transaction{
		UserID:      user.ID,
		Type:        req.Type,
		Amount:      req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Subcategory: strings.TrimSpace(req.Subcategory),
		Description: strings.TrimSpace(req.Description),
		Date:        date,
	}

	if err := h.transactions.Create(r.Context(), txn); err != nil {
		h.logger.WithError(err).Error("Failed to create transaction")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create transaction")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Transaction created successfully",
		"transaction": txn,
	})
}

func (h *TransactionHandlers) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request body")
		return
	}

	if req.Type != "" && req.Type != "income" && req.Type != "expense" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Type must be income or expense")
		return
	}
	if req.Amount < 0 {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Amount must be a positive number")
		return
	}

	txn, err := h.transactions.GetByID(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get transaction")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update transaction")
		return
	}
	if txn == nil {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Transaction not found")
		return
	}

	oldSK := txn.GetSK()

	if req.Type != "" {
		txn.Type = req.Type
	}
	if req.Amount > 0 {
		txn.Amount = req.Amount
	}
	if req.Category != "" {
		txn.Category = strings.TrimSpace(req.Category)
	}
	if req.Subcategory != "" {
		txn.Subcategory = strings.TrimSpace(req.Subcategory)
	}
	if req.Description != "" {
		txn.Description = strings.TrimSpace(req.Description)
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid date format")
			return
		}
		txn.Date = date
	}

	if err := h.transactions.Update(r.Context(), txn, oldSK); err != nil {
		h.logger.WithError(err).Error("Failed to update transaction")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update transaction")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Transaction updated successfully"})
}

func (h *TransactionHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	deleted, err := h.transactions.Delete(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete transaction")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete transaction")
		return
	}
	if !deleted {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Transaction not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted successfully"})
}

func parseTransactionFilters(r *http.Request) (models.TransactionFilters, string) {
	q := r.URL.Query()
	filters := models.TransactionFilters{
		Type:     q.Get("type"),
		Category: q.Get("category"),
	}

	if filters.Type != "" && filters.Type != "income" && filters.Type != "expense" {
		return filters, "Type must be income or expense"
	}

	if v := q.Get("startDate"); v != "" {
		date, err := parseDate(v)
		if err != nil {
			return filters, "Invalid startDate format"
		}
		filters.StartDate = date
	}
	if v := q.Get("endDate"); v != "" {
		date, err := parseDate(v)
		if err != nil {
			return filters, "Invalid endDate format"
		}
		filters.EndDate = date
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filters, "Invalid limit"
		}
		filters.Limit = limit
	}

	return filters, ""
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
