package models

import "time"

type Transaction struct {
	ID          string    `json:"id" dynamodbav:"id"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	Type        string    `json:"type" dynamodbav:"type"` // "income" or "expense"
	Amount      float64   `json:"amount" dynamodbav:"amount"`
	Category    string    `json:"category" dynamodbav:"category"`
	Subcategory string    `json:"subcategory,omitempty" dynamodbav:"subcategory,omitempty"`
	Description string    `json:"description" dynamodbav:"description"`
	Date        time.Time `json:"date" dynamodbav:"date"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (t *Transaction) GetPK() string {
	return "USER#" + t.UserID
}

// GetSK orders transactions by date so range queries can use the key
// directly instead of a filter expression.
func (t *Transaction) GetSK() string {
	return "TXN#" + t.Date.UTC().Format(time.RFC3339) + "#" + t.ID
}

// TransactionFilters narrows list queries; zero values mean "no filter".
type TransactionFilters struct {
	Type      string
	Category  string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

type TypeStatistics struct {
	Total      float64  `json:"total"`
	Count      int      `json:"count"`
	Categories []string `json:"categories"`
}

type Statistics struct {
	Income  TypeStatistics `json:"income"`
	Expense TypeStatistics `json:"expense"`
	Balance float64        `json:"balance"`
}

type CategoryBreakdown struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}
