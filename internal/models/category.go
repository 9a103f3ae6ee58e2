package models

import "time"

type Category struct {
	ID        string    `json:"id" dynamodbav:"id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Name      string    `json:"name" dynamodbav:"name"`
	Type      string    `json:"type" dynamodbav:"type"` // "income" or "expense"
	Color     string    `json:"color" dynamodbav:"color"`
	Icon      string    `json:"icon" dynamodbav:"icon"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (c *Category) GetPK() string {
	return "USER#" + c.UserID
}

func (c *Category) GetSK() string {
	return "CATEGORY#" + c.ID
}

// DefaultCategories are seeded for every new account at registration.
var DefaultCategories = []Category{
	{Name: "Salary", Type: "income", Color: "#10b981", Icon: "💼"},
	{Name: "Freelance", Type: "income", Color: "#8b5cf6", Icon: "💻"},
	{Name: "Investment", Type: "income", Color: "#f59e0b", Icon: "📈"},
	{Name: "Business", Type: "income", Color: "#3b82f6", Icon: "🏢"},
	{Name: "Other Income", Type: "income", Color: "#6b7280", Icon: "💰"},
	{Name: "Food", Type: "expense", Color: "#ef4444", Icon: "🍽️"},
	{Name: "Transport", Type: "expense", Color: "#f97316", Icon: "🚗"},
	{Name: "Shopping", Type: "expense", Color: "#ec4899", Icon: "🛍️"},
	{Name: "Entertainment", Type: "expense", Color: "#a855f7", Icon: "🎬"},
	{Name: "Health", Type: "expense", Color: "#06b6d4", Icon: "⚕️"},
	{Name: "Education", Type: "expense", Color: "#84cc16", Icon: "📚"},
	{Name: "Bills", Type: "expense", Color: "#dc2626", Icon: "📱"},
	{Name: "Travel", Type: "expense", Color: "#0ea5e9", Icon: "✈️"},
	{Name: "Online", Type: "expense", Color: "#8b5cf6", Icon: "💻"},
	{Name: "Other", Type: "expense", Color: "#6b7280", Icon: "📝"},
}
