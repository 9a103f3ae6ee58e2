package models

import "time"

// RefreshTokenData is the persisted record for one refresh credential.
// The token value itself is the lookup key; deletion is the only
// revocation mechanism.
type RefreshTokenData struct {
	Token     string    `json:"token" dynamodbav:"token"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Remember  bool      `json:"remember" dynamodbav:"remember"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
}
