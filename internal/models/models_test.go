package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionSK_OrdersByDate(t *testing.T) {
	earlier := Transaction{
		ID:     "zzz",
		UserID: "user-1",
		Date:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	later := Transaction{
		ID:     "aaa",
		UserID: "user-1",
		Date:   time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}

	// Lexicographic key order must follow date order regardless of IDs.
	assert.Less(t, earlier.GetSK(), later.GetSK())
}

func TestTransactionSK_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	local := Transaction{
		ID:     "t1",
		UserID: "user-1",
		Date:   time.Date(2026, 1, 10, 3, 0, 0, 0, loc),
	}
	utc := Transaction{
		ID:     "t1",
		UserID: "user-1",
		Date:   time.Date(2026, 1, 9, 20, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, utc.GetSK(), local.GetSK())
}

func TestUserJSON_HidesPasswordHash(t *testing.T) {
	user := User{
		ID:           "user-1",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$12$secret",
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "password")
}

func TestDefaultCategories_WellFormed(t *testing.T) {
	require.NotEmpty(t, DefaultCategories)

	seen := map[string]bool{}
	for _, c := range DefaultCategories {
		assert.Contains(t, []string{"income", "expense"}, c.Type)
		assert.NotEmpty(t, c.Name)
		key := c.Type + "/" + c.Name
		assert.False(t, seen[key], "duplicate default category %s", key)
		seen[key] = true
	}
}
