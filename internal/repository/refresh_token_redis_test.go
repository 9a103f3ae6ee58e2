package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guzzle999/coinkept-backend/internal/models"
)

func newTestRedisRepo(t *testing.T) (*RedisRefreshTokenRepository, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewRedisRefreshTokenRepository(rdb, logger), mr
}

func tokenData(token, userID string, ttl time.Duration) models.RefreshTokenData {
	now := time.Now()
	return models.RefreshTokenData{
		Token:     token,
		UserID:    userID,
		Remember:  false,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestRedisRepo_InsertAndFind(t *testing.T) {
	repo, _ := newTestRedisRepo(t)
	ctx := context.Background()

	data := tokenData("tok-1", "user-1", time.Hour)
	require.NoError(t, repo.Insert(ctx, data))

	found, err := repo.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "tok-1", found.Token)
	assert.Equal(t, "user-1", found.UserID)
	assert.WithinDuration(t, data.ExpiresAt, found.ExpiresAt, time.Second)
}

func TestRedisRepo_InsertExpiredRejected(t *testing.T) {
	repo, _ := newTestRedisRepo(t)

	err := repo.Insert(context.Background(), tokenData("tok-1", "user-1", -time.Minute))
	assert.Error(t, err)
}

func TestRedisRepo_FindMissing(t *testing.T) {
	repo, _ := newTestRedisRepo(t)

	found, err := repo.FindByToken(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestRedisRepo_DeleteByToken(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, tokenData("tok-1", "user-1", time.Hour)))

	deleted, err := repo.DeleteByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	found, err := repo.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Nil(t, found)

	// The user index must not keep a dangling member.
	assert.False(t, mr.Exists(userTokensKeyPrefix+"user-1"))

	deleted, err = repo.DeleteByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisRepo_DeleteByUserID(t *testing.T) {
	repo, _ := newTestRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, tokenData("tok-1", "user-1", time.Hour)))
	require.NoError(t, repo.Insert(ctx, tokenData("tok-2", "user-1", time.Hour)))
	require.NoError(t, repo.Insert(ctx, tokenData("tok-3", "user-2", time.Hour)))

	count, err := repo.DeleteByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	found, err := repo.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindByToken(ctx, "tok-3")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "user-2", found.UserID)
}

func TestRedisRepo_DeleteByUserID_Empty(t *testing.T) {
	repo, _ := newTestRedisRepo(t)

	count, err := repo.DeleteByUserID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRedisRepo_DeleteExpiredBefore(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, tokenData("tok-short", "user-1", time.Hour)))
	require.NoError(t, repo.Insert(ctx, tokenData("tok-long", "user-1", 48*time.Hour)))

	mr.FastForward(2 * time.Hour)

	count, err := repo.DeleteExpiredBefore(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The surviving index only holds the live token.
	members, err := mr.SMembers(userTokensKeyPrefix + "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-long"}, members)
}
