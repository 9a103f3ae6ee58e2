package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/guzzle999/coinkept-backend/internal/models"
)

const (
	refreshTokenKeyPrefix = "refresh_token:"
	userTokensKeyPrefix   = "user_tokens:"
)

// RedisRefreshTokenRepository stores refresh credential records as JSON
// values keyed by token, with the record's own expiry as the TTL so Redis
// removes expired credentials natively. A per-user set indexes tokens for
// delete-by-subject.
type RedisRefreshTokenRepository struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisRefreshTokenRepository(client *redis.Client, logger *logrus.Logger) *RedisRefreshTokenRepository {
	return &RedisRefreshTokenRepository{
		client: client,
		logger: logger,
	}
}

func (r *RedisRefreshTokenRepository) Insert(ctx context.Context, data models.RefreshTokenData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	ttl := time.Until(data.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh token already expired")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, refreshTokenKeyPrefix+data.Token, dataJSON, ttl)
	pipe.SAdd(ctx, userTokensKeyPrefix+data.UserID, data.Token)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to store refresh token in Redis")
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

func (r *RedisRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshTokenData, error) {
	dataJSON, err := r.client.Get(ctx, refreshTokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	var data models.RefreshTokenData
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}

	return &data, nil
}

func (r *RedisRefreshTokenRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	data, err := r.FindByToken(ctx, token)
	if err != nil {
		return false, err
	}

	deleted, err := r.client.Del(ctx, refreshTokenKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete refresh token: %w", err)
	}

	if data != nil {
		if err := r.client.SRem(ctx, userTokensKeyPrefix+data.UserID, token).Err(); err != nil {
			// The sweep reclaims dangling index members later.
			r.logger.WithError(err).Warn("Failed to remove token from user index")
		}
	}

	return deleted > 0, nil
}

func (r *RedisRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int, error) {
	indexKey := userTokensKeyPrefix + userID

	tokens, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list user tokens: %w", err)
	}

	count := 0
	for _, token := range tokens {
		deleted, err := r.client.Del(ctx, refreshTokenKeyPrefix+token).Result()
		if err != nil {
			return count, fmt.Errorf("failed to delete refresh token: %w", err)
		}
		count += int(deleted)
	}

	if err := r.client.Del(ctx, indexKey).Err(); err != nil {
		return count, fmt.Errorf("failed to delete token index: %w", err)
	}

	return count, nil
}

// DeleteExpiredBefore prunes index members whose record TTL already fired.
// Redis deletes the records themselves, so each dangling member corresponds
// to one expired credential.
func (r *RedisRefreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	count := 0

	iter := r.client.Scan(ctx, 0, userTokensKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()

		tokens, err := r.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return count, fmt.Errorf("failed to list user tokens: %w", err)
		}

		for _, token := range tokens {
			exists, err := r.client.Exists(ctx, refreshTokenKeyPrefix+token).Result()
			if err != nil {
				return count, fmt.Errorf("failed to check refresh token: %w", err)
			}
			if exists == 0 {
				if err := r.client.SRem(ctx, indexKey, token).Err(); err != nil {
					r.logger.WithError(err).Warn("Failed to prune expired token from user index")
				}
				count++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return count, fmt.Errorf("failed to scan token indexes: %w", err)
	}

	return count, nil
}
