package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const blacklistKeyPrefix = "newsreel:blacklist:"

// TokenBlacklistRepository 注销令牌的 jti 黑名单，过期时间与令牌一致
type TokenBlacklistRepository struct {
	Redis *redis.Client
}

func NewTokenBlacklistRepository(rdb *redis.Client) *TokenBlacklistRepository {
	return &TokenBlacklistRepository{Redis: rdb}
}

func (r *TokenBlacklistRepository) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.Redis.Set(ctx, blacklistKeyPrefix+jti, 1, ttl).Err()
}

func (r *TokenBlacklistRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := r.Redis.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
