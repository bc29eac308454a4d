package repository

import (
	"context"
	"fmt"
	"newsreel_backend/internal/model"
	"newsreel_backend/pkg/logger"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	followerKeyPrefix = "newsreel:followers:"
	followerCacheTTL  = 24 * time.Hour
	// 空集合占位，区分“未缓存”与“没有粉丝”
	emptyMarker = "0"
)

type FollowRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewFollowRepository(db *gorm.DB, rdb *redis.Client) *FollowRepository {
	return &FollowRepository{DB: db, Redis: rdb}
}

func (r *FollowRepository) WithTx(tx *gorm.DB) *FollowRepository {
	return &FollowRepository{DB: tx, Redis: r.Redis}
}

func (r *FollowRepository) Create(f *model.UserFollowing) error {
	return r.DB.Create(f).Error
}

func (r *FollowRepository) Exists(userID, followingID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.UserFollowing{}).
		Where("user_id = ? AND following_user_id = ?", userID, followingID).
		Count(&count).Error
	return count > 0, err
}

// Delete 返回是否真的删除了关注关系
func (r *FollowRepository) Delete(userID, followingID uint) (bool, error) {
	res := r.DB.Where("user_id = ? AND following_user_id = ?", userID, followingID).Delete(&model.UserFollowing{})
	return res.RowsAffected > 0, res.Error
}

func (r *FollowRepository) FollowerIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.UserFollowing{}).
		Where("following_user_id = ?", userID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func followerKey(userID uint) string {
	return fmt.Sprintf("%s%d", followerKeyPrefix, userID)
}

// FollowerIDsCached 优先读 Redis 集合，未命中时查库并回填
func (r *FollowRepository) FollowerIDsCached(ctx context.Context, userID uint) ([]uint, error) {
	if r.Redis == nil {
		return r.FollowerIDs(userID)
	}
	key := followerKey(userID)
	members, err := r.Redis.SMembers(ctx, key).Result()
	if err == nil && len(members) > 0 {
		ids := make([]uint, 0, len(members))
		for _, m := range members {
			if m == emptyMarker {
				continue
			}
			if id, err := strconv.ParseUint(m, 10, 64); err == nil {
				ids = append(ids, uint(id))
			}
		}
		return ids, nil
	}
	if err != nil {
		logger.Log.Warn("follower cache read failed", zap.Uint("user_id", userID), zap.Error(err))
	}

	ids, err := r.FollowerIDs(userID)
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, 0, len(ids)+1)
	values = append(values, emptyMarker)
	for _, id := range ids {
		values = append(values, strconv.FormatUint(uint64(id), 10))
	}
	pipe := r.Redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, values...)
	pipe.Expire(ctx, key, followerCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("follower cache refresh failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	return ids, nil
}

// InvalidateFollowers 关注关系变化后清除缓存
func (r *FollowRepository) InvalidateFollowers(ctx context.Context, userID uint) {
	if r.Redis == nil {
		return
	}
	if err := r.Redis.Del(ctx, followerKey(userID)).Err(); err != nil {
		logger.Log.Warn("follower cache invalidate failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (r *FollowRepository) CountFollowers(userID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.UserFollowing{}).Where("following_user_id = ?", userID).Count(&n).Error
	return n, err
}
