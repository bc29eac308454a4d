package service

import (
	"context"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/util"

	"gorm.io/gorm"
)

type FollowService struct {
	DB         *gorm.DB
	FollowRepo *repository.FollowRepository
	UserRepo   *repository.UserRepository
}

func NewFollowService(db *gorm.DB, followRepo *repository.FollowRepository, userRepo *repository.UserRepository) *FollowService {
	return &FollowService{DB: db, FollowRepo: followRepo, UserRepo: userRepo}
}

type FollowResponse struct {
	ID              uint `json:"id"`
	User            uint `json:"user"`
	FollowingUser   uint `json:"following_user"`
	TotalSubscribed int  `json:"subscribers"`
}

func (s *FollowService) ensureTarget(targetID uint) error {
	exists, err := s.UserRepo.Exists(targetID)
	if err != nil {
		return err
	}
	if !exists {
		return util.ErrUserNotFound
	}
	return nil
}

// Follow 被关注人的订阅数加一
func (s *FollowService) Follow(ctx context.Context, userID, targetID uint) (*FollowResponse, error) {
	if err := s.ensureTarget(targetID); err != nil {
		return nil, err
	}
	if userID == targetID {
		return nil, util.ErrCannotFollowSelf
	}

	edge := &model.UserFollowing{UserID: userID, FollowingUserID: targetID}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		follows := s.FollowRepo.WithTx(tx)
		exists, err := follows.Exists(userID, targetID)
		if err != nil {
			return err
		}
		if exists {
			return util.ErrAlreadyFollowing
		}
		if err := follows.Create(edge); err != nil {
			return duplicateAs(err, util.ErrAlreadyFollowing)
		}
		return s.UserRepo.WithTx(tx).Bump(targetID, repository.ColSubscribers, 1)
	})
	if err != nil {
		return nil, err
	}
	s.FollowRepo.InvalidateFollowers(ctx, targetID)

	target, err := s.UserRepo.FindByID(targetID)
	if err != nil {
		return nil, err
	}
	return &FollowResponse{ID: edge.ID, User: userID, FollowingUser: targetID, TotalSubscribed: target.Subscribers}, nil
}

// Unfollow 未关注时直接成功
func (s *FollowService) Unfollow(ctx context.Context, userID, targetID uint) error {
	if err := s.ensureTarget(targetID); err != nil {
		return err
	}
	removed := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		deleted, err := s.FollowRepo.WithTx(tx).Delete(userID, targetID)
		if err != nil || !deleted {
			return err
		}
		removed = true
		return s.UserRepo.WithTx(tx).Bump(targetID, repository.ColSubscribers, -1)
	})
	if err != nil {
		return err
	}
	if removed {
		s.FollowRepo.InvalidateFollowers(ctx, targetID)
	}
	return nil
}

// IsSubscribed viewer 为 0 时恒为 false
func (s *FollowService) IsSubscribed(viewerID, targetID uint) (bool, error) {
	if viewerID == 0 {
		return false, nil
	}
	return s.FollowRepo.Exists(viewerID, targetID)
}
