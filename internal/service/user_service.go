package service

import (
	"context"
	"mime/multipart"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/util"
	"newsreel_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UserService 用户资料的查询与修改
type UserService struct {
	UserRepo   *repository.UserRepository
	ReviewRepo *repository.ReviewRepository
	FollowRepo *repository.FollowRepository
	Storage    *StorageService
}

// NewUserService 创建一个新的用户服务实例
func NewUserService(userRepo *repository.UserRepository, reviewRepo *repository.ReviewRepository, followRepo *repository.FollowRepository, storage *StorageService) *UserService {
	return &UserService{
		UserRepo:   userRepo,
		ReviewRepo: reviewRepo,
		FollowRepo: followRepo,
		Storage:    storage,
	}
}

// UpdateUserRequest 可修改的资料字段，均为可选
type UpdateUserRequest struct {
	Username *string `form:"username" json:"username" binding:"omitempty,min=1,max=150"`
	Facebook *string `form:"facebook" json:"facebook" binding:"omitempty,max=200"`
	Twitter  *string `form:"twitter" json:"twitter" binding:"omitempty,max=200"`
	Linkedin *string `form:"linkedin" json:"linkedin" binding:"omitempty,max=200"`
	Bio      *string `form:"bio" json:"bio" binding:"omitempty,max=300"`
}

// UserProfile 用户详情，附带当前用户是否评价过、是否关注
type UserProfile struct {
	ID                    uint      `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	PhoneNumber           string    `json:"phone_number"`
	Avatar                string    `json:"avatar"`
	AvatarThumbnail       string    `json:"avatar_thumbnail"`
	Facebook              *string   `json:"facebook"`
	Twitter               *string   `json:"twitter"`
	Linkedin              *string   `json:"linkedin"`
	Bio                   *string   `json:"bio"`
	Posts                 int       `json:"posts"`
	OwnReviews            int       `json:"own_reviews"`
	Reviews               int       `json:"reviews"`
	Comments              int       `json:"comments"`
	Subscribers           int       `json:"subscribers"`
	Rating                float64   `json:"rating"`
	Ethics                float64   `json:"ethics"`
	Trust                 float64   `json:"trust"`
	Accuracy              float64   `json:"accuracy"`
	Fairness              float64   `json:"fairness"`
	Contribution          float64   `json:"contribution"`
	Expertise             float64   `json:"expertise"`
	IsTopRated            bool      `json:"is_top_rated"`
	IsVerifiedPhoneNumber bool      `json:"is_verified_phone_number"`
	IsReviewed            bool      `json:"is_reviewed"`
	IsSubscribed          bool      `json:"is_subscribed"`
	CreatedAt             time.Time `json:"created_at"`
}

func (s *UserService) profile(u *model.User) *UserProfile {
	return &UserProfile{
		ID:                    u.ID,
		Username:              u.Username,
		Email:                 u.Email,
		PhoneNumber:           u.PhoneNumber,
		Avatar:                s.Storage.GetURL(u.Avatar),
		AvatarThumbnail:       s.Storage.GetURL(u.AvatarThumbnail),
		Facebook:              u.Facebook,
		Twitter:               u.Twitter,
		Linkedin:              u.Linkedin,
		Bio:                   u.Bio,
		Posts:                 u.Posts,
		OwnReviews:            u.OwnReviews,
		Reviews:               u.Reviews,
		Comments:              u.Comments,
		Subscribers:           u.Subscribers,
		Rating:                u.Rating,
		Ethics:                u.Ethics,
		Trust:                 u.Trust,
		Accuracy:              u.Accuracy,
		Fairness:              u.Fairness,
		Contribution:          u.Contribution,
		Expertise:             u.Expertise,
		IsTopRated:            u.IsTopRated,
		IsVerifiedPhoneNumber: u.IsVerifiedPhoneNumber,
		CreatedAt:             u.CreatedAt,
	}
}

// Get viewerID 为 0 时两个标志都为 false
func (s *UserService) Get(ctx context.Context, id, viewerID uint) (*UserProfile, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}
	p := s.profile(user)
	if viewerID == 0 || viewerID == id {
		return p, nil
	}
	if p.IsReviewed, err = s.ReviewRepo.ReviewedBy(viewerID, id); err != nil {
		return nil, err
	}
	if p.IsSubscribed, err = s.FollowRepo.Exists(viewerID, id); err != nil {
		return nil, err
	}
	return p, nil
}

// Update 只能修改自己的资料；头像与缩略图指向同一个对象
func (s *UserService) Update(ctx context.Context, id, actorID uint, req UpdateUserRequest, avatar *multipart.FileHeader) (*UserProfile, error) {
	if id != actorID {
		return nil, util.ErrPermissionDenied
	}
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}

	fields := make(map[string]interface{})
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			return nil, util.FieldError("username", util.FieldRequired)
		}
		taken, err := s.UserRepo.Taken("username", name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, util.NewConflictError("username", "A user with that username already exists.")
		}
		fields["username"] = name
	}
	for column, value := range map[string]*string{
		"facebook": req.Facebook,
		"twitter":  req.Twitter,
		"linkedin": req.Linkedin,
		"bio":      req.Bio,
	} {
		if value != nil {
			fields[column] = optional(value)
		}
	}

	stale := ""
	if avatar != nil {
		key, err := s.Storage.SaveImage(ctx, util.DirAvatars, avatar, "avatar")
		if err != nil {
			return nil, err
		}
		fields["avatar"] = key
		fields["avatar_thumbnail"] = key
		stale = user.Avatar
	}

	if err := s.UserRepo.UpdateProfile(id, fields); err != nil {
		if key, ok := fields["avatar"].(string); ok {
			_ = s.Storage.Delete(context.Background(), key)
		}
		return nil, duplicateAs(err, util.NewConflictError("username", "A user with that username already exists."))
	}
	if stale != "" {
		if err := s.Storage.Delete(ctx, stale); err != nil {
			logger.Log.Warn("failed to delete old avatar", zap.String("key", stale), zap.Error(err))
		}
	}
	return s.Get(ctx, id, actorID)
}
