package service

import (
	"errors"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

// notFoundAs 把 gorm.ErrRecordNotFound 换成领域错误
func notFoundAs(err error, sentinel *util.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// duplicateAs 唯一约束冲突换成领域错误，依赖 gorm 的 TranslateError
func duplicateAs(err error, sentinel *util.AppError) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return sentinel
	}
	return err
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func blankPtr(p *string) bool {
	return p == nil || blank(*p)
}

// optional 空白字符串存为 NULL
func optional(p *string) *string {
	if blankPtr(p) {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// requireFields 按顺序检查必填项，全部缺失的字段一起返回
func requireFields(pairs ...string) error {
	fields := make(map[string]string)
	for i := 0; i+1 < len(pairs); i += 2 {
		if blank(pairs[i+1]) {
			fields[pairs[i]] = util.FieldRequired
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &util.AppError{Kind: util.KindValidation, Message: "Invalid input.", Fields: fields}
}

// AuthorSummary 帖子、评论、评价中嵌套的作者信息
type AuthorSummary struct {
	ID              uint    `json:"id"`
	Username        string  `json:"username"`
	AvatarThumbnail string  `json:"avatar_thumbnail"`
	Rating          float64 `json:"rating"`
	OwnReviews      int     `json:"own_reviews"`
	IsTopRated      bool    `json:"is_top_rated"`
}

func summarize(u *model.User, storage *StorageService) AuthorSummary {
	s := AuthorSummary{
		ID:         u.ID,
		Username:   u.Username,
		Rating:     u.Rating,
		OwnReviews: u.OwnReviews,
		IsTopRated: u.IsTopRated,
	}
	if storage != nil {
		s.AvatarThumbnail = storage.GetURL(u.AvatarThumbnail)
	}
	return s
}
