package model

import (
	"time"
)

// swagger:model User
type User struct {
	BaseModel
	Username        string  `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email           string  `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PhoneNumber     string  `gorm:"size:32;uniqueIndex;not null" json:"phone_number"`
	Password        string  `gorm:"size:100;not null" json:"-"`
	Avatar          string  `gorm:"size:255" json:"avatar"`
	AvatarThumbnail string  `gorm:"size:255" json:"avatar_thumbnail"`
	Facebook        *string `gorm:"size:200" json:"facebook"`
	Twitter         *string `gorm:"size:200" json:"twitter"`
	Linkedin        *string `gorm:"size:200" json:"linkedin"`
	Bio             *string `gorm:"size:300" json:"bio"`

	// 统计字段，只能通过服务层的事务维护
	Posts        int     `gorm:"default:0;not null" json:"posts"`
	OwnReviews   int     `gorm:"default:0;not null" json:"own_reviews"`
	Reviews      int     `gorm:"default:0;not null" json:"reviews"`
	Comments     int     `gorm:"default:0;not null" json:"comments"`
	Subscribers  int     `gorm:"default:0;not null" json:"subscribers"`
	Rating       float64 `gorm:"default:0;not null" json:"rating"`
	Ethics       float64 `gorm:"default:0;not null" json:"ethics"`
	Trust        float64 `gorm:"default:0;not null" json:"trust"`
	Accuracy     float64 `gorm:"default:0;not null" json:"accuracy"`
	Fairness     float64 `gorm:"default:0;not null" json:"fairness"`
	Contribution float64 `gorm:"default:0;not null" json:"contribution"`
	Expertise    float64 `gorm:"default:0;not null" json:"expertise"`

	IsTopRated            bool       `gorm:"default:false" json:"is_top_rated"`
	IsVerifiedPhoneNumber bool       `gorm:"default:false" json:"is_verified_phone_number"`
	LastLogin             *time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}

// PhoneVerification 短信验证码记录
type PhoneVerification struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Code      string    `gorm:"size:10;not null"`
	UserID    uint      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (PhoneVerification) TableName() string {
	return "phone_verifications"
}
