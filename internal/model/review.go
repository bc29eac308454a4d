package model

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// Review 用户互评，AuthorID 评价 UserID
type Review struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	Ethics       int       `gorm:"not null" json:"ethics"`
	Trust        int       `gorm:"not null" json:"trust"`
	Accuracy     int       `gorm:"not null" json:"accuracy"`
	Fairness     int       `gorm:"not null" json:"fairness"`
	Contribution int       `gorm:"not null" json:"contribution"`
	Expertise    int       `gorm:"not null" json:"expertise"`
	Rating       float64   `gorm:"default:0;not null" json:"rating"`
	UserID       uint      `gorm:"not null;index;uniqueIndex:idx_review_author_user,priority:2" json:"user"`
	AuthorID     uint      `gorm:"not null;uniqueIndex:idx_review_author_user,priority:1" json:"-"`
	Author       User      `gorm:"foreignKey:AuthorID" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// Round2 保留两位小数，0.5 的情况取偶
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// ComputeRating 六个维度的平均分
func (r *Review) ComputeRating() float64 {
	sum := r.Ethics + r.Trust + r.Accuracy + r.Fairness + r.Contribution + r.Expertise
	return Round2(float64(sum) / 6)
}

func (r *Review) BeforeSave(tx *gorm.DB) error {
	r.Rating = r.ComputeRating()
	return nil
}

// ReviewVote 对评价的赞同/反对，每人一行
type ReviewVote struct {
	ReviewID  uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	Agree     bool `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ReviewVote) TableName() string {
	return "review_votes"
}

// Reply 被评价人对评价的唯一回复
type Reply struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	UserID    uint      `gorm:"not null;index" json:"user"`
	ReviewID  uint      `gorm:"not null;uniqueIndex" json:"review"`
	CreatedAt time.Time `json:"created_at"`
}

func (Reply) TableName() string {
	return "replies"
}

type ReplyVote struct {
	ReplyID   uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	Agree     bool `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ReplyVote) TableName() string {
	return "reply_votes"
}
