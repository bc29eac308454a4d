package model

import "time"

// UserFollowing 关注关系，UserID 关注 FollowingUserID
type UserFollowing struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_user_following,priority:1" json:"user_id"`
	FollowingUserID uint      `gorm:"not null;index;uniqueIndex:idx_user_following,priority:2" json:"following_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

func (UserFollowing) TableName() string {
	return "user_followings"
}
