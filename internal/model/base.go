package model

import (
	"time"
)

// swagger:model
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllModels 迁移用的全部模型，顺序即建表顺序
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&PhoneVerification{},
		&Post{},
		&PSA{},
		&Poll{},
		&Choice{},
		&ChoiceVote{},
		&Meme{},
		&Repost{},
		&Article{},
		&PostUpvote{},
		&Comment{},
		&Review{},
		&ReviewVote{},
		&Reply{},
		&ReplyVote{},
		&UserFollowing{},
		&Report{},
	}
}
