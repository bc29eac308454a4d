package model

import "time"

type Comment struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Text            string    `gorm:"type:text;not null" json:"text"`
	PostID          uint      `gorm:"index;not null" json:"post"`
	AuthorID        uint      `gorm:"index;not null" json:"-"`
	Author          User      `gorm:"foreignKey:AuthorID" json:"-"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}
