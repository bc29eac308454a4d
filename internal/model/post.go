package model

import (
	"time"
)

type PostType string

const (
	PostTypePSA     PostType = "psa"
	PostTypePoll    PostType = "poll"
	PostTypeMeme    PostType = "meme"
	PostTypeRepost  PostType = "repost"
	PostTypeArticle PostType = "article"
)

var PostTypes = []PostType{PostTypePSA, PostTypePoll, PostTypeMeme, PostTypeRepost, PostTypeArticle}

func (t PostType) Valid() bool {
	for _, pt := range PostTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// PostContent 帖子的类型化内容，五种实现之一
type PostContent interface {
	Kind() PostType
}

type Post struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug      *string   `gorm:"size:100;index" json:"slug"`
	Category  string    `gorm:"size:30;not null;index" json:"category"`
	Comments  int       `gorm:"default:0;not null" json:"comments"`
	Upvotes   int       `gorm:"default:0;not null;index" json:"upvotes"`
	Type      PostType  `gorm:"size:10;not null;index" json:"type"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Content PostContent `gorm:"-" json:"-"`
}

func (Post) TableName() string {
	return "posts"
}

type PSA struct {
	PostID uint   `gorm:"primaryKey;autoIncrement:false"`
	Text   string `gorm:"type:text;not null"`
}

func (PSA) TableName() string { return "psas" }
func (*PSA) Kind() PostType   { return PostTypePSA }

type Poll struct {
	PostID   uint     `gorm:"primaryKey;autoIncrement:false"`
	Question string   `gorm:"size:255;not null"`
	Votes    int      `gorm:"default:0;not null"`
	Choices  []Choice `gorm:"foreignKey:PollID;references:PostID"`
}

func (Poll) TableName() string { return "polls" }
func (*Poll) Kind() PostType   { return PostTypePoll }

type Choice struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PollID     uint   `gorm:"index;not null" json:"-"`
	ChoiceText string `gorm:"size:200;not null" json:"choice_text"`
	Votes      int    `gorm:"default:0;not null" json:"-"`
}

func (Choice) TableName() string { return "choices" }

// ChoiceVote 选项投票人；(poll_id, user_id) 唯一，一人一票
type ChoiceVote struct {
	ChoiceID  uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false;uniqueIndex:idx_poll_voter,priority:2"`
	PollID    uint `gorm:"not null;uniqueIndex:idx_poll_voter,priority:1"`
	CreatedAt time.Time
}

func (ChoiceVote) TableName() string { return "choice_voters" }

type Meme struct {
	PostID uint    `gorm:"primaryKey;autoIncrement:false"`
	Image  string  `gorm:"size:255;not null"`
	Title  *string `gorm:"size:100"`
}

func (Meme) TableName() string { return "memes" }
func (*Meme) Kind() PostType   { return PostTypeMeme }

type Repost struct {
	PostID uint   `gorm:"primaryKey;autoIncrement:false"`
	URL    string `gorm:"size:200;not null"`
}

func (Repost) TableName() string { return "reposts" }
func (*Repost) Kind() PostType   { return PostTypeRepost }

const (
	VideoTypeVimeo   = "vimeo"
	VideoTypeYoutube = "youtube"
)

type Article struct {
	PostID    uint    `gorm:"primaryKey;autoIncrement:false"`
	Title     string  `gorm:"size:100;not null"`
	Video     *string `gorm:"size:200"`
	VideoID   *string `gorm:"size:15"`
	Thumbnail *string `gorm:"size:255"`
	VideoType *string `gorm:"size:10"`
	Image     *string `gorm:"size:255"`
	Text      *string `gorm:"type:text"`
}

func (Article) TableName() string { return "articles" }
func (*Article) Kind() PostType   { return PostTypeArticle }

// ClearVideo 换成图片时清空视频相关字段
func (a *Article) ClearVideo() {
	a.Video = nil
	a.VideoID = nil
	a.Thumbnail = nil
	a.VideoType = nil
}

// PostUpvote 点赞人集合，行数恒等于 posts.upvotes
type PostUpvote struct {
	PostID    uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

func (PostUpvote) TableName() string {
	return "post_upvoters"
}
