package repository

import (
	"fmt"
	"newsreel_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository struct {
	DB *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{DB: db}
}

func (r *PostRepository) WithTx(tx *gorm.DB) *PostRepository {
	return &PostRepository{DB: tx}
}

// PostFilter 列表筛选条件
type PostFilter struct {
	AuthorID     uint
	Category     string
	Types        []model.PostType
	ExcludeTypes []model.PostType
	ExcludeID    uint
}

// Create 写入帖子及其类型内容，Poll 的选项按顺序写入
func (r *PostRepository) Create(post *model.Post) error {
	if post.Content == nil {
		return fmt.Errorf("post content is required")
	}
	post.Type = post.Content.Kind()
	if err := r.DB.Omit(clause.Associations).Create(post).Error; err != nil {
		return err
	}

	switch c := post.Content.(type) {
	case *model.PSA:
		c.PostID = post.ID
		return r.DB.Create(c).Error
	case *model.Poll:
		c.PostID = post.ID
		if err := r.DB.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		for i := range c.Choices {
			c.Choices[i].PollID = post.ID
		}
		if len(c.Choices) == 0 {
			return nil
		}
		return r.DB.Create(&c.Choices).Error
	case *model.Meme:
		c.PostID = post.ID
		return r.DB.Create(c).Error
	case *model.Repost:
		c.PostID = post.ID
		return r.DB.Create(c).Error
	case *model.Article:
		c.PostID = post.ID
		return r.DB.Create(c).Error
	default:
		return fmt.Errorf("unknown post content %T", post.Content)
	}
}

// SetSlug 帖子 id 生成之后的第二次写入
func (r *PostRepository) SetSlug(id uint, slug string) error {
	return r.DB.Model(&model.Post{}).Where("id = ?", id).UpdateColumn("slug", slug).Error
}

func (r *PostRepository) UpdateCategory(id uint, category string) error {
	return r.DB.Model(&model.Post{}).Where("id = ?", id).UpdateColumn("category", category).Error
}

// SaveContent 更新 PSA 或 Article 内容，空指针字段同样写回
func (r *PostRepository) SaveContent(content model.PostContent) error {
	switch c := content.(type) {
	case *model.PSA:
		return r.DB.Model(c).Select("*").Updates(c).Error
	case *model.Article:
		return r.DB.Model(c).Select("*").Updates(c).Error
	default:
		return fmt.Errorf("content %T is not editable", content)
	}
}

func (r *PostRepository) FindByID(id uint) (*model.Post, error) {
	var post model.Post
	if err := r.DB.Preload("Author").First(&post, id).Error; err != nil {
		return nil, err
	}
	if err := r.loadOne(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) FindBySlug(slug string) (*model.Post, error) {
	var post model.Post
	if err := r.DB.Preload("Author").Where("slug = ?", slug).Order("id").First(&post).Error; err != nil {
		return nil, err
	}
	if err := r.loadOne(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

// FindPlain 只查主表，不加载内容和作者
func (r *PostRepository) FindPlain(id uint) (*model.Post, error) {
	var post model.Post
	err := r.DB.First(&post, id).Error
	return &post, err
}

func (r *PostRepository) loadOne(post *model.Post) error {
	posts := []model.Post{*post}
	if err := r.LoadContent(posts); err != nil {
		return err
	}
	*post = posts[0]
	return nil
}

// LoadContent 按类型批量加载内容，每种类型一次查询
func (r *PostRepository) LoadContent(posts []model.Post) error {
	byType := make(map[model.PostType][]uint)
	index := make(map[uint]int, len(posts))
	for i := range posts {
		index[posts[i].ID] = i
		byType[posts[i].Type] = append(byType[posts[i].Type], posts[i].ID)
	}

	for t, ids := range byType {
		switch t {
		case model.PostTypePSA:
			var rows []model.PSA
			if err := r.DB.Where("post_id IN ?", ids).Find(&rows).Error; err != nil {
				return err
			}
			for i := range rows {
				posts[index[rows[i].PostID]].Content = &rows[i]
			}
		case model.PostTypePoll:
			var rows []model.Poll
			err := r.DB.Where("post_id IN ?", ids).
				Preload("Choices", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
				Find(&rows).Error
			if err != nil {
				return err
			}
			for i := range rows {
				posts[index[rows[i].PostID]].Content = &rows[i]
			}
		case model.PostTypeMeme:
			var rows []model.Meme
			if err := r.DB.Where("post_id IN ?", ids).Find(&rows).Error; err != nil {
				return err
			}
			for i := range rows {
				posts[index[rows[i].PostID]].Content = &rows[i]
			}
		case model.PostTypeRepost:
			var rows []model.Repost
			if err := r.DB.Where("post_id IN ?", ids).Find(&rows).Error; err != nil {
				return err
			}
			for i := range rows {
				posts[index[rows[i].PostID]].Content = &rows[i]
			}
		case model.PostTypeArticle:
			var rows []model.Article
			if err := r.DB.Where("post_id IN ?", ids).Find(&rows).Error; err != nil {
				return err
			}
			for i := range rows {
				posts[index[rows[i].PostID]].Content = &rows[i]
			}
		}
	}
	return nil
}

func (r *PostRepository) filtered(f PostFilter) *gorm.DB {
	q := r.DB.Model(&model.Post{})
	if f.AuthorID > 0 {
		q = q.Where("author_id = ?", f.AuthorID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if len(f.Types) > 0 {
		q = q.Where("type IN ?", f.Types)
	}
	if len(f.ExcludeTypes) > 0 {
		q = q.Where("type NOT IN ?", f.ExcludeTypes)
	}
	if f.ExcludeID > 0 {
		q = q.Where("id <> ?", f.ExcludeID)
	}
	return q
}

// List 分页查询并加载内容，order 由调用方给定
func (r *PostRepository) List(f PostFilter, order string, page, limit int) ([]model.Post, int64, error) {
	var total int64
	if err := r.filtered(f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []model.Post
	err := r.filtered(f).
		Preload("Author").
		Order(order).
		Offset(offsetOf(page, limit)).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	if err := r.LoadContent(posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Feed 热度优先
func (r *PostRepository) Feed(category string, page, limit int) ([]model.Post, int64, error) {
	return r.List(PostFilter{Category: category}, "upvotes DESC, created_at DESC, id DESC", page, limit)
}

func (r *PostRepository) ByAuthor(f PostFilter, page, limit int) ([]model.Post, int64, error) {
	return r.List(f, "id DESC", page, limit)
}

// RelatedArticles 同作者的其他文章
func (r *PostRepository) RelatedArticles(authorID, excludeID uint, limit int) ([]model.Post, error) {
	posts, _, err := r.List(PostFilter{
		AuthorID:  authorID,
		Types:     []model.PostType{model.PostTypeArticle},
		ExcludeID: excludeID,
	}, "id DESC", 1, limit)
	return posts, err
}

func (r *PostRepository) Bump(id uint, column string, delta int) error {
	return bumpCounter(r.DB, &model.Post{}, keyID, id, column, delta)
}

// AddUpvoter 插入点赞记录，已存在时返回 false
func (r *PostRepository) AddUpvoter(postID, userID uint) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.PostUpvote{PostID: postID, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpvotedBy 用户点过赞的帖子集合
func (r *PostRepository) UpvotedBy(userID uint, postIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if userID == 0 || len(postIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := r.DB.Model(&model.PostUpvote{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *PostRepository) CountUpvoters(postID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.PostUpvote{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

// DeleteWithChildren 删除点赞、类型内容、投票选项与帖子本身；评论与举报由服务层先行处理
func (r *PostRepository) DeleteWithChildren(post *model.Post) error {
	if err := r.DB.Where("post_id = ?", post.ID).Delete(&model.PostUpvote{}).Error; err != nil {
		return err
	}

	var child interface{}
	switch post.Type {
	case model.PostTypePSA:
		child = &model.PSA{}
	case model.PostTypePoll:
		if err := r.DB.Where("poll_id = ?", post.ID).Delete(&model.ChoiceVote{}).Error; err != nil {
			return err
		}
		if err := r.DB.Where("poll_id = ?", post.ID).Delete(&model.Choice{}).Error; err != nil {
			return err
		}
		child = &model.Poll{}
	case model.PostTypeMeme:
		child = &model.Meme{}
	case model.PostTypeRepost:
		child = &model.Repost{}
	case model.PostTypeArticle:
		child = &model.Article{}
	}
	if child != nil {
		if err := r.DB.Where("post_id = ?", post.ID).Delete(child).Error; err != nil {
			return err
		}
	}
	return r.DB.Delete(&model.Post{}, post.ID).Error
}
