package repository

import (
	"newsreel_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) WithTx(tx *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: tx}
}

func (r *CommentRepository) Create(comment *model.Comment) error {
	return r.DB.Omit(clause.Associations).Create(comment).Error
}

func (r *CommentRepository) FindByID(id uint) (*model.Comment, error) {
	var comment model.Comment
	err := r.DB.Preload("Author").First(&comment, id).Error
	return &comment, err
}

// ListTopLevel 帖子下的一级评论
func (r *CommentRepository) ListTopLevel(postID uint, page, limit int) ([]model.Comment, int64, error) {
	return r.list(r.DB.Where("post_id = ? AND parent_comment_id IS NULL", postID), page, limit)
}

// ListReplies 某条评论的直接回复
func (r *CommentRepository) ListReplies(parentID uint, page, limit int) ([]model.Comment, int64, error) {
	return r.list(r.DB.Where("parent_comment_id = ?", parentID), page, limit)
}

func (r *CommentRepository) list(q *gorm.DB, page, limit int) ([]model.Comment, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Model(&model.Comment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var comments []model.Comment
	err := q.Session(&gorm.Session{}).
		Preload("Author").
		Order("id").
		Offset(offsetOf(page, limit)).
		Limit(limit).
		Find(&comments).Error
	return comments, total, err
}

// Subtree 评论及其全部后代，按层遍历
func (r *CommentRepository) Subtree(rootID uint) ([]model.Comment, error) {
	var root model.Comment
	if err := r.DB.First(&root, rootID).Error; err != nil {
		return nil, err
	}
	out := []model.Comment{root}
	frontier := []uint{root.ID}
	for len(frontier) > 0 {
		var children []model.Comment
		if err := r.DB.Where("parent_comment_id IN ?", frontier).Find(&children).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, c := range children {
			out = append(out, c)
			frontier = append(frontier, c.ID)
		}
	}
	return out, nil
}

func (r *CommentRepository) FindByPost(postID uint) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.DB.Where("post_id = ?", postID).Find(&comments).Error
	return comments, err
}

func (r *CommentRepository) DeleteByIDs(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB.Where("id IN ?", ids).Delete(&model.Comment{}).Error
}
