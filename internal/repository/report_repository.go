package repository

import (
	"newsreel_backend/internal/model"

	"gorm.io/gorm"
)

type ReportRepository struct {
	DB *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

func (r *ReportRepository) WithTx(tx *gorm.DB) *ReportRepository {
	return &ReportRepository{DB: tx}
}

func (r *ReportRepository) Create(report *model.Report) error {
	return r.DB.Create(report).Error
}

func (r *ReportRepository) DeleteByPost(postID uint) error {
	return r.DB.Where("post_id = ?", postID).Delete(&model.Report{}).Error
}

func (r *ReportRepository) DeleteByReview(reviewID uint, replyIDs []uint) error {
	q := r.DB.Where("review_id = ?", reviewID)
	if len(replyIDs) > 0 {
		q = q.Or("reply_id IN ?", replyIDs)
	}
	return q.Delete(&model.Report{}).Error
}
