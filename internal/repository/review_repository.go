package repository

import (
	"newsreel_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository struct {
	DB *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: db}
}

func (r *ReviewRepository) WithTx(tx *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: tx}
}

// RatingStats 被评价人的聚合分
type RatingStats struct {
	Total        int64
	Rating       float64
	Ethics       float64
	Trust        float64
	Accuracy     float64
	Fairness     float64
	Contribution float64
	Expertise    float64
}

// VoteCount 赞同/反对人数
type VoteCount struct {
	Agreed    int64
	Disagreed int64
}

var reviewOrders = map[string]string{
	"id":      "id",
	"-id":     "id DESC",
	"rating":  "rating, id",
	"-rating": "rating DESC, id DESC",
}

// ReviewOrder 非法排序返回 false
func ReviewOrder(ordering string) (string, bool) {
	if ordering == "" {
		return reviewOrders["-id"], true
	}
	o, ok := reviewOrders[ordering]
	return o, ok
}

func (r *ReviewRepository) Create(review *model.Review) error {
	return r.DB.Omit(clause.Associations).Create(review).Error
}

func (r *ReviewRepository) FindByID(id uint) (*model.Review, error) {
	var review model.Review
	err := r.DB.Preload("Author").First(&review, id).Error
	return &review, err
}

func (r *ReviewRepository) Exists(authorID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Review{}).Where("author_id = ? AND user_id = ?", authorID, userID).Count(&count).Error
	return count > 0, err
}

// ReviewedBy 判断 authorID 是否评价过 userID
func (r *ReviewRepository) ReviewedBy(authorID, userID uint) (bool, error) {
	if authorID == 0 {
		return false, nil
	}
	return r.Exists(authorID, userID)
}

func (r *ReviewRepository) List(userID uint, order string, page, limit int) ([]model.Review, int64, error) {
	var total int64
	q := r.DB.Model(&model.Review{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var reviews []model.Review
	err := r.DB.Where("user_id = ?", userID).
		Preload("Author").
		Order(order).
		Offset(offsetOf(page, limit)).
		Limit(limit).
		Find(&reviews).Error
	return reviews, total, err
}

// Stats 对 userID 的全部评价取平均，无评价时各项为 0
func (r *ReviewRepository) Stats(userID uint) (*RatingStats, error) {
	var s RatingStats
	err := r.DB.Model(&model.Review{}).
		Select(`COUNT(*) AS total,
			COALESCE(AVG(rating), 0) AS rating,
			COALESCE(AVG(ethics), 0) AS ethics,
			COALESCE(AVG(trust), 0) AS trust,
			COALESCE(AVG(accuracy), 0) AS accuracy,
			COALESCE(AVG(fairness), 0) AS fairness,
			COALESCE(AVG(contribution), 0) AS contribution,
			COALESCE(AVG(expertise), 0) AS expertise`).
		Where("user_id = ?", userID).
		Scan(&s).Error
	return &s, err
}

// Delete 删除评价、回复及双方的投票
func (r *ReviewRepository) Delete(id uint) error {
	var replyIDs []uint
	if err := r.DB.Model(&model.Reply{}).Where("review_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
		return err
	}
	if len(replyIDs) > 0 {
		if err := r.DB.Where("reply_id IN ?", replyIDs).Delete(&model.ReplyVote{}).Error; err != nil {
			return err
		}
		if err := r.DB.Where("id IN ?", replyIDs).Delete(&model.Reply{}).Error; err != nil {
			return err
		}
	}
	if err := r.DB.Where("review_id = ?", id).Delete(&model.ReviewVote{}).Error; err != nil {
		return err
	}
	return r.DB.Delete(&model.Review{}, id).Error
}

// ReplyIDs 评价下的回复 id
func (r *ReviewRepository) ReplyIDs(reviewID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Reply{}).Where("review_id = ?", reviewID).Pluck("id", &ids).Error
	return ids, err
}

// Vote 赞同/反对互斥，再次投票时覆盖原选择
func (r *ReviewRepository) Vote(reviewID, userID uint, agree bool) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "review_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"agree", "updated_at"}),
	}).Create(&model.ReviewVote{ReviewID: reviewID, UserID: userID, Agree: agree}).Error
}

func (r *ReviewRepository) VoteReply(replyID, userID uint, agree bool) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reply_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"agree", "updated_at"}),
	}).Create(&model.ReplyVote{ReplyID: replyID, UserID: userID, Agree: agree}).Error
}

type voteRow struct {
	TargetID uint
	Agree    bool
	N        int64
}

func countVotes(db *gorm.DB, table interface{}, column string, ids []uint) (map[uint]VoteCount, error) {
	out := make(map[uint]VoteCount, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []voteRow
	err := db.Model(table).
		Select(column+" AS target_id, agree, COUNT(*) AS n").
		Where(column+" IN ?", ids).
		Group(column + ", agree").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		vc := out[row.TargetID]
		if row.Agree {
			vc.Agreed = row.N
		} else {
			vc.Disagreed = row.N
		}
		out[row.TargetID] = vc
	}
	return out, nil
}

func (r *ReviewRepository) VoteCounts(reviewIDs []uint) (map[uint]VoteCount, error) {
	return countVotes(r.DB, &model.ReviewVote{}, "review_id", reviewIDs)
}

func (r *ReviewRepository) ReplyVoteCounts(replyIDs []uint) (map[uint]VoteCount, error) {
	return countVotes(r.DB, &model.ReplyVote{}, "reply_id", replyIDs)
}

// UserVotes 用户对一批评价的态度，true 为赞同
func (r *ReviewRepository) UserVotes(userID uint, reviewIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if userID == 0 || len(reviewIDs) == 0 {
		return out, nil
	}
	var votes []model.ReviewVote
	if err := r.DB.Where("user_id = ? AND review_id IN ?", userID, reviewIDs).Find(&votes).Error; err != nil {
		return nil, err
	}
	for _, v := range votes {
		out[v.ReviewID] = v.Agree
	}
	return out, nil
}

func (r *ReviewRepository) CreateReply(reply *model.Reply) error {
	return r.DB.Create(reply).Error
}

func (r *ReviewRepository) FindReplyByReview(reviewID uint) (*model.Reply, error) {
	var reply model.Reply
	err := r.DB.Where("review_id = ?", reviewID).First(&reply).Error
	return &reply, err
}

func (r *ReviewRepository) FindReplyByID(id uint) (*model.Reply, error) {
	var reply model.Reply
	err := r.DB.First(&reply, id).Error
	return &reply, err
}

// RepliesFor 批量查询回复，reviewID -> 回复
func (r *ReviewRepository) RepliesFor(reviewIDs []uint) (map[uint]*model.Reply, error) {
	out := make(map[uint]*model.Reply)
	if len(reviewIDs) == 0 {
		return out, nil
	}
	var replies []model.Reply
	if err := r.DB.Where("review_id IN ?", reviewIDs).Find(&replies).Error; err != nil {
		return nil, err
	}
	for i := range replies {
		out[replies[i].ReviewID] = &replies[i]
	}
	return out, nil
}
