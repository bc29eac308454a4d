package service

import (
	"context"
	"errors"
	"fmt"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/util"
	"newsreel_backend/pkg/monitoring"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

type ReviewService struct {
	DB         *gorm.DB
	ReviewRepo *repository.ReviewRepository
	UserRepo   *repository.UserRepository
	ReportRepo *repository.ReportRepository
	Storage    *StorageService
}

func NewReviewService(db *gorm.DB, reviewRepo *repository.ReviewRepository, userRepo *repository.UserRepository, reportRepo *repository.ReportRepository, storage *StorageService) *ReviewService {
	return &ReviewService{
		DB:         db,
		ReviewRepo: reviewRepo,
		UserRepo:   userRepo,
		ReportRepo: reportRepo,
		Storage:    storage,
	}
}

type ReviewRequest struct {
	User         uint   `json:"user" binding:"required"`
	Text         string `json:"text" binding:"required"`
	Ethics       int    `json:"ethics" binding:"required,min=1,max=5"`
	Trust        int    `json:"trust" binding:"required,min=1,max=5"`
	Accuracy     int    `json:"accuracy" binding:"required,min=1,max=5"`
	Fairness     int    `json:"fairness" binding:"required,min=1,max=5"`
	Contribution int    `json:"contribution" binding:"required,min=1,max=5"`
	Expertise    int    `json:"expertise" binding:"required,min=1,max=5"`
}

type VoteRequest struct {
	Agree *bool `json:"agree" binding:"required"`
}

type ReplyRequest struct {
	Text string `json:"text" binding:"required"`
}

type ReplyResponse struct {
	ID           uint      `json:"id"`
	Text         string    `json:"text"`
	User         uint      `json:"user"`
	Review       uint      `json:"review"`
	AgreedNum    int64     `json:"agreed_num"`
	DisagreedNum int64     `json:"disagreed_num"`
	CreatedAt    time.Time `json:"created_at"`
}

type ReviewResponse struct {
	ID           uint           `json:"id"`
	Text         string         `json:"text"`
	Ethics       int            `json:"ethics"`
	Trust        int            `json:"trust"`
	Accuracy     int            `json:"accuracy"`
	Fairness     int            `json:"fairness"`
	Contribution int            `json:"contribution"`
	Expertise    int            `json:"expertise"`
	Rating       float64        `json:"rating"`
	User         uint           `json:"user"`
	Author       AuthorSummary  `json:"author"`
	Reply        *ReplyResponse `json:"reply"`
	AgreedNum    int64          `json:"agreed_num"`
	DisagreedNum int64          `json:"disagreed_num"`
	IsAgreed     bool           `json:"is_agreed"`
	IsDisagreed  bool           `json:"is_disagreed"`
	CreatedAt    time.Time      `json:"created_at"`
}

func validRating(field string, v int) error {
	if v < 1 || v > 5 {
		return util.FieldError(field, "Ensure this value is between 1 and 5.")
	}
	return nil
}

func (req ReviewRequest) validate() error {
	if blank(req.Text) {
		return util.FieldError("text", util.FieldRequired)
	}
	for _, r := range []struct {
		field string
		value int
	}{
		{"ethics", req.Ethics},
		{"trust", req.Trust},
		{"accuracy", req.Accuracy},
		{"fairness", req.Fairness},
		{"contribution", req.Contribution},
		{"expertise", req.Expertise},
	} {
		if err := validRating(r.field, r.value); err != nil {
			return err
		}
	}
	return nil
}

// recompute 重新计算被评价人的各项平均分，没有评价时全部归零
func recompute(reviews *repository.ReviewRepository, users *repository.UserRepository, subjectID uint) error {
	stats, err := reviews.Stats(subjectID)
	if err != nil {
		return err
	}
	return users.SetRatingStats(subjectID, stats)
}

// Create 被评价人 own_reviews 加一，评价人 reviews 加一，随后重算平均分
func (s *ReviewService) Create(ctx context.Context, authorID uint, req ReviewRequest) (*ReviewResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	exists, err := s.UserRepo.Exists(req.User)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.FieldError("user", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", req.User))
	}
	if req.User == authorID {
		return nil, util.ErrCannotReviewSelf
	}

	review := &model.Review{
		Text:         strings.TrimSpace(req.Text),
		Ethics:       req.Ethics,
		Trust:        req.Trust,
		Accuracy:     req.Accuracy,
		Fairness:     req.Fairness,
		Contribution: req.Contribution,
		Expertise:    req.Expertise,
		UserID:       req.User,
		AuthorID:     authorID,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		reviews := s.ReviewRepo.WithTx(tx)
		users := s.UserRepo.WithTx(tx)
		dup, err := reviews.Exists(authorID, req.User)
		if err != nil {
			return err
		}
		if dup {
			return util.ErrAlreadyReviewed
		}
		if err := reviews.Create(review); err != nil {
			return duplicateAs(err, util.ErrAlreadyReviewed)
		}
		if err := users.Bump(req.User, repository.ColOwnReviews, 1); err != nil {
			return err
		}
		if err := users.Bump(authorID, repository.ColReviews, 1); err != nil {
			return err
		}
		return recompute(reviews, users, req.User)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, review.ID, authorID)
}

// Delete 删除评价及其投票、回复与举报，计数回退后重算平均分
func (s *ReviewService) Delete(ctx context.Context, id, actorID uint) error {
	review, err := s.ReviewRepo.FindByID(id)
	if err != nil {
		return notFoundAs(err, util.ErrReviewNotFound)
	}
	if review.AuthorID != actorID {
		return util.ErrPermissionDenied
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		reviews := s.ReviewRepo.WithTx(tx)
		users := s.UserRepo.WithTx(tx)
		replyIDs, err := reviews.ReplyIDs(review.ID)
		if err != nil {
			return err
		}
		if err := s.ReportRepo.WithTx(tx).DeleteByReview(review.ID, replyIDs); err != nil {
			return err
		}
		if err := reviews.Delete(review.ID); err != nil {
			return err
		}
		if err := users.Bump(review.AuthorID, repository.ColReviews, -1); err != nil {
			return err
		}
		if err := users.Bump(review.UserID, repository.ColOwnReviews, -1); err != nil {
			return err
		}
		return recompute(reviews, users, review.UserID)
	})
}

func (s *ReviewService) Get(ctx context.Context, id, viewerID uint) (*ReviewResponse, error) {
	review, err := s.ReviewRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrReviewNotFound)
	}
	list, err := s.present([]model.Review{*review}, viewerID)
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List userID 为查询参数原文，必须是数字
func (s *ReviewService) List(ctx context.Context, rawUserID, ordering string, viewerID uint, page, limit int) ([]ReviewResponse, int64, error) {
	userID, err := strconv.ParseUint(strings.TrimSpace(rawUserID), 10, 32)
	if err != nil {
		return nil, 0, util.FieldError("user_id", "Invalid user_id")
	}
	order, ok := repository.ReviewOrder(ordering)
	if !ok {
		return nil, 0, util.FieldError("ordering", fmt.Sprintf("Invalid ordering %q", ordering))
	}
	rows, total, err := s.ReviewRepo.List(uint(userID), order, page, limit)
	if err != nil {
		return nil, 0, err
	}
	list, err := s.present(rows, viewerID)
	return list, total, err
}

// Vote 赞同与反对可以来回切换
func (s *ReviewService) Vote(ctx context.Context, id, userID uint, agree bool) (*ReviewResponse, error) {
	if _, err := s.ReviewRepo.FindByID(id); err != nil {
		return nil, notFoundAs(err, util.ErrReviewNotFound)
	}
	if err := s.ReviewRepo.Vote(id, userID, agree); err != nil {
		return nil, err
	}
	monitoring.Votes.WithLabelValues("review", "applied").Inc()
	return s.Get(ctx, id, userID)
}

// VoteReply id 为评价 id，评价还没有回复时返回 NotFound
func (s *ReviewService) VoteReply(ctx context.Context, id, userID uint, agree bool) (*ReviewResponse, error) {
	if _, err := s.ReviewRepo.FindByID(id); err != nil {
		return nil, notFoundAs(err, util.ErrReviewNotFound)
	}
	reply, err := s.ReviewRepo.FindReplyByReview(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrReplyNotFound)
	}
	if err := s.ReviewRepo.VoteReply(reply.ID, userID, agree); err != nil {
		return nil, err
	}
	monitoring.Votes.WithLabelValues("reply", "applied").Inc()
	return s.Get(ctx, id, userID)
}

// Reply 只有被评价人可以回复，且只能回复一次
func (s *ReviewService) Reply(ctx context.Context, id, userID uint, text string) (*ReviewResponse, error) {
	review, err := s.ReviewRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrReviewNotFound)
	}
	if review.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if blank(text) {
		return nil, util.FieldError("text", util.FieldRequired)
	}
	if _, err := s.ReviewRepo.FindReplyByReview(id); err == nil {
		return nil, util.ErrAlreadyReplied
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	reply := &model.Reply{Text: strings.TrimSpace(text), UserID: userID, ReviewID: review.ID}
	if err := s.ReviewRepo.CreateReply(reply); err != nil {
		return nil, duplicateAs(err, util.ErrAlreadyReplied)
	}
	return s.Get(ctx, id, userID)
}

func (s *ReviewService) present(rows []model.Review, viewerID uint) ([]ReviewResponse, error) {
	ids := make([]uint, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	counts, err := s.ReviewRepo.VoteCounts(ids)
	if err != nil {
		return nil, err
	}
	mine, err := s.ReviewRepo.UserVotes(viewerID, ids)
	if err != nil {
		return nil, err
	}
	replies, err := s.ReviewRepo.RepliesFor(ids)
	if err != nil {
		return nil, err
	}
	replyIDs := make([]uint, 0, len(replies))
	for _, r := range replies {
		replyIDs = append(replyIDs, r.ID)
	}
	replyCounts, err := s.ReviewRepo.ReplyVoteCounts(replyIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ReviewResponse, len(rows))
	for i := range rows {
		r := &rows[i]
		agree, voted := mine[r.ID]
		resp := ReviewResponse{
			ID:           r.ID,
			Text:         r.Text,
			Ethics:       r.Ethics,
			Trust:        r.Trust,
			Accuracy:     r.Accuracy,
			Fairness:     r.Fairness,
			Contribution: r.Contribution,
			Expertise:    r.Expertise,
			Rating:       r.Rating,
			User:         r.UserID,
			Author:       summarize(&r.Author, s.Storage),
			AgreedNum:    counts[r.ID].Agreed,
			DisagreedNum: counts[r.ID].Disagreed,
			IsAgreed:     voted && agree,
			IsDisagreed:  voted && !agree,
			CreatedAt:    r.CreatedAt,
		}
		if reply, ok := replies[r.ID]; ok {
			resp.Reply = &ReplyResponse{
				ID:           reply.ID,
				Text:         reply.Text,
				User:         reply.UserID,
				Review:       reply.ReviewID,
				AgreedNum:    replyCounts[reply.ID].Agreed,
				DisagreedNum: replyCounts[reply.ID].Disagreed,
				CreatedAt:    reply.CreatedAt,
			}
		}
		out[i] = resp
	}
	return out, nil
}
