package service

import (
	"context"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/pkg/logger"
	"newsreel_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReconcileService 按源数据重算全部计数字段
type ReconcileService struct {
	DB *gorm.DB
}

func NewReconcileService(db *gorm.DB) *ReconcileService {
	return &ReconcileService{DB: db}
}

// ReconcileReport 每张表被修正的行数
type ReconcileReport struct {
	Users   int `json:"users" yaml:"users"`
	Posts   int `json:"posts" yaml:"posts"`
	Choices int `json:"choices" yaml:"choices"`
	Polls   int `json:"polls" yaml:"polls"`
}

func (r ReconcileReport) Total() int {
	return r.Users + r.Posts + r.Choices + r.Polls
}

type countRow struct {
	K uint
	N int
}

func (s *ReconcileService) countBy(q *gorm.DB, keyExpr string) (map[uint]int, error) {
	var rows []countRow
	if err := q.Select(keyExpr + " AS k, COUNT(*) AS n").Group(keyExpr).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(rows))
	for _, row := range rows {
		out[row.K] = row.N
	}
	return out, nil
}

// Run 在一个事务中完成，计数与源数据一致的行不会被写入
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if report.Users, err = s.reconcileUsers(tx); err != nil {
			return err
		}
		if report.Posts, err = s.reconcilePosts(tx); err != nil {
			return err
		}
		if report.Choices, err = s.reconcileChoices(tx); err != nil {
			return err
		}
		report.Polls, err = s.reconcilePolls(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	monitoring.CounterCorrections.WithLabelValues("users").Add(float64(report.Users))
	monitoring.CounterCorrections.WithLabelValues("posts").Add(float64(report.Posts))
	monitoring.CounterCorrections.WithLabelValues("choices").Add(float64(report.Choices))
	monitoring.CounterCorrections.WithLabelValues("polls").Add(float64(report.Polls))
	return report, nil
}

type ratingRow struct {
	UserID uint
	repository.RatingStats
}

func (s *ReconcileService) reconcileUsers(tx *gorm.DB) (int, error) {
	posts, err := s.countBy(tx.Model(&model.Post{}), "author_id")
	if err != nil {
		return 0, err
	}
	// 在自己帖子下的评论不计入
	comments, err := s.countBy(tx.Table("comments").
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("comments.author_id <> posts.author_id"), "comments.author_id")
	if err != nil {
		return 0, err
	}
	subscribers, err := s.countBy(tx.Model(&model.UserFollowing{}), "following_user_id")
	if err != nil {
		return 0, err
	}
	ownReviews, err := s.countBy(tx.Model(&model.Review{}), "user_id")
	if err != nil {
		return 0, err
	}
	reviews, err := s.countBy(tx.Model(&model.Review{}), "author_id")
	if err != nil {
		return 0, err
	}

	var ratingRows []ratingRow
	err = tx.Model(&model.Review{}).
		Select(`user_id, COUNT(*) AS total,
			AVG(rating) AS rating, AVG(ethics) AS ethics, AVG(trust) AS trust,
			AVG(accuracy) AS accuracy, AVG(fairness) AS fairness,
			AVG(contribution) AS contribution, AVG(expertise) AS expertise`).
		Group("user_id").
		Scan(&ratingRows).Error
	if err != nil {
		return 0, err
	}
	ratings := make(map[uint]repository.RatingStats, len(ratingRows))
	for _, r := range ratingRows {
		ratings[r.UserID] = r.RatingStats
	}

	fixed := 0
	var batch []model.User
	res := tx.Model(&model.User{}).FindInBatches(&batch, 200, func(btx *gorm.DB, _ int) error {
		for i := range batch {
			u := &batch[i]
			st := ratings[u.ID]
			want := map[string]interface{}{
				repository.ColPosts:       posts[u.ID],
				repository.ColComments:    comments[u.ID],
				repository.ColSubscribers: subscribers[u.ID],
				repository.ColOwnReviews:  ownReviews[u.ID],
				repository.ColReviews:     reviews[u.ID],
				"rating":                  model.Round2(st.Rating),
				"ethics":                  model.Round2(st.Ethics),
				"trust":                   model.Round2(st.Trust),
				"accuracy":                model.Round2(st.Accuracy),
				"fairness":                model.Round2(st.Fairness),
				"contribution":            model.Round2(st.Contribution),
				"expertise":               model.Round2(st.Expertise),
			}
			if userMatches(u, want) {
				continue
			}
			if err := tx.Model(&model.User{}).Where("id = ?", u.ID).UpdateColumns(want).Error; err != nil {
				return err
			}
			logger.Log.Info("user counters corrected", zap.Uint("user_id", u.ID))
			fixed++
		}
		return nil
	})
	return fixed, res.Error
}

func userMatches(u *model.User, want map[string]interface{}) bool {
	ints := map[string]int{
		repository.ColPosts:       u.Posts,
		repository.ColComments:    u.Comments,
		repository.ColSubscribers: u.Subscribers,
		repository.ColOwnReviews:  u.OwnReviews,
		repository.ColReviews:     u.Reviews,
	}
	for col, have := range ints {
		if want[col].(int) != have {
			return false
		}
	}
	floats := map[string]float64{
		"rating":       u.Rating,
		"ethics":       u.Ethics,
		"trust":        u.Trust,
		"accuracy":     u.Accuracy,
		"fairness":     u.Fairness,
		"contribution": u.Contribution,
		"expertise":    u.Expertise,
	}
	for col, have := range floats {
		if model.Round2(have) != want[col].(float64) {
			return false
		}
	}
	return true
}

func (s *ReconcileService) reconcilePosts(tx *gorm.DB) (int, error) {
	comments, err := s.countBy(tx.Model(&model.Comment{}), "post_id")
	if err != nil {
		return 0, err
	}
	upvotes, err := s.countBy(tx.Model(&model.PostUpvote{}), "post_id")
	if err != nil {
		return 0, err
	}

	fixed := 0
	var batch []model.Post
	res := tx.Model(&model.Post{}).FindInBatches(&batch, 500, func(btx *gorm.DB, _ int) error {
		for _, p := range batch {
			if p.Comments == comments[p.ID] && p.Upvotes == upvotes[p.ID] {
				continue
			}
			err := tx.Model(&model.Post{}).Where("id = ?", p.ID).UpdateColumns(map[string]interface{}{
				repository.ColComments: comments[p.ID],
				repository.ColUpvotes:  upvotes[p.ID],
			}).Error
			if err != nil {
				return err
			}
			fixed++
		}
		return nil
	})
	return fixed, res.Error
}

func (s *ReconcileService) reconcileChoices(tx *gorm.DB) (int, error) {
	votes, err := s.countBy(tx.Model(&model.ChoiceVote{}), "choice_id")
	if err != nil {
		return 0, err
	}
	var choices []model.Choice
	if err := tx.Find(&choices).Error; err != nil {
		return 0, err
	}
	fixed := 0
	for _, c := range choices {
		if c.Votes == votes[c.ID] {
			continue
		}
		if err := tx.Model(&model.Choice{}).Where("id = ?", c.ID).UpdateColumn(repository.ColVotes, votes[c.ID]).Error; err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

func (s *ReconcileService) reconcilePolls(tx *gorm.DB) (int, error) {
	votes, err := s.countBy(tx.Model(&model.ChoiceVote{}), "poll_id")
	if err != nil {
		return 0, err
	}
	var polls []model.Poll
	if err := tx.Find(&polls).Error; err != nil {
		return 0, err
	}
	fixed := 0
	for _, p := range polls {
		if p.Votes == votes[p.PostID] {
			continue
		}
		if err := tx.Model(&model.Poll{}).Where("post_id = ?", p.PostID).UpdateColumn(repository.ColVotes, votes[p.PostID]).Error; err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

// RunEvery 周期性执行，ctx 取消后返回
func (s *ReconcileService) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.Run(ctx)
			if err != nil {
				logger.Log.Error("counter reconcile failed", zap.Error(err))
				continue
			}
			logger.Log.Info("counter reconcile finished",
				zap.Int("users", report.Users),
				zap.Int("posts", report.Posts),
				zap.Int("choices", report.Choices),
				zap.Int("polls", report.Polls))
		}
	}
}
