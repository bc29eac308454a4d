package service

import (
	"context"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/util"
	"newsreel_backend/pkg/monitoring"
	"newsreel_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type PollService struct {
	DB       *gorm.DB
	PostRepo *repository.PostRepository
	PollRepo *repository.PollRepository
	Posts    *PostService
}

func NewPollService(db *gorm.DB, postRepo *repository.PostRepository, pollRepo *repository.PollRepository, posts *PostService) *PollService {
	return &PollService{DB: db, PostRepo: postRepo, PollRepo: pollRepo, Posts: posts}
}

// VotePollChoice 每个用户在一个投票中只能选一个选项；重复选择同一项不做任何修改
func (s *PollService) VotePollChoice(ctx context.Context, postID, choiceID, userID uint) (resp *PostResponse, err error) {
	ctx, span := tracing.Start(ctx, "poll.vote",
		attribute.Int("post.id", int(postID)),
		attribute.Int("choice.id", int(choiceID)))
	defer func() { tracing.End(span, err) }()

	post, err := s.PostRepo.FindPlain(postID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrPostNotFound)
	}
	if post.Type != model.PostTypePoll {
		return nil, util.ErrChoiceNotFound
	}

	result := "applied"
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		polls := s.PollRepo.WithTx(tx)
		choice, err := polls.FindChoice(post.ID, choiceID)
		if err != nil {
			return notFoundAs(err, util.ErrChoiceNotFound)
		}
		inserted, err := polls.AddVote(post.ID, choice.ID, userID)
		if err != nil {
			return err
		}
		if !inserted {
			prev, err := polls.VotedChoice(post.ID, userID)
			if err != nil {
				return err
			}
			if prev == choice.ID {
				result = "noop"
				return nil
			}
			result = "rejected"
			return util.ErrAlreadyVotedInPoll
		}
		if err := polls.BumpChoice(choice.ID, 1); err != nil {
			return err
		}
		return polls.BumpPoll(post.ID, 1)
	})
	if err != nil {
		if result == "rejected" {
			monitoring.Votes.WithLabelValues("choice", result).Inc()
		}
		return nil, err
	}
	monitoring.Votes.WithLabelValues("choice", result).Inc()
	return s.Posts.GetPost(ctx, post.ID, userID)
}

// BuildChoiceViews 用户未投票时只返回选项文本。
// 投票后每项显示截断后的百分比；合计不为 100 时给第一个最大项加 1。
func BuildChoiceViews(choices []model.Choice, total int, voted map[uint]bool) []ChoiceView {
	views := make([]ChoiceView, len(choices))
	if len(voted) == 0 {
		for i, c := range choices {
			views[i] = ChoiceView{ID: c.ID, ChoiceText: c.ChoiceText}
		}
		return views
	}

	sum, maxPercent, maxIdx := 0, 0, -1
	for i, c := range choices {
		percent := 0
		if total > 0 {
			percent = int(float64(c.Votes) / float64(total) * 100)
		}
		isVoted := voted[c.ID]
		views[i] = ChoiceView{ID: c.ID, ChoiceText: c.ChoiceText, Votes: &percent, IsVoted: &isVoted}
		if percent > maxPercent {
			maxPercent = percent
			maxIdx = i
		}
		sum += percent
	}
	if sum != 100 && maxIdx >= 0 {
		*views[maxIdx].Votes++
	}
	return views
}
