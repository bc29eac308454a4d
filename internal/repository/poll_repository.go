package repository

import (
	"newsreel_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PollRepository struct {
	DB *gorm.DB
}

func NewPollRepository(db *gorm.DB) *PollRepository {
	return &PollRepository{DB: db}
}

func (r *PollRepository) WithTx(tx *gorm.DB) *PollRepository {
	return &PollRepository{DB: tx}
}

// FindChoice 按投票帖 id 与选项 id 查询，选项不属于该投票时返回 ErrRecordNotFound
func (r *PollRepository) FindChoice(pollID, choiceID uint) (*model.Choice, error) {
	var choice model.Choice
	err := r.DB.Where("id = ? AND poll_id = ?", choiceID, pollID).First(&choice).Error
	return &choice, err
}

// VotedChoice 用户在该投票中选过的选项，未投票返回 0
func (r *PollRepository) VotedChoice(pollID, userID uint) (uint, error) {
	var votes []model.ChoiceVote
	err := r.DB.Where("poll_id = ? AND user_id = ?", pollID, userID).Limit(1).Find(&votes).Error
	if err != nil || len(votes) == 0 {
		return 0, err
	}
	return votes[0].ChoiceID, nil
}

// VotedChoices 批量查询用户在多个投票中的选择，pollID -> choiceID
func (r *PollRepository) VotedChoices(userID uint, pollIDs []uint) (map[uint]uint, error) {
	out := make(map[uint]uint)
	if userID == 0 || len(pollIDs) == 0 {
		return out, nil
	}
	var votes []model.ChoiceVote
	if err := r.DB.Where("user_id = ? AND poll_id IN ?", userID, pollIDs).Find(&votes).Error; err != nil {
		return nil, err
	}
	for _, v := range votes {
		out[v.PollID] = v.ChoiceID
	}
	return out, nil
}

// AddVote 插入投票记录；(poll_id, user_id) 冲突时返回 false
func (r *PollRepository) AddVote(pollID, choiceID, userID uint) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ChoiceVote{PollID: pollID, ChoiceID: choiceID, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PollRepository) BumpChoice(choiceID uint, delta int) error {
	return bumpCounter(r.DB, &model.Choice{}, keyID, choiceID, ColVotes, delta)
}

func (r *PollRepository) BumpPoll(pollID uint, delta int) error {
	return bumpCounter(r.DB, &model.Poll{}, keyPostID, pollID, ColVotes, delta)
}
