package repository

import (
	"newsreel_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// WithTx 事务内使用的副本
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

// FindByIDs 批量查询，返回 id -> 用户
func (r *UserRepository) FindByIDs(ids []uint) (map[uint]*model.User, error) {
	out := make(map[uint]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []model.User
	if err := r.DB.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByPhone(phone string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("phone_number = ?", phone).First(&user).Error
	return &user, err
}

// Taken 检查唯一字段是否已被其他用户占用，excludeID 为 0 时不排除
func (r *UserRepository) Taken(column, value string, excludeID uint) (bool, error) {
	var count int64
	q := r.DB.Model(&model.User{}).Where(column+" = ?", value)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UpdateProfile 只更新资料字段，计数字段不在此列
func (r *UserRepository) UpdateProfile(id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepository) UpdatePassword(id uint, hash string) error {
	return r.DB.Model(&model.User{}).Where("id = ?", id).Update("password", hash).Error
}

func (r *UserRepository) MarkPhoneVerified(id uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", id).Update("is_verified_phone_number", true).Error
}

func (r *UserRepository) TouchLastLogin(id uint) error {
	return r.DB.Model(&model.User{}).Where("id = ?", id).UpdateColumn("last_login", time.Now()).Error
}

// Bump 用户计数增减
func (r *UserRepository) Bump(id uint, column string, delta int) error {
	return bumpCounter(r.DB, &model.User{}, keyID, id, column, delta)
}

// SetRatingStats 写入被评价人的各维度平均分
func (r *UserRepository) SetRatingStats(id uint, s *RatingStats) error {
	return r.DB.Model(&model.User{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"rating":       model.Round2(s.Rating),
		"ethics":       model.Round2(s.Ethics),
		"trust":        model.Round2(s.Trust),
		"accuracy":     model.Round2(s.Accuracy),
		"fairness":     model.Round2(s.Fairness),
		"contribution": model.Round2(s.Contribution),
		"expertise":    model.Round2(s.Expertise),
	}).Error
}
