package repository

import (
	"newsreel_backend/internal/model"

	"gorm.io/gorm"
)

type PhoneVerificationRepository struct {
	DB *gorm.DB
}

func NewPhoneVerificationRepository(db *gorm.DB) *PhoneVerificationRepository {
	return &PhoneVerificationRepository{DB: db}
}

func (r *PhoneVerificationRepository) WithTx(tx *gorm.DB) *PhoneVerificationRepository {
	return &PhoneVerificationRepository{DB: tx}
}

func (r *PhoneVerificationRepository) Create(v *model.PhoneVerification) error {
	return r.DB.Create(v).Error
}

// Latest 用户最近一次发出的、与 code 相同的验证码
func (r *PhoneVerificationRepository) Latest(userID uint, code string) (*model.PhoneVerification, error) {
	var v model.PhoneVerification
	err := r.DB.Where("user_id = ? AND code = ?", userID, code).
		Order("created_at DESC, id DESC").
		First(&v).Error
	return &v, err
}

func (r *PhoneVerificationRepository) DeleteByUser(userID uint) error {
	return r.DB.Where("user_id = ?", userID).Delete(&model.PhoneVerification{}).Error
}
