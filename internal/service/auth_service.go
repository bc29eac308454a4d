package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"mime/multipart"
	"newsreel_backend/internal/config"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/util"
	"newsreel_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	DB        *gorm.DB
	UserRepo  *repository.UserRepository
	PhoneRepo *repository.PhoneVerificationRepository
	Blacklist *repository.TokenBlacklistRepository
	Storage   *StorageService
	SMS       SMSSender
	Mailer    Mailer
	Cfg       *config.Config
}

func NewAuthService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	phoneRepo *repository.PhoneVerificationRepository,
	blacklist *repository.TokenBlacklistRepository,
	storage *StorageService,
	sms SMSSender,
	mailer Mailer,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		DB:        db,
		UserRepo:  userRepo,
		PhoneRepo: phoneRepo,
		Blacklist: blacklist,
		Storage:   storage,
		SMS:       sms,
		Mailer:    mailer,
		Cfg:       cfg,
	}
}

type SignupRequest struct {
	Username    string `form:"username" json:"username" binding:"required,max=150"`
	Email       string `form:"email" json:"email" binding:"required,email,max=254"`
	PhoneNumber string `form:"phone_number" json:"phone_number" binding:"required,e164"`
	Password    string `form:"password" json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type PhoneCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// TokenPair 登录与注册的返回值
type TokenPair struct {
	ID      uint   `json:"id"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AccessToken struct {
	Access string `json:"access"`
}

func (s *AuthService) issue(user *model.User) (*TokenPair, error) {
	access, _, err := util.GenerateJWT(user.ID, user.Username, util.TokenTypeAccess, s.Cfg.JWT.Secret, s.Cfg.JWT.AccessExpireTime)
	if err != nil {
		return nil, err
	}
	refresh, _, err := util.GenerateJWT(user.ID, user.Username, util.TokenTypeRefresh, s.Cfg.JWT.Secret, s.Cfg.JWT.RefreshExpireTime)
	if err != nil {
		return nil, err
	}
	return &TokenPair{ID: user.ID, Access: access, Refresh: refresh}, nil
}

// Signup 用户名、邮箱、手机号任一重复都返回字段级冲突
func (s *AuthService) Signup(ctx context.Context, req SignupRequest, avatar *multipart.FileHeader) (*TokenPair, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if len(req.Password) < 8 {
		return nil, util.FieldError("password", "Ensure this field has at least 8 characters.")
	}

	fields := make(map[string]string)
	for _, f := range []struct{ column, value, message string }{
		{"username", req.Username, "A user with that username already exists."},
		{"email", req.Email, "user with this email already exists."},
		{"phone_number", req.PhoneNumber, "user with this phone number already exists."},
	} {
		taken, err := s.UserRepo.Taken(f.column, f.value, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			fields[f.column] = f.message
		}
	}
	if len(fields) > 0 {
		return nil, &util.AppError{Kind: util.KindConflict, Message: "User already exists.", Fields: fields}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    string(hashed),
	}
	if avatar != nil {
		key, err := s.Storage.SaveImage(ctx, util.DirAvatars, avatar, "avatar")
		if err != nil {
			return nil, err
		}
		user.Avatar = key
		user.AvatarThumbnail = key
	}

	if err := s.UserRepo.Create(user); err != nil {
		if user.Avatar != "" {
			if err := s.Storage.Delete(context.Background(), user.Avatar); err != nil {
				logger.Log.Warn("failed to delete avatar", zap.String("key", user.Avatar), zap.Error(err))
			}
		}
		return nil, duplicateAs(err, util.NewConflictError("", "User already exists."))
	}
	logger.Log.Info("user signed up", zap.Uint("user_id", user.ID))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	user, err := s.UserRepo.FindByPhone(strings.TrimSpace(req.PhoneNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if err := s.UserRepo.TouchLastLogin(user.ID); err != nil {
		logger.Log.Warn("failed to update last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return s.issue(user)
}

// parseUnrevoked 解析令牌并检查黑名单
func (s *AuthService) parseUnrevoked(ctx context.Context, token, tokenType string, invalid *util.AppError) (*util.Claims, error) {
	claims, err := util.ParseTyped(token, s.Cfg.JWT.Secret, tokenType)
	if err != nil {
		return nil, invalid
	}
	blocked, err := s.Blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, util.ErrTokenBlacklisted
	}
	return claims, nil
}

// Refresh 用 refresh token 换新的 access token
func (s *AuthService) Refresh(ctx context.Context, refresh string) (*AccessToken, error) {
	claims, err := s.parseUnrevoked(ctx, refresh, util.TokenTypeRefresh, util.ErrInvalidToken)
	if err != nil {
		return nil, err
	}
	exists, err := s.UserRepo.Exists(claims.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrInvalidToken
	}
	access, _, err := util.GenerateJWT(claims.UserID, claims.Username, util.TokenTypeAccess, s.Cfg.JWT.Secret, s.Cfg.JWT.AccessExpireTime)
	if err != nil {
		return nil, err
	}
	return &AccessToken{Access: access}, nil
}

// Logout access 与 refresh 都加入黑名单，直到各自过期
func (s *AuthService) Logout(ctx context.Context, access *util.Claims, refresh string) error {
	claims, err := util.ParseTyped(refresh, s.Cfg.JWT.Secret, util.TokenTypeRefresh)
	if err != nil {
		return util.ErrInvalidToken
	}
	if access != nil && claims.UserID != access.UserID {
		return util.ErrInvalidToken
	}
	if err := s.Blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	if access != nil && access.ExpiresAt != nil {
		return s.Blacklist.Add(ctx, access.ID, access.ExpiresAt.Time)
	}
	return nil
}

// generateCode 定长数字验证码
func generateCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// SendPhoneVerification 生成验证码并通过短信发送
func (s *AuthService) SendPhoneVerification(ctx context.Context, userID uint) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return notFoundAs(err, util.ErrUserNotFound)
	}
	code, err := generateCode(util.PhoneCodeLength)
	if err != nil {
		return err
	}
	if err := s.PhoneRepo.Create(&model.PhoneVerification{Code: code, UserID: user.ID}); err != nil {
		return err
	}
	body := fmt.Sprintf("Your NewsReel verification code is: %s", code)
	if err := s.SMS.Send(ctx, user.PhoneNumber, body); err != nil {
		logger.Log.Warn("sms delivery failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return util.NewExternalError("Failed to send verification code", err)
	}
	return nil
}

func (s *AuthService) ConfirmPhoneVerification(ctx context.Context, userID uint, code string) error {
	v, err := s.PhoneRepo.Latest(userID, strings.TrimSpace(code))
	if err != nil {
		return notFoundAs(err, util.ErrInvalidCode)
	}
	if time.Since(v.CreatedAt) > s.Cfg.PhoneCodeLifetime() {
		return util.ErrCodeExpired
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.UserRepo.WithTx(tx).MarkPhoneVerified(userID); err != nil {
			return err
		}
		return s.PhoneRepo.WithTx(tx).DeleteByUser(userID)
	})
}

// RequestPasswordReset 邮件中的链接携带一次性重置令牌
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.UserRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return notFoundAs(err, util.ErrEmailNotFound)
	}
	token, _, err := util.GenerateJWT(user.ID, user.Username, util.TokenTypeReset, s.Cfg.JWT.Secret, s.Cfg.ResetTokenLifetime())
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password/%s/confirm/", strings.TrimRight(s.Cfg.App.FrontendDomain, "/"), token)
	if err := s.Mailer.SendPasswordReset(ctx, user.Email, user.Username, link); err != nil {
		return util.NewExternalError("Failed to send password reset email", err)
	}
	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	claims, err := s.parseUnrevoked(ctx, token, util.TokenTypeReset, util.ErrInvalidResetToken)
	if err != nil {
		if errors.Is(err, util.ErrTokenBlacklisted) {
			return util.ErrInvalidResetToken
		}
		return err
	}
	if len(password) < 8 {
		return util.FieldError("password", "Ensure this field has at least 8 characters.")
	}
	exists, err := s.UserRepo.Exists(claims.UserID)
	if err != nil {
		return err
	}
	if !exists {
		return util.ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.UserRepo.UpdatePassword(claims.UserID, string(hashed)); err != nil {
		return err
	}
	return s.Blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}

// CheckAccess 中间件使用：校验 access token 且未注销
func (s *AuthService) CheckAccess(ctx context.Context, token string) (*util.Claims, error) {
	return s.parseUnrevoked(ctx, token, util.TokenTypeAccess, util.NewValidationError("Given token not valid for any token type"))
}
