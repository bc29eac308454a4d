package controller

import (
	"newsreel_backend/internal/service"
	"newsreel_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// Signup godoc
// @Summary 注册
// @Description multipart 表单注册，头像可选；用户名、邮箱、手机号均不可重复
// @Tags 认证
// @Accept  multipart/form-data
// @Produce  json
// @Param   username formData string true "用户名"
// @Param   email formData string true "邮箱"
// @Param   phone_number formData string true "手机号（E.164）"
// @Param   password formData string true "密码，至少 8 位"
// @Param   avatar formData file false "头像"
// @Success 201 {object} util.Response{data=service.TokenPair} "注册成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "字段已被占用"
// @Router /api/v1/signup [post]
func (c *AuthController) Signup(ctx *gin.Context) {
	var req service.SignupRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	avatar, err := optionalFile(ctx, "avatar")
	if err != nil {
		util.BindError(ctx, err)
		return
	}

	tokens, err := c.AuthService.Signup(ctx.Request.Context(), req, avatar)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, tokens)
}

// Login godoc
// @Summary 登录
// @Description 手机号加密码登录，返回 access 与 refresh 令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.LoginRequest true "登录信息"
// @Success 200 {object} util.Response{data=service.TokenPair} "登录成功"
// @Failure 400 {object} util.Response "手机号或密码错误"
// @Router /api/v1/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	tokens, err := c.AuthService.Login(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tokens)
}

// Refresh godoc
// @Summary 刷新令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.RefreshRequest true "refresh 令牌"
// @Success 200 {object} util.Response{data=service.AccessToken} "成功"
// @Failure 400 {object} util.Response "令牌无效或已注销"
// @Router /api/v1/token/refresh [post]
func (c *AuthController) Refresh(ctx *gin.Context) {
	var req service.RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	access, err := c.AuthService.Refresh(ctx.Request.Context(), req.Refresh)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, access)
}

// Logout godoc
// @Summary 注销
// @Description 当前 access 令牌与提交的 refresh 令牌一起加入黑名单
// @Tags 认证
// @Accept  json
// @Security ApiKeyAuth
// @Param   body body service.LogoutRequest true "refresh 令牌"
// @Success 204 "已注销"
// @Failure 400 {object} util.Response "令牌无效"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/v1/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	var req service.LogoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	if err := c.AuthService.Logout(ctx.Request.Context(), util.GetUserFromContext(ctx), req.Refresh); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// SendPhoneVerification godoc
// @Summary 发送手机验证码
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 204 "已发送"
// @Failure 502 {object} util.Response "短信服务不可用"
// @Router /api/v1/phone/verification [post]
func (c *AuthController) SendPhoneVerification(ctx *gin.Context) {
	if err := c.AuthService.SendPhoneVerification(ctx.Request.Context(), util.CurrentUserID(ctx)); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// ConfirmPhoneVerification godoc
// @Summary 校验手机验证码
// @Tags 认证
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.PhoneCodeRequest true "验证码"
// @Success 204 "已验证"
// @Failure 400 {object} util.Response "验证码错误或已过期"
// @Router /api/v1/phone/verification/confirm [post]
func (c *AuthController) ConfirmPhoneVerification(ctx *gin.Context) {
	var req service.PhoneCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	if err := c.AuthService.ConfirmPhoneVerification(ctx.Request.Context(), util.CurrentUserID(ctx), req.Code); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// RequestPasswordReset godoc
// @Summary 申请重置密码
// @Description 向邮箱发送带重置令牌的链接
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.PasswordResetRequest true "邮箱"
// @Success 204 "已发送"
// @Failure 400 {object} util.Response "邮箱不存在"
// @Router /api/v1/password/reset [post]
func (c *AuthController) RequestPasswordReset(ctx *gin.Context) {
	var req service.PasswordResetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	if err := c.AuthService.RequestPasswordReset(ctx.Request.Context(), req.Email); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// ConfirmPasswordReset godoc
// @Summary 确认重置密码
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.PasswordResetConfirmRequest true "令牌与新密码"
// @Success 204 "已重置"
// @Failure 400 {object} util.Response "令牌无效"
// @Router /api/v1/password/reset/confirm [post]
func (c *AuthController) ConfirmPasswordReset(ctx *gin.Context) {
	var req service.PasswordResetConfirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	if err := c.AuthService.ConfirmPasswordReset(ctx.Request.Context(), req.Token, req.Password); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.NoContent(ctx)
}
