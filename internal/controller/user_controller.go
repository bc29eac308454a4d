package controller

import (
	"newsreel_backend/internal/service"
	"newsreel_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserController 用户资料与主页帖子
type UserController struct {
	UserService *service.UserService
	PostService *service.PostService
	PageSize    int
}

func NewUserController(userService *service.UserService, postService *service.PostService, pageSize int) *UserController {
	return &UserController{
		UserService: userService,
		PostService: postService,
		PageSize:    pageSize,
	}
}

// GetUser godoc
// @Summary 获取用户资料
// @Description 登录用户额外返回是否评价过、是否已关注
// @Tags 用户
// @Produce  json
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=service.UserProfile} "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/v1/users/{id} [get]
func (c *UserController) GetUser(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	profile, err := c.UserService.Get(ctx.Request.Context(), id, util.CurrentUserID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// UpdateUser godoc
// @Summary 修改用户资料
// @Description 只能修改自己的资料；上传新头像会替换缩略图
// @Tags 用户
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   username formData string false "用户名"
// @Param   bio formData string false "简介"
// @Param   facebook formData string false "Facebook"
// @Param   twitter formData string false "Twitter"
// @Param   linkedin formData string false "LinkedIn"
// @Param   avatar formData file false "头像"
// @Success 200 {object} util.Response{data=service.UserProfile} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "无权限"
// @Failure 409 {object} util.Response "用户名已被占用"
// @Router /api/v1/users/{id} [put]
func (c *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	avatar, err := optionalFile(ctx, "avatar")
	if err != nil {
		util.BindError(ctx, err)
		return
	}

	profile, err := c.UserService.Update(ctx.Request.Context(), id, util.CurrentUserID(ctx), req, avatar)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// GetUserPosts godoc
// @Summary 用户发布的帖子
// @Tags 用户
// @Produce  json
// @Param   id path int true "用户ID"
// @Param   type query string false "只看这些类型，逗号分隔"
// @Param   exclude query string false "排除这些类型，逗号分隔"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]service.PostResponse}} "成功"
// @Failure 400 {object} util.Response "类型无效"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/v1/users/{id}/posts [get]
func (c *UserController) GetUserPosts(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	page, limit := util.ParsePage(ctx, c.PageSize)

	posts, total, err := c.PostService.UserPosts(ctx.Request.Context(), id, util.CurrentUserID(ctx), ctx.Query("type"), ctx.Query("exclude"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Page(ctx, posts, total, page, limit)
}
