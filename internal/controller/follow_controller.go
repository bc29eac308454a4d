package controller

import (
	"newsreel_backend/internal/service"
	"newsreel_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FollowController struct {
	FollowService *service.FollowService
}

func NewFollowController(followService *service.FollowService) *FollowController {
	return &FollowController{FollowService: followService}
}

// Follow godoc
// @Summary 关注用户
// @Tags 关注
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "被关注用户ID"
// @Success 201 {object} util.Response{data=service.FollowResponse} "成功"
// @Failure 400 {object} util.Response "不能关注自己或已关注"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/v1/followings/{id} [post]
func (c *FollowController) Follow(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	follow, err := c.FollowService.Follow(ctx.Request.Context(), util.CurrentUserID(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, follow)
}

// Unfollow godoc
// @Summary 取消关注
// @Tags 关注
// @Security ApiKeyAuth
// @Param   id path int true "被关注用户ID"
// @Success 204 "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/v1/followings/{id} [delete]
func (c *FollowController) Unfollow(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.FollowService.Unfollow(ctx.Request.Context(), util.CurrentUserID(ctx), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.NoContent(ctx)
}
