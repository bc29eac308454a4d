package controller

import (
	"newsreel_backend/internal/service"
	"newsreel_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CommentController struct {
	CommentService *service.CommentService
	PageSize       int
}

func NewCommentController(commentService *service.CommentService, pageSize int) *CommentController {
	return &CommentController{CommentService: commentService, PageSize: pageSize}
}

// CreateComment godoc
// @Summary 发表评论
// @Description parent_comment 必须属于同一个帖子
// @Tags 评论
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CommentRequest true "评论内容"
// @Success 201 {object} util.Response{data=service.CommentResponse} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/v1/comments [post]
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req service.CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	comment, err := c.CommentService.CreateComment(ctx.Request.Context(), util.CurrentUserID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, comment)
}

// DeleteComment godoc
// @Summary 删除评论
// @Description 连同所有回复一起删除
// @Tags 评论
// @Security ApiKeyAuth
// @Param   id path int true "评论ID"
// @Success 204 "已删除"
// @Failure 403 {object} util.Response "无权限"
// @Failure 404 {object} util.Response "评论不存在"
// @Router /api/v1/comments/{id} [delete]
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.CommentService.DeleteComment(ctx.Request.Context(), id, util.CurrentUserID(ctx)); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// Replies godoc
// @Summary 评论的回复
// @Tags 评论
// @Produce  json
// @Param   id path int true "评论ID"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]service.CommentResponse}} "成功"
// @Failure 404 {object} util.Response "评论不存在"
// @Router /api/v1/comments/{id}/replies [get]
func (c *CommentController) Replies(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	page, limit := util.ParsePage(ctx, c.PageSize)
	replies, total, err := c.CommentService.ListReplies(ctx.Request.Context(), id, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Page(ctx, replies, total, page, limit)
}
