package controller

import (
	"newsreel_backend/internal/service"
	"newsreel_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
	PageSize      int
}

func NewReviewController(reviewService *service.ReviewService, pageSize int) *ReviewController {
	return &ReviewController{ReviewService: reviewService, PageSize: pageSize}
}

// ListReviews godoc
// @Summary 用户收到的评价
// @Tags 评价
// @Produce  json
// @Param   user_id query int true "被评价用户ID"
// @Param   ordering query string false "排序字段，可加 - 前缀倒序"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]service.ReviewResponse}} "成功"
// @Failure 400 {object} util.Response "参数无效"
// @Router /api/v1/reviews [get]
func (c *ReviewController) ListReviews(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx, c.PageSize)
	reviews, total, err := c.ReviewService.List(ctx.Request.Context(), ctx.Query("user_id"), ctx.Query("ordering"), util.CurrentUserID(ctx), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Page(ctx, reviews, total, page, limit)
}

// CreateReview godoc
// @Summary 评价用户
// @Description 不能评价自己，同一用户只能评价一次
// @Tags 评价
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ReviewRequest true "六项评分与内容"
// @Success 201 {object} util.Response{data=service.ReviewResponse} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/v1/reviews [post]
func (c *ReviewController) CreateReview(ctx *gin.Context) {
	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	review, err := c.ReviewService.Create(ctx.Request.Context(), util.CurrentUserID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, review)
}

// GetReview godoc
// @Summary 评价详情
// @Tags 评价
// @Produce  json
// @Param   id path int true "评价ID"
// @Success 200 {object} util.Response{data=service.ReviewResponse} "成功"
// @Failure 404 {object} util.Response "评价不存在"
// @Router /api/v1/reviews/{id} [get]
func (c *ReviewController) GetReview(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	review, err := c.ReviewService.Get(ctx.Request.Context(), id, util.CurrentUserID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}

// DeleteReview godoc
// @Summary 删除评价
// @Tags 评价
// @Security ApiKeyAuth
// @Param   id path int true "评价ID"
// @Success 204 "已删除"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/v1/reviews/{id} [delete]
func (c *ReviewController) DeleteReview(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ReviewService.Delete(ctx.Request.Context(), id, util.CurrentUserID(ctx)); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// VoteReview godoc
// @Summary 赞同或反对评价
// @Description 再次提交相同选项会撤销
// @Tags 评价
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "评价ID"
// @Param   body body service.VoteRequest true "agree"
// @Success 200 {object} util.Response{data=service.ReviewResponse} "成功"
// @Router /api/v1/reviews/{id}/vote [post]
func (c *ReviewController) VoteReview(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.VoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	review, err := c.ReviewService.Vote(ctx.Request.Context(), id, util.CurrentUserID(ctx), *req.Agree)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}

// Reply godoc
// @Summary 回复评价
// @Description 只有被评价的用户可以回复，且只能回复一次
// @Tags 评价
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "评价ID"
// @Param   body body service.ReplyRequest true "回复内容"
// @Success 201 {object} util.Response{data=service.ReviewResponse} "创建成功"
// @Failure 400 {object} util.Response "已回复过"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/v1/reviews/{id}/replies [post]
func (c *ReviewController) Reply(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ReplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	review, err := c.ReviewService.Reply(ctx.Request.Context(), id, util.CurrentUserID(ctx), req.Text)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, review)
}

// VoteReply godoc
// @Summary 赞同或反对回复
// @Tags 评价
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "评价ID"
// @Param   body body service.VoteRequest true "agree"
// @Success 200 {object} util.Response{data=service.ReviewResponse} "成功"
// @Failure 404 {object} util.Response "回复不存在"
// @Router /api/v1/reviews/{id}/replies/vote [post]
func (c *ReviewController) VoteReply(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.VoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	review, err := c.ReviewService.VoteReply(ctx.Request.Context(), id, util.CurrentUserID(ctx), *req.Agree)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}
