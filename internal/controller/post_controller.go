package controller

import (
	"newsreel_backend/internal/service"
	"newsreel_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// PostController 帖子的发布、浏览、点赞、投票与评论列表
type PostController struct {
	PostService    *service.PostService
	PollService    *service.PollService
	CommentService *service.CommentService
	PageSize       int
}

func NewPostController(postService *service.PostService, pollService *service.PollService, commentService *service.CommentService, pageSize int) *PostController {
	return &PostController{
		PostService:    postService,
		PollService:    pollService,
		CommentService: commentService,
		PageSize:       pageSize,
	}
}

// postKey 路径参数可以是 id 也可以是 slug
func (c *PostController) postKey(ctx *gin.Context) (uint, bool) {
	id, err := c.PostService.ResolveKey(ctx.Param("key"))
	if err != nil {
		util.HandleError(ctx, err)
		return 0, false
	}
	return id, true
}

// Feed godoc
// @Summary 信息流
// @Description 按点赞数、发布时间倒序
// @Tags 帖子
// @Produce  json
// @Param   category query string false "分类"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]service.PostResponse}} "成功"
// @Router /api/v1/feed [get]
func (c *PostController) Feed(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx, c.PageSize)
	posts, total, err := c.PostService.Feed(ctx.Request.Context(), util.CurrentUserID(ctx), ctx.Query("category"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Page(ctx, posts, total, page, limit)
}

// CreatePSA godoc
// @Summary 发布公告
// @Tags 帖子
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.PSARequest true "公告内容，支持 markdown"
// @Success 201 {object} util.Response{data=service.PostResponse} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/v1/psas [post]
func (c *PostController) CreatePSA(ctx *gin.Context) {
	var req service.PSARequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	post, err := c.PostService.CreatePSA(ctx.Request.Context(), util.CurrentUserID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, post)
}

// CreatePoll godoc
// @Summary 发布投票
// @Tags 帖子
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.PollRequest true "问题与 2 到 5 个选项"
// @Success 201 {object} util.Response{data=service.PostResponse} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/v1/polls [post]
func (c *PostController) CreatePoll(ctx *gin.Context) {
	var req service.PollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	post, err := c.PostService.CreatePoll(ctx.Request.Context(), util.CurrentUserID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, post)
}

// CreateMeme godoc
// @Summary 发布梗图
// @Tags 帖子
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   title formData string false "标题"
// @Param   category formData string true "分类"
// @Param   image formData file true "图片"
// @Success 201 {object} util.Response{data=service.PostResponse} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/v1/memes [post]
func (c *PostController) CreateMeme(ctx *gin.Context) {
	var req service.MemeRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	image, err := optionalFile(ctx, "image")
	if err != nil {
		util.BindError(ctx, err)
		return
	}
	post, err := c.PostService.CreateMeme(ctx.Request.Context(), util.CurrentUserID(ctx), req, image)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, post)
}

// CreateRepost godoc
// @Summary 转发推文
// @Tags 帖子
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.RepostRequest true "推文链接"
// @Success 201 {object} util.Response{data=service.PostResponse} "创建成功"
// @Failure 400 {object} util.Response "链接无效"
// @Router /api/v1/reposts [post]
func (c *PostController) CreateRepost(ctx *gin.Context) {
	var req service.RepostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	post, err := c.PostService.CreateRepost(ctx.Request.Context(), util.CurrentUserID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, post)
}

// CreateArticle godoc
// @Summary 发布文章
// @Description 图片与视频链接二选一
// @Tags 帖子
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   title formData string true "标题"
// @Param   category formData string false "分类"
// @Param   slug formData string false "slug"
// @Param   text formData string false "正文"
// @Param   video formData string false "YouTube 或 Vimeo 链接"
// @Param   image formData file false "封面图"
// @Success 201 {object} util.Response{data=service.PostResponse} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/v1/articles [post]
func (c *PostController) CreateArticle(ctx *gin.Context) {
	var req service.ArticleRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	image, err := optionalFile(ctx, "image")
	if err != nil {
		util.BindError(ctx, err)
		return
	}
	post, err := c.PostService.CreateArticle(ctx.Request.Context(), util.CurrentUserID(ctx), req, image)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, post)
}

// GetPost godoc
// @Summary 帖子详情
// @Description key 为数字时按 id 查找，否则按 slug
// @Tags 帖子
// @Produce  json
// @Param   key path string true "帖子 id 或 slug"
// @Success 200 {object} util.Response{data=service.PostResponse} "成功"
// @Failure 404 {object} util.Response "帖子不存在"
// @Router /api/v1/posts/{key} [get]
func (c *PostController) GetPost(ctx *gin.Context) {
	key := ctx.Param("key")
	var (
		post *service.PostResponse
		err  error
	)
	if id, ok := util.ParseID(key); ok {
		post, err = c.PostService.GetPost(ctx.Request.Context(), id, util.CurrentUserID(ctx))
	} else {
		post, err = c.PostService.GetPostBySlug(ctx.Request.Context(), key, util.CurrentUserID(ctx))
	}
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, post)
}

// UpdatePost godoc
// @Summary 编辑帖子
// @Description 只有作者可以编辑，仅公告与文章可编辑
// @Tags 帖子
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "帖子 id 或 slug"
// @Param   category formData string false "分类"
// @Param   text formData string false "正文"
// @Param   title formData string false "标题"
// @Param   video formData string false "视频链接"
// @Param   image formData file false "封面图"
// @Success 200 {object} util.Response{data=service.PostResponse} "成功"
// @Failure 400 {object} util.Response "该类型不可编辑"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/v1/posts/{key} [put]
func (c *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := c.postKey(ctx)
	if !ok {
		return
	}
	var req service.UpdatePostRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	image, err := optionalFile(ctx, "image")
	if err != nil {
		util.BindError(ctx, err)
		return
	}
	post, err := c.PostService.UpdatePost(ctx.Request.Context(), id, util.CurrentUserID(ctx), req, image)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, post)
}

// DeletePost godoc
// @Summary 删除帖子
// @Tags 帖子
// @Security ApiKeyAuth
// @Param   key path string true "帖子 id 或 slug"
// @Success 204 "已删除"
// @Failure 403 {object} util.Response "无权限"
// @Failure 404 {object} util.Response "帖子不存在"
// @Router /api/v1/posts/{key} [delete]
func (c *PostController) DeletePost(ctx *gin.Context) {
	id, ok := c.postKey(ctx)
	if !ok {
		return
	}
	if err := c.PostService.DeletePost(ctx.Request.Context(), id, util.CurrentUserID(ctx)); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.NoContent(ctx)
}

// Upvote godoc
// @Summary 点赞
// @Description 重复点赞不会重复计数
// @Tags 帖子
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "帖子 id 或 slug"
// @Success 200 {object} util.Response{data=service.PostResponse} "成功"
// @Failure 404 {object} util.Response "帖子不存在"
// @Router /api/v1/posts/{key}/upvote [post]
func (c *PostController) Upvote(ctx *gin.Context) {
	id, ok := c.postKey(ctx)
	if !ok {
		return
	}
	post, err := c.PostService.Upvote(ctx.Request.Context(), id, util.CurrentUserID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, post)
}

// Related godoc
// @Summary 相关文章
// @Description 同作者的其他文章，最多 3 篇
// @Tags 帖子
// @Produce  json
// @Param   key path string true "帖子 id 或 slug"
// @Success 200 {object} util.Response{data=[]service.PostResponse} "成功"
// @Router /api/v1/posts/{key}/related [get]
func (c *PostController) Related(ctx *gin.Context) {
	id, ok := c.postKey(ctx)
	if !ok {
		return
	}
	posts, err := c.PostService.RelatedPosts(ctx.Request.Context(), id, util.CurrentUserID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, posts)
}

// Comments godoc
// @Summary 帖子评论
// @Tags 帖子
// @Produce  json
// @Param   key path string true "帖子 id 或 slug"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]service.CommentResponse}} "成功"
// @Router /api/v1/posts/{key}/comments [get]
func (c *PostController) Comments(ctx *gin.Context) {
	id, ok := c.postKey(ctx)
	if !ok {
		return
	}
	page, limit := util.ParsePage(ctx, c.PageSize)
	comments, total, err := c.CommentService.ListComments(ctx.Request.Context(), id, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Page(ctx, comments, total, page, limit)
}

// VoteChoice godoc
// @Summary 投票
// @Description 每个用户在一个投票里只能选一次
// @Tags 帖子
// @Produce  json
// @Security ApiKeyAuth
// @Param   key path string true "帖子 id 或 slug"
// @Param   choice_id path int true "选项ID"
// @Success 200 {object} util.Response{data=service.PostResponse} "成功"
// @Failure 400 {object} util.Response "已投过其他选项"
// @Failure 404 {object} util.Response "选项不存在"
// @Router /api/v1/posts/{key}/choices/{choice_id} [post]
func (c *PostController) VoteChoice(ctx *gin.Context) {
	id, ok := c.postKey(ctx)
	if !ok {
		return
	}
	choiceID, ok := pathID(ctx, "choice_id")
	if !ok {
		return
	}
	post, err := c.PollService.VotePollChoice(ctx.Request.Context(), id, choiceID, util.CurrentUserID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, post)
}
