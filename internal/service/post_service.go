package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/util"
	"newsreel_backend/pkg/logger"
	"newsreel_backend/pkg/monitoring"
	"newsreel_backend/pkg/tracing"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// notifyTimeout 推送在请求之外执行，单独限时
const notifyTimeout = 15 * time.Second

// VideoResolver 解析文章视频链接
type VideoResolver interface {
	Resolve(ctx context.Context, rawURL string) (*VideoInfo, error)
}

type PostService struct {
	DB          *gorm.DB
	PostRepo    *repository.PostRepository
	PollRepo    *repository.PollRepository
	UserRepo    *repository.UserRepository
	CommentRepo *repository.CommentRepository
	ReportRepo  *repository.ReportRepository
	Storage     *StorageService
	Videos      VideoResolver
	Notifier    Notifier

	pending sync.WaitGroup
}

func NewPostService(
	db *gorm.DB,
	postRepo *repository.PostRepository,
	pollRepo *repository.PollRepository,
	userRepo *repository.UserRepository,
	commentRepo *repository.CommentRepository,
	reportRepo *repository.ReportRepository,
	storage *StorageService,
	videos VideoResolver,
	notifier Notifier,
) *PostService {
	return &PostService{
		DB:          db,
		PostRepo:    postRepo,
		PollRepo:    pollRepo,
		UserRepo:    userRepo,
		CommentRepo: commentRepo,
		ReportRepo:  reportRepo,
		Storage:     storage,
		Videos:      videos,
		Notifier:    notifier,
	}
}

type PSARequest struct {
	Text     string `json:"text" binding:"required"`
	Category string `json:"category" binding:"max=30"`
	Slug     string `json:"slug" binding:"max=70"`
}

type PollRequest struct {
	Question    string   `json:"question" binding:"required,max=255"`
	Category    string   `json:"category" binding:"required,max=30"`
	ChoicesText []string `json:"choices_text" binding:"required,min=2,max=5,dive,required,max=200"`
}

// MemeRequest multipart 表单，图片单独传入
type MemeRequest struct {
	Title    *string `form:"title" binding:"omitempty,max=100"`
	Category string  `form:"category" binding:"required,max=30"`
}

type RepostRequest struct {
	URL      string `json:"url" binding:"required,max=200,twitterurl"`
	Category string `json:"category" binding:"required,max=30"`
}

type ArticleRequest struct {
	Title    string  `form:"title" binding:"required,max=100"`
	Category string  `form:"category" binding:"max=30"`
	Slug     string  `form:"slug" binding:"max=70"`
	Video    *string `form:"video" binding:"omitempty,max=200,videourl"`
	Text     *string `form:"text"`
}

// UpdatePostRequest 只对 psa 与 article 生效，字段均可选
type UpdatePostRequest struct {
	Category *string `form:"category" json:"category" binding:"omitempty,max=30"`
	Text     *string `form:"text" json:"text"`
	Title    *string `form:"title" json:"title" binding:"omitempty,max=100"`
	Video    *string `form:"video" json:"video" binding:"omitempty,max=200,videourl"`
}

// ChoiceView 投票选项；用户投过票之后才带百分比
type ChoiceView struct {
	ID         uint   `json:"id"`
	ChoiceText string `json:"choice_text"`
	Votes      *int   `json:"votes,omitempty"`
	IsVoted    *bool  `json:"is_voted,omitempty"`
}

// PostResponse 扁平化的帖子表示，类型字段按 type 出现
type PostResponse struct {
	ID        uint           `json:"id"`
	Type      model.PostType `json:"type"`
	Category  string         `json:"category"`
	Slug      *string        `json:"slug"`
	Comments  int            `json:"comments"`
	Upvotes   int            `json:"upvotes"`
	IsUpvoted bool           `json:"is_upvoted"`
	Author    AuthorSummary  `json:"author"`
	CreatedAt time.Time      `json:"created_at"`

	Text      *string      `json:"text,omitempty"`
	TextHTML  *string      `json:"text_html,omitempty"`
	Question  *string      `json:"question,omitempty"`
	Votes     *int         `json:"votes,omitempty"`
	Choices   []ChoiceView `json:"choices,omitempty"`
	Title     *string      `json:"title,omitempty"`
	Image     *string      `json:"image,omitempty"`
	URL       *string      `json:"url,omitempty"`
	Video     *string      `json:"video,omitempty"`
	VideoID   *string      `json:"video_id,omitempty"`
	Thumbnail *string      `json:"thumbnail,omitempty"`
	VideoType *string      `json:"video_type,omitempty"`
}

func (s *PostService) CreatePSA(ctx context.Context, authorID uint, req PSARequest) (*PostResponse, error) {
	if err := requireFields("text", req.Text, "category", req.Category, "slug", req.Slug); err != nil {
		return nil, err
	}
	content := &model.PSA{Text: req.Text}
	return s.create(ctx, authorID, req.Category, content, func(_ *model.User, id uint) string {
		return util.TitleSlug(req.Slug, id)
	})
}

func (s *PostService) CreatePoll(ctx context.Context, authorID uint, req PollRequest) (*PostResponse, error) {
	if err := requireFields("question", req.Question, "category", req.Category); err != nil {
		return nil, err
	}
	if n := len(req.ChoicesText); n < 2 || n > 5 {
		return nil, util.FieldError("choices_text", "A poll needs between 2 and 5 choices.")
	}
	poll := &model.Poll{Question: req.Question}
	for _, text := range req.ChoicesText {
		if blank(text) {
			return nil, util.FieldError("choices_text", util.FieldRequired)
		}
		poll.Choices = append(poll.Choices, model.Choice{ChoiceText: strings.TrimSpace(text)})
	}
	return s.create(ctx, authorID, req.Category, poll, func(_ *model.User, id uint) string {
		return util.QuestionSlug(req.Question, id)
	})
}

func (s *PostService) CreateMeme(ctx context.Context, authorID uint, req MemeRequest, image *multipart.FileHeader) (*PostResponse, error) {
	if err := requireFields("category", req.Category); err != nil {
		return nil, err
	}
	if image == nil {
		return nil, util.FieldError("image", "No file was submitted.")
	}
	key, err := s.Storage.SaveImage(ctx, util.DirMemes, image, "image")
	if err != nil {
		return nil, err
	}

	meme := &model.Meme{Image: key, Title: optional(req.Title)}
	resp, err := s.create(ctx, authorID, req.Category, meme, func(author *model.User, id uint) string {
		return util.AuthorSlug(author.Username, string(model.PostTypeMeme), id)
	})
	if err != nil {
		s.discard(key)
		return nil, err
	}
	return resp, nil
}

func (s *PostService) CreateRepost(ctx context.Context, authorID uint, req RepostRequest) (*PostResponse, error) {
	if err := requireFields("url", req.URL, "category", req.Category); err != nil {
		return nil, err
	}
	if !util.IsTwitterURL(req.URL) {
		return nil, util.FieldError("url", "Twitter url is allowed")
	}
	repost := &model.Repost{URL: req.URL}
	return s.create(ctx, authorID, req.Category, repost, func(author *model.User, id uint) string {
		return util.AuthorSlug(author.Username, string(model.PostTypeRepost), id)
	})
}

func (s *PostService) CreateArticle(ctx context.Context, authorID uint, req ArticleRequest, image *multipart.FileHeader) (*PostResponse, error) {
	if err := requireFields("title", req.Title, "category", req.Category, "slug", req.Slug); err != nil {
		return nil, err
	}
	video := strings.TrimSpace(util.Deref(req.Video))
	if video != "" && !util.IsSupportedVideoURL(video) {
		return nil, util.FieldError("video", "Youtube or vimeo video are supported")
	}
	if image != nil && video != "" {
		return nil, util.FieldError("error", "Include image or video")
	}
	if image == nil && video == "" {
		return nil, util.FieldError("error", "Image or video is required")
	}
	if video == "" && blankPtr(req.Text) {
		return nil, util.FieldError("text", util.FieldRequired)
	}

	article := &model.Article{Title: req.Title, Text: optional(req.Text)}
	if video != "" {
		info, err := s.Videos.Resolve(ctx, video)
		if err != nil {
			return nil, err
		}
		setVideo(article, video, info)
	} else {
		key, err := s.Storage.SaveImage(ctx, util.DirArticles, image, "image")
		if err != nil {
			return nil, err
		}
		article.Image = &key
	}

	resp, err := s.create(ctx, authorID, req.Category, article, func(_ *model.User, id uint) string {
		return util.TitleSlug(req.Slug, id)
	})
	if err != nil {
		if article.Image != nil {
			s.discard(*article.Image)
		}
		return nil, err
	}
	return resp, nil
}

func setVideo(a *model.Article, link string, info *VideoInfo) {
	a.Video = util.StringPtr(link)
	a.VideoID = util.StringPtr(info.ID)
	a.Thumbnail = util.StringPtr(info.Thumbnail)
	a.VideoType = util.StringPtr(info.Type)
}

// create 帖子、类型内容、slug 与作者计数在同一事务内写入，提交后异步推送
func (s *PostService) create(ctx context.Context, authorID uint, category string, content model.PostContent, slugOf func(*model.User, uint) string) (resp *PostResponse, err error) {
	ctx, span := tracing.Start(ctx, "post.create", attribute.String("post.type", string(content.Kind())))
	defer func() { tracing.End(span, err) }()

	author, err := s.UserRepo.FindByID(authorID)
	if err != nil {
		return nil, notFoundAs(err, util.ErrUserNotFound)
	}

	post := &model.Post{AuthorID: author.ID, Category: strings.TrimSpace(category), Content: content}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		posts := s.PostRepo.WithTx(tx)
		if err := posts.Create(post); err != nil {
			return err
		}
		slug := slugOf(author, post.ID)
		if err := posts.SetSlug(post.ID, slug); err != nil {
			return err
		}
		post.Slug = &slug
		return s.UserRepo.WithTx(tx).Bump(author.ID, repository.ColPosts, 1)
	})
	if err != nil {
		return nil, err
	}

	monitoring.PostsCreated.WithLabelValues(string(post.Type)).Inc()
	logger.Log.Info("post created",
		zap.Uint("post_id", post.ID),
		zap.String("type", string(post.Type)),
		zap.Uint("author_id", author.ID))
	s.dispatch(author, post.ID)

	return s.GetPost(ctx, post.ID, authorID)
}

// dispatch 推送失败只记日志，不影响发帖
func (s *PostService) dispatch(author *model.User, postID uint) {
	if s.Notifier == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Warn("notification panic", zap.Uint("post_id", postID), zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		s.Notifier.NotifyNewPost(ctx, author, postID)
	}()
}

// Wait 等待已发出的推送结束，用于优雅退出
func (s *PostService) Wait() {
	s.pending.Wait()
}

// discard 删除已上传但未落库的对象
func (s *PostService) discard(key string) {
	if err := s.Storage.Delete(context.Background(), key); err != nil {
		logger.Log.Warn("failed to delete image", zap.String("key", key), zap.Error(err))
	}
}

func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*PostResponse, error) {
	post, err := s.PostRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrPostNotFound)
	}
	return s.presentOne(post, viewerID)
}

func (s *PostService) GetPostBySlug(ctx context.Context, slug string, viewerID uint) (*PostResponse, error) {
	post, err := s.PostRepo.FindBySlug(slug)
	if err != nil {
		return nil, notFoundAs(err, util.ErrPostNotFound)
	}
	return s.presentOne(post, viewerID)
}

// ResolveKey 路径参数为数字时按 id，否则按 slug
func (s *PostService) ResolveKey(key string) (uint, error) {
	if id, ok := util.ParseID(key); ok {
		return id, nil
	}
	post, err := s.PostRepo.FindBySlug(key)
	if err != nil {
		return 0, notFoundAs(err, util.ErrPostNotFound)
	}
	return post.ID, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id, actorID uint, req UpdatePostRequest, image *multipart.FileHeader) (resp *PostResponse, err error) {
	ctx, span := tracing.Start(ctx, "post.update", attribute.Int("post.id", int(id)))
	defer func() { tracing.End(span, err) }()

	post, err := s.PostRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrPostNotFound)
	}
	if post.AuthorID != actorID {
		return nil, util.ErrPermissionDenied
	}
	if req.Category != nil && blank(*req.Category) {
		return nil, util.FieldError("category", util.FieldRequired)
	}

	var stale, uploaded string
	switch c := post.Content.(type) {
	case *model.PSA:
		if image != nil || req.Video != nil {
			return nil, util.ErrPostNotEditable
		}
		if req.Text != nil {
			if blank(*req.Text) {
				return nil, util.FieldError("text", util.FieldRequired)
			}
			c.Text = *req.Text
		}
	case *model.Article:
		stale, uploaded, err = s.applyArticleUpdate(ctx, c, req, image)
		if err != nil {
			return nil, err
		}
	default:
		return nil, util.ErrPostNotEditable
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		posts := s.PostRepo.WithTx(tx)
		if req.Category != nil {
			if err := posts.UpdateCategory(post.ID, strings.TrimSpace(*req.Category)); err != nil {
				return err
			}
		}
		return posts.SaveContent(post.Content)
	})
	if err != nil {
		if uploaded != "" {
			s.discard(uploaded)
		}
		return nil, err
	}
	if stale != "" {
		s.discard(stale)
	}
	return s.GetPost(ctx, post.ID, actorID)
}

// applyArticleUpdate 缺省字段沿用已保存的图片、视频与正文；返回需要清理的旧图片和新上传的图片
func (s *PostService) applyArticleUpdate(ctx context.Context, a *model.Article, req UpdatePostRequest, image *multipart.FileHeader) (stale, uploaded string, err error) {
	video := strings.TrimSpace(util.Deref(req.Video))
	if video != "" && !util.IsSupportedVideoURL(video) {
		return "", "", util.FieldError("video", "Youtube or vimeo video are supported")
	}
	if image != nil && video != "" {
		return "", "", util.FieldError("error", "Include image or video")
	}
	if video == "" && image == nil && a.Image == nil && a.Video == nil {
		return "", "", util.FieldError("error", "Image or video is required")
	}
	if req.Title != nil {
		if blank(*req.Title) {
			return "", "", util.FieldError("title", util.FieldRequired)
		}
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Text != nil {
		a.Text = optional(req.Text)
	}

	hasVideo := video != "" || (image == nil && a.Video != nil)
	if !hasVideo && blankPtr(a.Text) {
		return "", "", util.FieldError("text", util.FieldRequired)
	}

	switch {
	case video != "":
		info, err := s.Videos.Resolve(ctx, video)
		if err != nil {
			return "", "", err
		}
		if a.Image != nil {
			stale = *a.Image
			a.Image = nil
		}
		setVideo(a, video, info)
	case image != nil:
		key, err := s.Storage.SaveImage(ctx, util.DirArticles, image, "image")
		if err != nil {
			return "", "", err
		}
		if a.Image != nil {
			stale = *a.Image
		}
		a.Image = &key
		uploaded = key
		a.ClearVideo()
	}
	return stale, uploaded, nil
}

// DeletePost 先删除评论并回退评论者计数，再删除帖子及其附属数据
func (s *PostService) DeletePost(ctx context.Context, id, actorID uint) (err error) {
	ctx, span := tracing.Start(ctx, "post.delete", attribute.Int("post.id", int(id)))
	defer func() { tracing.End(span, err) }()

	post, err := s.PostRepo.FindByID(id)
	if err != nil {
		return notFoundAs(err, util.ErrPostNotFound)
	}
	if post.AuthorID != actorID {
		return util.ErrPermissionDenied
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		comments := s.CommentRepo.WithTx(tx)
		users := s.UserRepo.WithTx(tx)

		rows, err := comments.FindByPost(post.ID)
		if err != nil {
			return err
		}
		perAuthor := make(map[uint]int)
		ids := make([]uint, 0, len(rows))
		for _, c := range rows {
			ids = append(ids, c.ID)
			if c.AuthorID != post.AuthorID {
				perAuthor[c.AuthorID]++
			}
		}
		for authorID, n := range perAuthor {
			if err := users.Bump(authorID, repository.ColComments, -n); err != nil {
				return err
			}
		}
		if err := comments.DeleteByIDs(ids); err != nil {
			return err
		}
		if err := s.ReportRepo.WithTx(tx).DeleteByPost(post.ID); err != nil {
			return err
		}
		if err := s.PostRepo.WithTx(tx).DeleteWithChildren(post); err != nil {
			return err
		}
		return users.Bump(post.AuthorID, repository.ColPosts, -1)
	})
	if err != nil {
		return err
	}

	switch c := post.Content.(type) {
	case *model.Meme:
		s.discard(c.Image)
	case *model.Article:
		if c.Image != nil {
			s.discard(*c.Image)
		}
	}
	logger.Log.Info("post deleted", zap.Uint("post_id", post.ID), zap.Uint("author_id", actorID))
	return nil
}

func (s *PostService) Feed(ctx context.Context, viewerID uint, category string, page, limit int) ([]PostResponse, int64, error) {
	posts, total, err := s.PostRepo.Feed(strings.TrimSpace(category), page, limit)
	if err != nil {
		return nil, 0, err
	}
	list, err := s.present(posts, viewerID)
	return list, total, err
}

// parseTypes 逗号分隔的帖子类型
func parseTypes(field, raw string) ([]model.PostType, error) {
	var out []model.PostType
	for _, part := range util.SplitCSV(raw) {
		t := model.PostType(strings.ToLower(part))
		if !t.Valid() {
			return nil, util.FieldError(field, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", part))
		}
		out = append(out, t)
	}
	return out, nil
}

// UserPosts 用户主页帖子列表，postType 与 exclude 均为逗号分隔
func (s *PostService) UserPosts(ctx context.Context, userID, viewerID uint, postType, exclude string, page, limit int) ([]PostResponse, int64, error) {
	exists, err := s.UserRepo.Exists(userID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, util.ErrUserNotFound
	}
	types, err := parseTypes("type", postType)
	if err != nil {
		return nil, 0, err
	}
	excluded, err := parseTypes("exclude", exclude)
	if err != nil {
		return nil, 0, err
	}

	posts, total, err := s.PostRepo.ByAuthor(repository.PostFilter{
		AuthorID:     userID,
		Types:        types,
		ExcludeTypes: excluded,
	}, page, limit)
	if err != nil {
		return nil, 0, err
	}
	list, err := s.present(posts, viewerID)
	return list, total, err
}

// RelatedPosts 同作者的其他文章，最多 3 篇
func (s *PostService) RelatedPosts(ctx context.Context, id, viewerID uint) ([]PostResponse, error) {
	post, err := s.PostRepo.FindPlain(id)
	if err != nil {
		return nil, notFoundAs(err, util.ErrPostNotFound)
	}
	posts, err := s.PostRepo.RelatedArticles(post.AuthorID, post.ID, util.RelatedPostsMax)
	if err != nil {
		return nil, err
	}
	return s.present(posts, viewerID)
}

// Upvote 重复点赞不报错，只在新增记录时计数
func (s *PostService) Upvote(ctx context.Context, id, userID uint) (resp *PostResponse, err error) {
	ctx, span := tracing.Start(ctx, "post.upvote", attribute.Int("post.id", int(id)))
	defer func() { tracing.End(span, err) }()

	if _, err = s.PostRepo.FindPlain(id); err != nil {
		return nil, notFoundAs(err, util.ErrPostNotFound)
	}

	applied := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		posts := s.PostRepo.WithTx(tx)
		inserted, err := posts.AddUpvoter(id, userID)
		if err != nil || !inserted {
			return err
		}
		applied = true
		return posts.Bump(id, repository.ColUpvotes, 1)
	})
	if err != nil {
		return nil, err
	}
	result := "noop"
	if applied {
		result = "applied"
	}
	monitoring.Votes.WithLabelValues("upvote", result).Inc()
	return s.GetPost(ctx, id, userID)
}

func (s *PostService) presentOne(post *model.Post, viewerID uint) (*PostResponse, error) {
	list, err := s.present([]model.Post{*post}, viewerID)
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// present 批量查询点赞与投票状态后组装响应
func (s *PostService) present(posts []model.Post, viewerID uint) ([]PostResponse, error) {
	ids := make([]uint, 0, len(posts))
	var pollIDs []uint
	for i := range posts {
		ids = append(ids, posts[i].ID)
		if posts[i].Type == model.PostTypePoll {
			pollIDs = append(pollIDs, posts[i].ID)
		}
	}
	upvoted, err := s.PostRepo.UpvotedBy(viewerID, ids)
	if err != nil {
		return nil, err
	}
	voted, err := s.PollRepo.VotedChoices(viewerID, pollIDs)
	if err != nil {
		return nil, err
	}

	out := make([]PostResponse, len(posts))
	for i := range posts {
		out[i] = s.represent(&posts[i], upvoted[posts[i].ID], voted[posts[i].ID])
	}
	return out, nil
}

func (s *PostService) represent(p *model.Post, upvoted bool, votedChoice uint) PostResponse {
	resp := PostResponse{
		ID:        p.ID,
		Type:      p.Type,
		Category:  p.Category,
		Slug:      p.Slug,
		Comments:  p.Comments,
		Upvotes:   p.Upvotes,
		IsUpvoted: upvoted,
		Author:    summarize(&p.Author, s.Storage),
		CreatedAt: p.CreatedAt,
	}

	switch c := p.Content.(type) {
	case *model.PSA:
		resp.Text = util.StringPtr(c.Text)
		resp.TextHTML = util.StringPtr(util.RenderMarkdown(c.Text))
	case *model.Poll:
		votes := c.Votes
		resp.Question = util.StringPtr(c.Question)
		resp.Votes = &votes
		var voted map[uint]bool
		if votedChoice != 0 {
			voted = map[uint]bool{votedChoice: true}
		}
		resp.Choices = BuildChoiceViews(c.Choices, c.Votes, voted)
	case *model.Meme:
		resp.Title = c.Title
		resp.Image = util.StringPtr(s.imageURL(c.Image))
	case *model.Repost:
		resp.URL = util.StringPtr(c.URL)
	case *model.Article:
		resp.Title = util.StringPtr(c.Title)
		resp.Text = c.Text
		if c.Text != nil {
			resp.TextHTML = util.StringPtr(util.RenderMarkdown(*c.Text))
		}
		if c.Image != nil {
			resp.Image = util.StringPtr(s.imageURL(*c.Image))
		}
		resp.Video = c.Video
		resp.VideoID = c.VideoID
		resp.Thumbnail = c.Thumbnail
		resp.VideoType = c.VideoType
	}
	return resp
}

func (s *PostService) imageURL(key string) string {
	if s.Storage == nil {
		return key
	}
	return s.Storage.GetURL(key)
}
