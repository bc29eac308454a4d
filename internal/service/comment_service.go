package service

import (
	"context"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/util"
	"newsreel_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CommentService struct {
	DB          *gorm.DB
	CommentRepo *repository.CommentRepository
	PostRepo    *repository.PostRepository
	UserRepo    *repository.UserRepository
	Storage     *StorageService
}

func NewCommentService(db *gorm.DB, commentRepo *repository.CommentRepository, postRepo *repository.PostRepository, userRepo *repository.UserRepository, storage *StorageService) *CommentService {
	return &CommentService{
		DB:          db,
		CommentRepo: commentRepo,
		PostRepo:    postRepo,
		UserRepo:    userRepo,
		Storage:     storage,
	}
}

type CommentRequest struct {
	Text          string `json:"text" binding:"required"`
	Post          uint   `json:"post" binding:"required"`
	ParentComment *uint  `json:"parent_comment"`
}

type CommentResponse struct {
	ID            uint          `json:"id"`
	Text          string        `json:"text"`
	Post          uint          `json:"post"`
	ParentComment *uint         `json:"parent_comment"`
	Author        AuthorSummary `json:"author"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (s *CommentService) toResponse(c *model.Comment) CommentResponse {
	return CommentResponse{
		ID:            c.ID,
		Text:          c.Text,
		Post:          c.PostID,
		ParentComment: c.ParentCommentID,
		Author:        summarize(&c.Author, s.Storage),
		CreatedAt:     c.CreatedAt,
	}
}

// CreateComment 帖子评论数加一；评论者不是帖子作者时，评论者的评论数也加一
func (s *CommentService) CreateComment(ctx context.Context, authorID uint, req CommentRequest) (*CommentResponse, error) {
	text := util.SanitizeText(req.Text)
	if text == "" {
		return nil, util.FieldError("text", util.FieldRequired)
	}
	post, err := s.PostRepo.FindPlain(req.Post)
	if err != nil {
		return nil, notFoundAs(err, util.FieldError("post", "Invalid pk - object does not exist."))
	}
	if req.ParentComment != nil {
		parent, err := s.CommentRepo.FindByID(*req.ParentComment)
		if err != nil {
			return nil, notFoundAs(err, util.FieldError("parent_comment", "Invalid pk - object does not exist."))
		}
		if parent.PostID != post.ID {
			return nil, util.FieldError("parent_comment", "Parent comment belongs to another post")
		}
	}

	comment := &model.Comment{
		Text:            text,
		PostID:          post.ID,
		AuthorID:        authorID,
		ParentCommentID: req.ParentComment,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.CommentRepo.WithTx(tx).Create(comment); err != nil {
			return err
		}
		if err := s.PostRepo.WithTx(tx).Bump(post.ID, repository.ColComments, 1); err != nil {
			return err
		}
		if authorID == post.AuthorID {
			return nil
		}
		return s.UserRepo.WithTx(tx).Bump(authorID, repository.ColComments, 1)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.CommentRepo.FindByID(comment.ID)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(created)
	return &resp, nil
}

// DeleteComment 连同全部回复一起删除，每条被删评论都回退计数
func (s *CommentService) DeleteComment(ctx context.Context, id, actorID uint) error {
	comment, err := s.CommentRepo.FindByID(id)
	if err != nil {
		return notFoundAs(err, util.ErrCommentNotFound)
	}
	if comment.AuthorID != actorID {
		return util.ErrPermissionDenied
	}
	post, err := s.PostRepo.FindPlain(comment.PostID)
	if err != nil {
		return notFoundAs(err, util.ErrPostNotFound)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		comments := s.CommentRepo.WithTx(tx)
		tree, err := comments.Subtree(comment.ID)
		if err != nil {
			return err
		}

		ids := make([]uint, 0, len(tree))
		perAuthor := make(map[uint]int)
		for _, c := range tree {
			ids = append(ids, c.ID)
			if c.AuthorID != post.AuthorID {
				perAuthor[c.AuthorID]++
			}
		}
		if err := comments.DeleteByIDs(ids); err != nil {
			return err
		}
		if err := s.PostRepo.WithTx(tx).Bump(post.ID, repository.ColComments, -len(ids)); err != nil {
			return err
		}
		users := s.UserRepo.WithTx(tx)
		for uid, n := range perAuthor {
			if err := users.Bump(uid, repository.ColComments, -n); err != nil {
				return err
			}
		}
		logger.Log.Info("comment deleted",
			zap.Uint("comment_id", comment.ID),
			zap.Int("removed", len(ids)))
		return nil
	})
}

// ListComments 帖子下的一级评论，按 id 升序
func (s *CommentService) ListComments(ctx context.Context, postID uint, page, limit int) ([]CommentResponse, int64, error) {
	if _, err := s.PostRepo.FindPlain(postID); err != nil {
		return nil, 0, notFoundAs(err, util.ErrPostNotFound)
	}
	rows, total, err := s.CommentRepo.ListTopLevel(postID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return s.toResponses(rows), total, nil
}

func (s *CommentService) ListReplies(ctx context.Context, commentID uint, page, limit int) ([]CommentResponse, int64, error) {
	if _, err := s.CommentRepo.FindByID(commentID); err != nil {
		return nil, 0, notFoundAs(err, util.ErrCommentNotFound)
	}
	rows, total, err := s.CommentRepo.ListReplies(commentID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return s.toResponses(rows), total, nil
}

func (s *CommentService) toResponses(rows []model.Comment) []CommentResponse {
	out := make([]CommentResponse, len(rows))
	for i := range rows {
		out[i] = s.toResponse(&rows[i])
	}
	return out
}
