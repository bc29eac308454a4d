package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"newsreel_backend/internal/config"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/testutil"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// pngHeader 足以让 http.DetectContentType 识别为 image/png
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type notifyCall struct {
	AuthorID uint
	PostID   uint
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) NotifyNewPost(ctx context.Context, author *model.User, postID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{AuthorID: author.ID, PostID: postID})
}

func (n *recordingNotifier) Calls() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

type stubVideos struct {
	info *VideoInfo
	err  error
}

func (v stubVideos) Resolve(ctx context.Context, rawURL string) (*VideoInfo, error) {
	return v.info, v.err
}

type harness struct {
	db       *gorm.DB
	rdb      *redis.Client
	mr       *miniredis.Miniredis
	cfg      *config.Config
	storage  *StorageService
	notifier *recordingNotifier

	users    *repository.UserRepository
	posts    *PostService
	polls    *PollService
	comments *CommentService
	follows  *FollowService
	reviews  *ReviewService
	reports  *ReportService
	profiles *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)

	cfg := &config.Config{}
	cfg.Storage = config.StorageConfig{Type: "local", LocalPath: t.TempDir(), PublicBaseURL: "http://media.test"}
	cfg.JWT = config.JWTConfig{
		Secret:             "test-secret-test-secret-test-secret",
		AccessExpireTime:   time.Hour,
		RefreshExpireTime:  24 * time.Hour,
		ResetExpireMinutes: 30,
	}
	cfg.App = config.AppConfig{FrontendDomain: "https://newsreel.test", PhoneCodeLifetimeMinutes: 10, PageSize: 10}

	storage := &StorageService{Provider: &LocalStorageProvider{Config: &cfg.Storage}}
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	pollRepo := repository.NewPollRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	followRepo := repository.NewFollowRepository(db, rdb)
	notifier := &recordingNotifier{}

	videos := stubVideos{info: &VideoInfo{Type: model.VideoTypeYoutube, ID: "abc123", Thumbnail: "https://img.youtube.com/vi/abc123/0.jpg"}}
	posts := NewPostService(db, postRepo, pollRepo, userRepo, commentRepo, reportRepo, storage, videos, notifier)

	return &harness{
		db:       db,
		rdb:      rdb,
		mr:       mr,
		cfg:      cfg,
		storage:  storage,
		notifier: notifier,
		users:    userRepo,
		posts:    posts,
		polls:    NewPollService(db, postRepo, pollRepo, posts),
		comments: NewCommentService(db, commentRepo, postRepo, userRepo, storage),
		follows:  NewFollowService(db, followRepo, userRepo),
		reviews:  NewReviewService(db, reviewRepo, userRepo, reportRepo, storage),
		reports:  NewReportService(db, reportRepo),
		profiles: NewUserService(userRepo, reviewRepo, followRepo, storage),
	}
}

// fileHeader 构造 multipart 上传文件
func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse multipart: %v", err)
	}
	return req.MultipartForm.File[field][0]
}

func pngFile(t *testing.T, field string) *multipart.FileHeader {
	return fileHeader(t, field, "pic.png", append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...))
}
