package service

import (
	"context"
	"errors"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/testutil"
	"newsreel_backend/internal/util"
	"newsreel_backend/pkg/logger"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSMS) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, body)
	return nil
}

// lastCode 短信正文末尾的验证码
func (f *fakeSMS) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("no sms sent")
	}
	body := f.sent[len(f.sent)-1]
	return body[len(body)-util.PhoneCodeLength:]
}

type fakeMailer struct {
	to, link string
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, to, username, link string) error {
	f.to, f.link = to, link
	return nil
}

func newAuth(t *testing.T, h *harness) (*AuthService, *fakeSMS, *fakeMailer) {
	t.Helper()
	sms := &fakeSMS{}
	mailer := &fakeMailer{}
	svc := NewAuthService(h.db, h.users,
		repository.NewPhoneVerificationRepository(h.db),
		repository.NewTokenBlacklistRepository(h.rdb),
		h.storage, sms, mailer, h.cfg)
	return svc, sms, mailer
}

func TestSignupAndLogin(t *testing.T) {
	h := newHarness(t)
	auth, _, _ := newAuth(t, h)
	ctx := context.Background()

	req := SignupRequest{Username: "alice", Email: "Alice@Example.com", PhoneNumber: "+12025550100", Password: "supersecret"}
	pair, err := auth.Signup(ctx, req, pngFile(t, "avatar"))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if pair.ID == 0 || pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("unexpected token pair %+v", pair)
	}
	u := testutil.Reload(t, h.db, pair.ID)
	if u.Email != "alice@example.com" || u.Avatar == "" || u.Avatar != u.AvatarThumbnail {
		t.Fatalf("unexpected stored user %+v", u)
	}

	_, err = auth.Signup(ctx, req, nil)
	var appErr *util.AppError
	if !errors.As(err, &appErr) || appErr.Kind != util.KindConflict || len(appErr.Fields) != 3 {
		t.Fatalf("expected conflict on all three fields, got %v", err)
	}

	short := req
	short.Username, short.Email, short.PhoneNumber, short.Password = "bob", "bob@example.com", "+12025550101", "short"
	if _, err := auth.Signup(ctx, short, nil); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected password length error, got %v", err)
	}

	if _, err := auth.Login(ctx, LoginRequest{PhoneNumber: req.PhoneNumber, Password: "wrong-password"}); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := auth.Login(ctx, LoginRequest{PhoneNumber: "+19999999999", Password: "supersecret"}); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("unknown phone must look like a bad password, got %v", err)
	}
	logged, err := auth.Login(ctx, LoginRequest{PhoneNumber: req.PhoneNumber, Password: "supersecret"})
	if err != nil || logged.ID != pair.ID {
		t.Fatalf("login: %v", err)
	}
	if testutil.Reload(t, h.db, pair.ID).LastLogin == nil {
		t.Fatalf("expected last_login to be set")
	}
}

type failingDelete struct {
	StorageProvider
	deleted []string
}

func (f *failingDelete) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return errors.New("bucket unavailable")
}

func TestSignupLogsAvatarCleanupFailure(t *testing.T) {
	h := newHarness(t)
	auth, _, _ := newAuth(t, h)
	store := &failingDelete{StorageProvider: h.storage.Provider}
	h.storage.Provider = store

	core, logs := observer.New(zap.WarnLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	// 预检通过后插入失败，走头像回收分支
	err := h.db.Callback().Create().Before("gorm:create").Register("test:fail_users", func(db *gorm.DB) {
		if db.Statement.Table == "users" {
			db.AddError(errors.New("insert failed"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	req := SignupRequest{Username: "carol", Email: "carol@example.com", PhoneNumber: "+12025550199", Password: "supersecret"}
	if _, err := auth.Signup(context.Background(), req, pngFile(t, "avatar")); err == nil {
		t.Fatalf("expected signup to fail")
	}
	if len(store.deleted) != 1 || store.deleted[0] == "" {
		t.Fatalf("expected the saved avatar to be deleted, got %v", store.deleted)
	}
	entries := logs.FilterMessage("failed to delete avatar").All()
	if len(entries) != 1 || entries[0].ContextMap()["key"] != store.deleted[0] {
		t.Fatalf("expected one cleanup warning, got %+v", logs.All())
	}
}

func TestRefreshAndLogout(t *testing.T) {
	h := newHarness(t)
	auth, _, _ := newAuth(t, h)
	ctx := context.Background()
	u := testutil.CreateUser(t, h.db, "alice")

	pair, err := auth.Login(ctx, LoginRequest{PhoneNumber: u.PhoneNumber, Password: testutil.Password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	fresh, err := auth.Refresh(ctx, pair.Refresh)
	if err != nil || fresh.Access == "" {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := auth.Refresh(ctx, pair.Access); !errors.Is(err, util.ErrInvalidToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	access, err := auth.CheckAccess(ctx, pair.Access)
	if err != nil || access.UserID != u.ID {
		t.Fatalf("check access: %v", err)
	}
	if err := auth.Logout(ctx, access, pair.Refresh); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := auth.Refresh(ctx, pair.Refresh); !errors.Is(err, util.ErrTokenBlacklisted) {
		t.Fatalf("expected blacklisted refresh, got %v", err)
	}
	if _, err := auth.CheckAccess(ctx, pair.Access); !errors.Is(err, util.ErrTokenBlacklisted) {
		t.Fatalf("expected blacklisted access, got %v", err)
	}
	if _, err := auth.CheckAccess(ctx, fresh.Access); err != nil {
		t.Fatalf("other access tokens stay valid: %v", err)
	}

	// 黑名单随令牌过期一起失效
	h.mr.FastForward(25 * time.Hour)
	if ok, _ := auth.Blacklist.IsBlacklisted(ctx, access.ID); ok {
		t.Fatalf("blacklist entry should expire with the token")
	}
}

func TestPhoneVerification(t *testing.T) {
	h := newHarness(t)
	auth, sms, _ := newAuth(t, h)
	ctx := context.Background()
	u := testutil.CreateUser(t, h.db, "alice")

	if err := auth.SendPhoneVerification(ctx, u.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	code := sms.lastCode(t)
	if err := auth.ConfirmPhoneVerification(ctx, u.ID, "000000x"); !errors.Is(err, util.ErrInvalidCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if err := auth.ConfirmPhoneVerification(ctx, u.ID, code); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !testutil.Reload(t, h.db, u.ID).IsVerifiedPhoneNumber {
		t.Fatalf("expected phone verified")
	}
	var n int64
	h.db.Model(&model.PhoneVerification{}).Count(&n)
	if n != 0 {
		t.Fatalf("codes must be removed after confirmation, got %d", n)
	}
}

func TestPhoneVerificationExpires(t *testing.T) {
	h := newHarness(t)
	auth, sms, _ := newAuth(t, h)
	ctx := context.Background()
	u := testutil.CreateUser(t, h.db, "alice")

	if err := auth.SendPhoneVerification(ctx, u.ID); err != nil {
		t.Fatalf("send: %v", err)
	}
	h.db.Model(&model.PhoneVerification{}).Where("user_id = ?", u.ID).
		UpdateColumn("created_at", time.Now().Add(-time.Hour))
	if err := auth.ConfirmPhoneVerification(ctx, u.ID, sms.lastCode(t)); !errors.Is(err, util.ErrCodeExpired) {
		t.Fatalf("expected expired code, got %v", err)
	}

	sms.err = errors.New("gateway down")
	if err := auth.SendPhoneVerification(ctx, u.ID); util.KindOf(err) != util.KindExternalService {
		t.Fatalf("expected external error, got %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t)
	auth, _, mailer := newAuth(t, h)
	ctx := context.Background()
	u := testutil.CreateUser(t, h.db, "alice")

	if err := auth.RequestPasswordReset(ctx, "nobody@example.com"); !errors.Is(err, util.ErrEmailNotFound) {
		t.Fatalf("expected email not found, got %v", err)
	}
	if err := auth.RequestPasswordReset(ctx, "ALICE@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	prefix := "https://newsreel.test/reset-password/"
	if mailer.to != u.Email || !strings.HasPrefix(mailer.link, prefix) || !strings.HasSuffix(mailer.link, "/confirm/") {
		t.Fatalf("unexpected mail to=%s link=%s", mailer.to, mailer.link)
	}
	token := strings.TrimSuffix(strings.TrimPrefix(mailer.link, prefix), "/confirm/")

	if err := auth.ConfirmPasswordReset(ctx, "garbage", "newpassword"); !errors.Is(err, util.ErrInvalidResetToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if err := auth.ConfirmPasswordReset(ctx, token, "newpassword"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := auth.Login(ctx, LoginRequest{PhoneNumber: u.PhoneNumber, Password: "newpassword"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := auth.ConfirmPasswordReset(ctx, token, "anotherpassword"); !errors.Is(err, util.ErrInvalidResetToken) {
		t.Fatalf("reset token must be single use, got %v", err)
	}
}
