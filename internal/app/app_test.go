package app

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"newsreel_backend/internal/config"
	"newsreel_backend/internal/testutil"
	"newsreel_backend/internal/util"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := util.RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type envelope struct {
	Code     int               `json:"code"`
	Message  string            `json:"message"`
	Data     json.RawMessage   `json:"data"`
	APIError map[string]string `json:"apiError"`
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func newClient(t *testing.T) *client {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.Storage = config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir(), PublicBaseURL: "http://media.test"}
	cfg.JWT = config.JWTConfig{Secret: "app-test-secret-app-test-secret!", AccessExpireTime: time.Hour, RefreshExpireTime: 24 * time.Hour}
	cfg.App = config.AppConfig{FrontendDomain: "https://newsreel.test", PhoneCodeLifetimeMinutes: 5, PageSize: 10}

	a, err := New(cfg, db, rdb)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.Close)
	return &client{t: t, router: a.Router}
}

func (c *client) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *client) send(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			c.t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func (c *client) signup(username, phone string) (uint, string, string) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("username", username)
	mw.WriteField("email", username+"@example.com")
	mw.WriteField("phone_number", phone)
	mw.WriteField("password", "password123")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/signup", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, env := c.send(req)
	if w.Code != http.StatusCreated {
		c.t.Fatalf("signup %s: %d %s", username, w.Code, w.Body.String())
	}
	var tokens struct {
		ID      uint   `json:"id"`
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	json.Unmarshal(env.Data, &tokens)
	return tokens.ID, tokens.Access, tokens.Refresh
}

type postView struct {
	ID        uint    `json:"id"`
	Slug      *string `json:"slug"`
	Upvotes   int     `json:"upvotes"`
	IsUpvoted bool    `json:"is_upvoted"`
	Comments  int     `json:"comments"`
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	c := newClient(t)
	_, access, refresh := c.signup("alice", "+12025550101")

	if w, _ := c.do(http.MethodPost, "/api/v1/psas", map[string]string{"text": "hi", "category": "news", "slug": "hello"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create must be rejected, got %d", w.Code)
	}

	c.token = access
	w, env := c.do(http.MethodPost, "/api/v1/psas", map[string]string{"text": "**hi**", "category": "news", "slug": "hello"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create psa: %d %s", w.Code, w.Body.String())
	}
	var post postView
	json.Unmarshal(env.Data, &post)
	if post.Slug == nil {
		t.Fatalf("slug missing from %s", env.Data)
	}

	c.token = ""
	if w, _ := c.do(http.MethodGet, "/api/v1/posts/"+*post.Slug, nil); w.Code != http.StatusOK {
		t.Fatalf("get by slug: %d", w.Code)
	}
	if w, _ := c.do(http.MethodGet, "/api/v1/posts/no-such-slug", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown slug, got %d", w.Code)
	}

	c.token = access
	id := strconv.FormatUint(uint64(post.ID), 10)
	for i := 0; i < 2; i++ {
		w, env = c.do(http.MethodPost, "/api/v1/posts/"+id+"/upvote", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("upvote: %d %s", w.Code, w.Body.String())
		}
	}
	json.Unmarshal(env.Data, &post)
	if post.Upvotes != 1 || !post.IsUpvoted {
		t.Fatalf("unexpected upvote state %+v", post)
	}

	if w, _ := c.do(http.MethodPost, "/api/v1/comments", map[string]interface{}{"text": "first", "post": post.ID}); w.Code != http.StatusCreated {
		t.Fatalf("comment: %d %s", w.Code, w.Body.String())
	}

	w, env = c.do(http.MethodGet, "/api/v1/feed", nil)
	var page struct {
		List  []postView `json:"list"`
		Total int64      `json:"total"`
	}
	json.Unmarshal(env.Data, &page)
	if w.Code != http.StatusOK || page.Total != 1 || page.List[0].Comments != 1 {
		t.Fatalf("unexpected feed %d %s", w.Code, env.Data)
	}

	if w, _ := c.do(http.MethodPost, "/api/v1/logout", map[string]string{"refresh": refresh}); w.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", w.Code, w.Body.String())
	}
	w, env = c.do(http.MethodDelete, "/api/v1/posts/"+id, nil)
	if w.Code != http.StatusUnauthorized || env.Message != "Token is blacklisted" {
		t.Fatalf("expected blacklisted token, got %d %q", w.Code, env.Message)
	}
}

func TestValidationErrorsCarryFields(t *testing.T) {
	c := newClient(t)
	_, access, _ := c.signup("bob", "+12025550102")
	c.token = access

	w, env := c.do(http.MethodPost, "/api/v1/polls", map[string]interface{}{"question": "?", "category": "x", "choices_text": []string{"only"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if _, ok := env.APIError["choices_text"]; !ok {
		t.Fatalf("expected choices_text field error, got %v", env.APIError)
	}

	w, env = c.do(http.MethodPost, "/api/v1/reports", map[string]interface{}{})
	if w.Code != http.StatusBadRequest || len(env.APIError) == 0 {
		t.Fatalf("expected report validation error, got %d %v", w.Code, env.APIError)
	}
}

func TestFollowAndProfileOverHTTP(t *testing.T) {
	c := newClient(t)
	aliceID, _, _ := c.signup("alice", "+12025550103")
	_, bobAccess, _ := c.signup("bob", "+12025550104")
	alice := strconv.FormatUint(uint64(aliceID), 10)

	c.token = bobAccess
	if w, _ := c.do(http.MethodPost, "/api/v1/followings/"+alice, nil); w.Code != http.StatusCreated {
		t.Fatalf("follow: %d", w.Code)
	}
	w, env := c.do(http.MethodGet, "/api/v1/users/"+alice, nil)
	var profile struct {
		IsSubscribed bool `json:"is_subscribed"`
	}
	json.Unmarshal(env.Data, &profile)
	if w.Code != http.StatusOK || !profile.IsSubscribed {
		t.Fatalf("expected subscribed profile, got %d %s", w.Code, env.Data)
	}
	if w, _ := c.do(http.MethodDelete, "/api/v1/followings/"+alice, nil); w.Code != http.StatusNoContent {
		t.Fatalf("unfollow: %d", w.Code)
	}
	if w, _ := c.do(http.MethodGet, "/api/v1/users/abc", nil); w.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id must be 404, got %d", w.Code)
	}
}

func TestSystemEndpoints(t *testing.T) {
	c := newClient(t)
	for _, path := range []string{"/api/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		c.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: %d", path, w.Code)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s: request id header missing", path)
		}
	}
}
