package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"newsreel_backend/internal/util"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeChecker struct {
	tokens map[string]uint
	err    error
}

func (f *fakeChecker) CheckAccess(ctx context.Context, token string) (*util.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.tokens[token]
	if !ok {
		return nil, util.NewValidationError("Given token not valid for any token type")
	}
	return &util.Claims{UserID: id}, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": util.CurrentUserID(c)})
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	checker := &fakeChecker{tokens: map[string]uint{"good": 7}}
	r := newRouter(AuthMiddleware(checker))

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "bad", http.StatusUnauthorized},
		{"valid", "good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(r, tc.token); w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}

	w := do(r, "good")
	var body map[string]uint
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["user"] != 7 {
		t.Fatalf("claims not stored, got %v", body)
	}
}

func TestAuthMiddlewareBlacklisted(t *testing.T) {
	r := newRouter(AuthMiddleware(&fakeChecker{err: util.ErrTokenBlacklisted}))
	w := do(r, "revoked")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var resp util.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Token is blacklisted" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestAuthMiddlewareBackendFailure(t *testing.T) {
	r := newRouter(AuthMiddleware(&fakeChecker{err: errors.New("redis down")}))
	if w := do(r, "any"); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestTryAuthMiddleware(t *testing.T) {
	r := newRouter(TryAuthMiddleware(&fakeChecker{tokens: map[string]uint{"good": 3}}))

	w := do(r, "")
	if w.Code != http.StatusOK || w.Body.String() != `{"user":0}` {
		t.Fatalf("anonymous request should pass, got %d %s", w.Code, w.Body.String())
	}
	if w := do(r, "good"); w.Body.String() != `{"user":3}` {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if w := do(r, "bad"); w.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token must be rejected, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID(), Logger())

	w := do(r, "")
	generated := w.Header().Get(RequestIDHeader)
	if generated == "" {
		t.Fatalf("request id not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "0f8fad5b-d9cb-469f-a165-70867728950e")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "0f8fad5b-d9cb-469f-a165-70867728950e" {
		t.Fatalf("incoming request id not echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got == "not-a-uuid" || got == "" {
		t.Fatalf("malformed request id must be replaced, got %q", got)
	}
}
