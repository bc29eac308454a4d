package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"newsreel_backend/internal/config"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/util"
	"sync/atomic"
	"testing"
	"time"
)

func newVideoService(t *testing.T, handler http.HandlerFunc) (*VideoService, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Video = config.VideoConfig{VimeoAPIURL: srv.URL, RequestTimeoutSeconds: 2, ThumbnailCacheSize: 8}
	return NewVideoService(cfg), &hits
}

func TestResolveYoutube(t *testing.T) {
	svc, hits := newVideoService(t, func(w http.ResponseWriter, r *http.Request) {})

	info, err := svc.Resolve(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if info.Type != model.VideoTypeYoutube || info.ID != "dQw4w9WgXcQ" || info.Thumbnail != "https://img.youtube.com/vi/dQw4w9WgXcQ/0.jpg" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := svc.Resolve(context.Background(), "https://www.youtube.com/channel/abc"); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected validation error without v param, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "https://youtu.be/abc"); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected unsupported host error, got %v", err)
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Fatalf("youtube links must not call out, got %d requests", atomic.LoadInt32(hits))
	}
}

func TestResolveVimeoUpgradesAndCaches(t *testing.T) {
	svc, hits := newVideoService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/video/76979871.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":76979871,"thumbnail_large":"http://i.vimeocdn.com/video/452001751_640.jpg"}]`))
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		info, err := svc.Resolve(ctx, "https://vimeo.com/76979871")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if info.Type != model.VideoTypeVimeo || info.ID != "76979871" || info.Thumbnail != "https://i.vimeocdn.com/video/452001751_640.jpg" {
			t.Fatalf("unexpected info %+v", info)
		}
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Fatalf("expected thumbnail to be cached, got %d requests", atomic.LoadInt32(hits))
	}

	_, err := svc.Resolve(ctx, "https://vimeo.com/404")
	var appErr *util.AppError
	if !errors.As(err, &appErr) || appErr.Fields["video"] != "Incorrect vimeo link" {
		t.Fatalf("expected incorrect vimeo link, got %v", err)
	}
}

func TestResolveVimeoTimeout(t *testing.T) {
	svc, _ := newVideoService(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	svc.Client.Timeout = 50 * time.Millisecond

	if _, err := svc.Resolve(context.Background(), "https://vimeo.com/1"); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected validation error on timeout, got %v", err)
	}
}
