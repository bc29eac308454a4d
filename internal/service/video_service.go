package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"newsreel_backend/internal/config"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/util"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// VideoInfo 解析后的视频信息
type VideoInfo struct {
	Type      string
	ID        string
	Thumbnail string
}

// VideoService 解析 youtube / vimeo 链接并获取缩略图
type VideoService struct {
	VimeoAPIURL string
	Client      *http.Client
	cache       *lru.Cache[string, string]
}

func NewVideoService(cfg *config.Config) *VideoService {
	size := cfg.Video.ThumbnailCacheSize
	if size <= 0 {
		size = 512
	}
	cache, _ := lru.New[string, string](size)
	return &VideoService{
		VimeoAPIURL: strings.TrimRight(cfg.Video.VimeoAPIURL, "/"),
		Client:      &http.Client{Timeout: cfg.VideoTimeout()},
		cache:       cache,
	}
}

// Resolve 错误均为 video 字段上的校验错误
func (s *VideoService) Resolve(ctx context.Context, rawURL string) (*VideoInfo, error) {
	if !util.IsSupportedVideoURL(rawURL) {
		return nil, util.FieldError("video", "Youtube or vimeo video are supported")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, util.FieldError("video", "Enter a valid URL.")
	}

	if strings.Contains(rawURL, "vimeo") {
		return s.resolveVimeo(ctx, parsed)
	}

	id := parsed.Query().Get("v")
	if id == "" {
		return nil, util.FieldError("video", "Incorrect youtube link")
	}
	return &VideoInfo{
		Type:      model.VideoTypeYoutube,
		ID:        id,
		Thumbnail: fmt.Sprintf("https://img.youtube.com/vi/%s/0.jpg", id),
	}, nil
}

func (s *VideoService) resolveVimeo(ctx context.Context, parsed *url.URL) (*VideoInfo, error) {
	segments := strings.Split(strings.TrimPrefix(parsed.Path, "/"), "/")
	id := segments[0]
	if id == "" {
		return nil, util.FieldError("video", "Incorrect vimeo link")
	}

	if thumb, ok := s.cache.Get(id); ok {
		return &VideoInfo{Type: model.VideoTypeVimeo, ID: id, Thumbnail: thumb}, nil
	}

	thumb, err := s.fetchVimeoThumbnail(ctx, id)
	if err != nil {
		return nil, &util.AppError{
			Kind:    util.KindValidation,
			Message: "Incorrect vimeo link",
			Fields:  map[string]string{"video": "Incorrect vimeo link"},
			Err:     err,
		}
	}
	s.cache.Add(id, thumb)
	return &VideoInfo{Type: model.VideoTypeVimeo, ID: id, Thumbnail: thumb}, nil
}

func (s *VideoService) fetchVimeoThumbnail(ctx context.Context, id string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v2/video/%s.json", s.VimeoAPIURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vimeo returned %d", resp.StatusCode)
	}

	var body []struct {
		ThumbnailLarge string `json:"thumbnail_large"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if len(body) == 0 || body[0].ThumbnailLarge == "" {
		return "", fmt.Errorf("vimeo response has no thumbnail")
	}
	thumb := body[0].ThumbnailLarge
	if strings.HasPrefix(thumb, "http://") {
		thumb = "https://" + strings.TrimPrefix(thumb, "http://")
	}
	return thumb, nil
}
