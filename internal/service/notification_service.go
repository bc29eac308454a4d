package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"newsreel_backend/internal/config"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/repository"
	"newsreel_backend/pkg/logger"
	"newsreel_backend/pkg/monitoring"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notifier 新帖推送，实现方自行吞掉错误
type Notifier interface {
	NotifyNewPost(ctx context.Context, author *model.User, postID uint)
}

type localizedText struct {
	En string `json:"en"`
}

// pushPayload OneSignal 通知请求体
type pushPayload struct {
	AppID                  string        `json:"app_id"`
	URL                    string        `json:"url"`
	Headings               localizedText `json:"headings"`
	Contents               localizedText `json:"contents"`
	IncludeExternalUserIDs []string      `json:"include_external_user_ids"`
}

type NotificationService struct {
	FollowRepo *repository.FollowRepository
	Client     *http.Client

	mu       sync.RWMutex
	push     config.OneSignalConfig
	frontend string
}

func NewNotificationService(followRepo *repository.FollowRepository, cfg *config.Config) *NotificationService {
	s := &NotificationService{
		FollowRepo: followRepo,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig 配置热更新时替换推送凭据
func (s *NotificationService) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.push = cfg.OneSignal
	s.frontend = strings.TrimRight(cfg.App.FrontendDomain, "/")
}

func (s *NotificationService) settings() (config.OneSignalConfig, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.push, s.frontend
}

func (s *NotificationService) NotifyNewPost(ctx context.Context, author *model.User, postID uint) {
	if err := s.notify(ctx, author, postID); err != nil {
		monitoring.Notifications.WithLabelValues("error").Inc()
		logger.Log.Warn("push notification failed",
			zap.Uint("post_id", postID),
			zap.Uint("author_id", author.ID),
			zap.Error(err))
	}
}

func (s *NotificationService) notify(ctx context.Context, author *model.User, postID uint) error {
	followers, err := s.FollowRepo.FollowerIDsCached(ctx, author.ID)
	if err != nil {
		return err
	}
	if len(followers) == 0 {
		monitoring.Notifications.WithLabelValues("skipped").Inc()
		return nil
	}

	push, frontend := s.settings()
	if push.AppID == "" || push.RestAPIKey == "" {
		monitoring.Notifications.WithLabelValues("skipped").Inc()
		return nil
	}

	ids := make([]string, len(followers))
	for i, id := range followers {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	payload := pushPayload{
		AppID:                  push.AppID,
		URL:                    fmt.Sprintf("%s/post/%d", frontend, postID),
		Headings:               localizedText{En: "NewsReel"},
		Contents:               localizedText{En: "New post by " + author.Username},
		IncludeExternalUserIDs: ids,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, push.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Basic "+push.RestAPIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("onesignal returned %d", resp.StatusCode)
	}
	monitoring.Notifications.WithLabelValues("sent").Inc()
	return nil
}
