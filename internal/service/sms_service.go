package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"newsreel_backend/internal/config"
	"strings"
	"time"
)

// SMSSender 短信网关
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioSMSService 通过 Twilio REST API 发送短信
type TwilioSMSService struct {
	Config config.TwilioConfig
	Client *http.Client
}

func NewTwilioSMSService(cfg config.TwilioConfig) *TwilioSMSService {
	return &TwilioSMSService{
		Config: cfg,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *TwilioSMSService) Send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(s.Config.APIURL, "/"), url.PathEscape(s.Config.AccountSID))

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.Config.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.Config.AccountSID, s.Config.AuthToken)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		ErrorCode *int   `json:"error_code"`
		Message   string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("twilio returned %d: %s", resp.StatusCode, result.Message)
	}
	if result.ErrorCode != nil {
		return fmt.Errorf("twilio error code %d", *result.ErrorCode)
	}
	return nil
}
