package service

import (
	"context"
	"fmt"
	"newsreel_backend/internal/config"

	"gopkg.in/gomail.v2"
)

// Mailer 邮件发送
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, username, link string) error
}

type MailService struct {
	Config config.MailConfig
	// Send 默认通过 SMTP 发送，测试中可替换
	Send func(m *gomail.Message) error
}

func NewMailService(cfg config.MailConfig) *MailService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return &MailService{
		Config: cfg,
		Send: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}
}

func (s *MailService) SendPasswordReset(ctx context.Context, to, username, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.Config.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "NewsReel password reset")
	m.SetBody("text/plain", fmt.Sprintf("Hi %s,\n\nUse the link below to reset your NewsReel password:\n%s\n\nIf you did not request it, ignore this email.\n", username, link))
	m.AddAlternative("text/html", fmt.Sprintf(`<p>Hi %s,</p><p>Use the link below to reset your NewsReel password:</p><p><a href="%s">Reset password</a></p><p>If you did not request it, ignore this email.</p>`, username, link))
	return s.Send(m)
}
