package notify

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"

	"stockflow/internal/config"
	"stockflow/internal/types"
)

// EmailSender delivers alerts via SMTP.
type EmailSender struct {
	cfg config.Email
}

func NewEmailSender(cfg config.Email) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) SendAlert(ctx context.Context, w types.Watcher, symbol, message string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", w.Email)
	m.SetHeader("Subject", fmt.Sprintf("StockFlow Alert: %s", symbol))
	m.SetBody("text/plain", message+"\n\nPowered by StockFlow")

	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("email send to %s failed: %w", w.Email, err)
	}
	return nil
}
