package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"
	"time"

	"github.com/yogastudio/internal/config"
)

var ErrNotConfigured = errors.New("email: SMTP is not configured")

type Sender struct {
	cfg  *config.SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg *config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg, send: smtp.SendMail}
}

// SendWelcome mails a greeting after registration.
func (s *Sender) SendWelcome(ctx context.Context, to, firstName string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour Yoga Studio account is ready. You can now log in and book sessions.\n", firstName)
	return s.sendMail(ctx, to, "Welcome to Yoga Studio", body)
}

func (s *Sender) sendMail(ctx context.Context, to, subject, body string) error {
	if !s.cfg.Enabled() {
		return ErrNotConfigured
	}
	msg := s.compose(to, subject, body, time.Now())
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	done := make(chan error, 1)
	go func() { done <- s.send(addr, auth, s.from(), []string{to}, msg) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (s *Sender) from() string {
	if s.cfg.FromEmail != "" {
		return s.cfg.FromEmail
	}
	return s.cfg.Username
}

func (s *Sender) compose(to, subject, body string, now time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString("From: " + s.cfg.FromName + " <" + s.from() + ">\r\n")
	buf.WriteString("To: " + to + "\r\n")
	buf.WriteString("Subject: " + subject + "\r\n")
	buf.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}
