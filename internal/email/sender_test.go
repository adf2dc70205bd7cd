package email

import (
	"context"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogastudio/internal/config"
)

func TestSendWelcome_NotConfigured(t *testing.T) {
	s := NewSender(&config.SMTPConfig{Host: "localhost", Port: 587})
	err := s.SendWelcome(context.Background(), "a@example.com", "Alice")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendWelcome_ComposesMessage(t *testing.T) {
	cfg := &config.SMTPConfig{Host: "smtp.example.com", Port: 2525, Username: "bot", Password: "pw", FromName: "Yoga Studio"}
	s := NewSender(cfg)
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, s.SendWelcome(context.Background(), "a@example.com", "Alice"))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "bot", gotFrom, "falls back to the username without FromEmail")
	assert.Equal(t, []string{"a@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Welcome to Yoga Studio\r\n")
	assert.Contains(t, string(gotMsg), "Hello Alice")
}

func TestSendWelcome_ContextCancelled(t *testing.T) {
	s := NewSender(&config.SMTPConfig{Host: "h", Port: 25, Username: "u", Password: "p"})
	block := make(chan struct{})
	defer close(block)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-block
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.SendWelcome(ctx, "a@example.com", "Alice"), context.DeadlineExceeded)
}
