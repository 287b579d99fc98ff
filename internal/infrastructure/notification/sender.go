package notification

import (
	"context"
	"fmt"
	"strings"

	"giveora.backend/internal/config"
	"giveora.backend/pkg/logger"
	"go.uber.org/zap"
)

// Sender delivers one rendered email
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// NewSender picks the transport named by cfg.Driver
func NewSender(cfg config.MailConfig) (Sender, error) {
	switch strings.ToLower(cfg.Driver) {
	case "smtp":
		return NewSMTPSender(cfg)
	case "resend":
		return NewResendSender(cfg)
	case "", "log":
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// LogSender writes emails to the application log instead of delivering them
type LogSender struct{}

// NewLogSender creates a log-only sender
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the email. The body is included so codes are visible in development.
func (s *LogSender) Send(ctx context.Context, email *Email) error {
	logger.Info(ctx, "Email (log driver)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("body", email.Text),
	)
	return nil
}
