package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	resend "github.com/resend/resend-go/v2"
	"giveora.backend/internal/config"
)

var sendResendEmail = func(client *resend.Client, req *resend.SendEmailRequest) error {
	_, err := client.Emails.Send(req)
	return err
}

// ResendSender delivers through the Resend HTTP API
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender for cfg.ResendAPIKey
func NewResendSender(cfg config.MailConfig) (*ResendSender, error) {
	if strings.TrimSpace(cfg.ResendAPIKey) == "" {
		return nil, errors.New("resend API key is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mail from address is required")
	}

	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}
	return &ResendSender{client: resend.NewClient(cfg.ResendAPIKey), from: from}, nil
}

// Send posts the email to Resend
func (s *ResendSender) Send(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	if err := sendResendEmail(s.client, req); err != nil {
		return fmt.Errorf("resend email failed: %w", err)
	}
	return nil
}
