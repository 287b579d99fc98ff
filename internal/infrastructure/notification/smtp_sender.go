package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"giveora.backend/internal/config"
)

var dialAndSend = func(ctx context.Context, client *mail.Client, msg *mail.Msg) error {
	return client.DialAndSendWithContext(ctx, msg)
}

// SMTPSender delivers through an SMTP relay
type SMTPSender struct {
	from     string
	fromName string
	client   *mail.Client
}

// NewSMTPSender builds the go-mail client from cfg
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if cfg.SMTPHost == "" {
		return nil, errors.New("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail from address is required")
	}

	opts := []mail.Option{mail.WithPort(cfg.SMTPPort)}
	if cfg.SMTPTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// implicit TLS on 465, STARTTLS elsewhere
		if cfg.SMTPPort == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating mail client: %w", err)
	}
	return &SMTPSender{from: cfg.From, fromName: cfg.FromName, client: client}, nil
}

// Send builds a multipart text/html message and delivers it
func (s *SMTPSender) Send(ctx context.Context, email *Email) error {
	msg, err := s.buildMessage(email)
	if err != nil {
		return err
	}
	if err := dialAndSend(ctx, s.client, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(email *Email) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.fromName != "" {
		if err := msg.FromFormat(s.fromName, s.from); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}

	if email.ToName != "" {
		if err := msg.AddToFormat(email.ToName, email.To); err != nil {
			return nil, fmt.Errorf("setting to address: %w", err)
		}
	} else if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Text)
	if email.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	}
	return msg, nil
}
