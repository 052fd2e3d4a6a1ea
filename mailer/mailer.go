// Package mailer sends transactional email through SMTP or Amazon SES.
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/goliatone/go-auth-boilerplate/config"
)

// Message is a single HTML email
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Logger is the logger used by senders
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

const sendGridAddr = "smtp.sendgrid.net:587"

// NewSender returns the sender for cfg.Provider. MAILGUN uses the SMTP
// relay in cfg, SENDGRID its SMTP relay, SES the SES v2 API.
func NewSender(ctx context.Context, cfg config.EmailConfig, aws config.AWSConfig, logger Logger) (Sender, error) {
	var sender Sender

	switch cfg.Provider {
	case config.EmailProviderMailgun:
		sender = NewSMTPSender(fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort), cfg.SMTPUser, cfg.SMTPPass)
	case config.EmailProviderSendGrid:
		sender = NewSMTPSender(sendGridAddr, cfg.SMTPUser, cfg.SMTPPass)
	case config.EmailProviderSES:
		sdk, err := aws.SDKConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		sender = NewSESSender(sesv2.NewFromConfig(sdk))
	default:
		return nil, fmt.Errorf("unsupported EMAIL_SERVICE_PROVIDER: %q", cfg.Provider)
	}

	if logger != nil {
		logger.Info("email provider configured", "provider", cfg.Provider)
	}

	return &loggingSender{next: sender, from: cfg.From, logger: logger}, nil
}

// loggingSender fills in the default sender address and logs every attempt
type loggingSender struct {
	next   Sender
	from   string
	logger Logger
}

func (s *loggingSender) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.from
	}

	if s.logger != nil {
		s.logger.Info("sending email", "to", msg.To, "subject", msg.Subject)
	}

	if err := s.next.Send(ctx, msg); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send email", "to", msg.To, "subject", msg.Subject, "error", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	}
	return nil
}
