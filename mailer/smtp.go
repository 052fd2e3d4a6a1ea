package mailer

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPSender relays through an SMTP server with PLAIN auth, upgrading to
// TLS whenever the server offers STARTTLS
type SMTPSender struct {
	addr     string
	username string
	password string
	now      func() time.Time
	send     func(ctx context.Context, client *mail.Client, msg *mail.Msg) error
}

// NewSMTPSender creates an SMTP sender for host:port
func NewSMTPSender(addr, username, password string) *SMTPSender {
	return &SMTPSender{
		addr:     addr,
		username: username,
		password: password,
		now:      time.Now,
		send: func(ctx context.Context, client *mail.Client, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}
}

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := s.client()
	if err != nil {
		return err
	}

	m, err := s.build(msg)
	if err != nil {
		return err
	}

	return s.send(ctx, client, m)
}

func (s *SMTPSender) client() (*mail.Client, error) {
	host, portStr, err := net.SplitHostPort(s.addr)
	if err != nil {
		return nil, fmt.Errorf("smtp address %q: %w", s.addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", portStr, err)
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

func (s *SMTPSender) build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg(mail.WithEncoding(mail.EncodingB64))

	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}

	m.Subject(msg.Subject)
	m.SetDateWithValue(s.now().UTC())
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	return m, nil
}
