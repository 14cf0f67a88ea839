// Package smtp delivers alert emails over SMTP with mandatory STARTTLS.
package smtp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/couchcryptid/air-quality-service/internal/alerts"
)

// Config holds the SMTP server and the sender account. The sender address
// is also the login user.
type Config struct {
	Server   string
	Port     int
	Username string
	Password string
}

// Configured reports whether server and credentials are all present.
func (c Config) Configured() bool {
	return c.Server != "" && c.Username != "" && c.Password != ""
}

// Sender implements alerts.Sender. Each Send opens its own connection so one
// rejected recipient cannot poison the session for the next.
type Sender struct {
	cfg    Config
	client *mail.Client
	logger *slog.Logger
}

// NewSender creates a sender for cfg.
func NewSender(cfg Config, logger *slog.Logger) (*Sender, error) {
	client, err := mail.NewClient(cfg.Server,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &Sender{cfg: cfg, client: client, logger: logger}, nil
}

// Send delivers msg to a single address.
func (s *Sender) Send(ctx context.Context, to string, msg alerts.Message) error {
	m, err := newMessage(s.cfg.Username, to, msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	s.logger.Debug("alert sent", "to", to)
	return nil
}

func newMessage(from, to string, msg alerts.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
