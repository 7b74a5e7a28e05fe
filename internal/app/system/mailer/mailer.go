// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/confhub/internal/app/system/inputval"
	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/email"
)

// Config is the SMTP relay configuration.
type Config struct {
	Host     string // e.g. localhost for Mailpit, email-smtp.us-east-1.amazonaws.com for SES
	Port     int    // e.g. 1025 for Mailpit, 587 for SES
	User     string // empty disables AUTH
	Pass     string
	From     string
	FromName string
	UseSSL   bool // implicit TLS (port 465); otherwise STARTTLS is required
}

// Email is one outbound message. Either body may be empty.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Transport hands a rendered message to the relay. *email.Sender
// implements it.
type Transport interface {
	Send(ctx context.Context, msg email.Message) error
}

// Mailer sends mail through an SMTP relay.
type Mailer struct {
	tr Transport
}

// New creates a Mailer backed by waffle's SMTP sender. A blank host gives
// a Mailer that refuses every send.
func New(cfg Config) *Mailer {
	if cfg.Host == "" {
		return &Mailer{}
	}
	return NewWithTransport(email.NewSender(email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.User,
		Password:    cfg.Pass,
		FromAddress: cfg.From,
		FromName:    cfg.FromName,
		UseSSL:      cfg.UseSSL,
		Timeout:     timeouts.Mail(),
	}))
}

// NewWithTransport creates a Mailer over tr.
func NewWithTransport(tr Transport) *Mailer {
	return &Mailer{tr: tr}
}

// SendContext delivers e. The context deadline bounds the SMTP
// conversation.
func (m *Mailer) SendContext(ctx context.Context, e Email) error {
	if m == nil || m.tr == nil {
		return errors.New("mailer: not configured")
	}
	if !inputval.IsValidEmail(e.To) {
		return fmt.Errorf("mailer: bad recipient %q", e.To)
	}
	if e.TextBody == "" && e.HTMLBody == "" {
		return errors.New("mailer: empty body")
	}
	return m.tr.Send(ctx, email.Message{
		To:       []string{e.To},
		Subject:  e.Subject,
		TextBody: e.TextBody,
		HTMLBody: e.HTMLBody,
	})
}
