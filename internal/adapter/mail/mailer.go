// Package mail delivers outbound email over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/caimari/musedock/internal/domain"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends mail through a single SMTP relay, implementing domain.Mailer.
type Mailer struct {
	cfg Config
}

// New creates a Mailer for the given relay.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers one message. Plain text only; provisioning notifications do
// not need HTML.
func (m *Mailer) Send(ctx context.Context, mail domain.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := buildMessage(m.cfg.From, mail)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{mail.To}, msg); err != nil {
		return &domain.ExternalError{
			System:  domain.SystemMail,
			Kind:    domain.KindGeneric,
			Message: err.Error(),
		}
	}
	return nil
}

func buildMessage(from string, mail domain.Mail) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", mail.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mail.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(mail.Body)
	return []byte(b.String())
}
