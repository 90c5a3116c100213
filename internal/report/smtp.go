package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/coder/quartz"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"gw-audit/internal/domain"
)

// SMTPConfig addresses a relay. Username empty disables AUTH.
type SMTPConfig struct {
	Addr     string
	From     string
	Username string
	Password string
}

// SMTP sends notifications through an SMTP relay.
type SMTP struct {
	cfg   SMTPConfig
	clock quartz.Clock
}

// NewSMTP creates an SMTP notifier.
func NewSMTP(cfg SMTPConfig, clock quartz.Clock) *SMTP {
	return &SMTP{cfg: cfg, clock: clock}
}

// Notify sends n as a plain-text email. STARTTLS is used when the relay
// offers it.
func (s *SMTP) Notify(_ context.Context, n domain.Notification) error {
	if len(n.Recipients) == 0 {
		return nil
	}
	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	}
	msg := composeMessage(s.cfg.From, n.Recipients, n.Subject, RenderText(n), s.clock.Now())
	if err := smtp.SendMail(s.cfg.Addr, auth, s.cfg.From, n.Recipients, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("send mail via %s: %w", s.cfg.Addr, err)
	}
	return nil
}

var _ domain.Notifier = (*SMTP)(nil)
