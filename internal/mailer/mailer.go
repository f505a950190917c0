// Package mailer sends outbound notification email. Delivery is best-effort:
// dispatch never blocks or fails on a mail problem.
package mailer

import (
	"context"
	"fmt"

	"pulse/dispatch/internal/config"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Mailer wraps an SMTP client. A zero-configured mailer (empty host) is valid
// and silently drops every message.
type Mailer struct {
	client *mail.Client
	from   string
	log    zerolog.Logger
}

// New builds a mailer from SMTP config. An empty host disables sending.
func New(cfg config.SMTPConfig, log zerolog.Logger) (*Mailer, error) {
	m := &Mailer{from: cfg.From, log: log}
	if cfg.Host == "" {
		log.Debug().Msg("smtp host not set, notification mail disabled")
		return m, nil
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}
	m.client = client
	return m, nil
}

// Enabled reports whether a transport is configured.
func (m *Mailer) Enabled() bool {
	return m.client != nil
}

// SendAssignmentNotice tells the requester an ambulance is on its way.
func (m *Mailer) SendAssignmentNotice(ctx context.Context, recipient, callSign string, etaNote string) error {
	if !m.Enabled() {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject("Ambulance dispatched")
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"An ambulance (%s) has been dispatched to your location. %s\n", callSign, etaNote))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send assignment notice: %w", err)
	}
	return nil
}
