// ABOUTME: SMTP email channel using go-mail. Dial-per-send for sporadic incident traffic.
// ABOUTME: BCC all responders in a single message; HTML + plaintext multipart.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/sableridge/watchdesk/internal/incident"
)

// SMTPConfig holds SMTP connection parameters sourced from global env vars.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
	TLS      bool
}

// EmailChannel delivers incident alerts to the response-team inbox list.
// It is the required channel: constructed even when recipients are missing,
// so an unconfigured deployment reports a per-intake configuration error
// instead of silently dropping the leg.
type EmailChannel struct {
	cfg        SMTPConfig
	recipients []string
}

// NewEmailChannel creates the email channel.
func NewEmailChannel(cfg SMTPConfig, recipients []string) *EmailChannel {
	return &EmailChannel{cfg: cfg, recipients: recipients}
}

// Name implements Channel.
func (c *EmailChannel) Name() string { return "email" }

// Send renders and delivers the incident alert email.
func (c *EmailChannel) Send(ctx context.Context, r *incident.Report) error {
	if len(c.recipients) == 0 {
		return errors.New("email channel not configured: no recipients")
	}
	subject, htmlBody, textBody, err := RenderIncident(IncidentTemplateData{Report: r})
	if err != nil {
		return fmt.Errorf("render incident email: %w", err)
	}
	return sendMail(ctx, c.cfg, c.recipients, subject, htmlBody, textBody)
}

// sendMail sends an HTML+plaintext multipart email to all recipients via BCC.
// Uses DialAndSend (dial-per-send) — no persistent SMTP connection.
func sendMail(ctx context.Context, cfg SMTPConfig, recipients []string, subject, htmlBody, textBody string) error {
	if len(recipients) == 0 {
		return errors.New("email send: no recipients")
	}

	// Strip CR/LF from subject to prevent header injection.
	subject = strings.NewReplacer("\r", "", "\n", "").Replace(subject)

	m := mail.NewMsg()
	if err := m.FromFormat("Sable Ridge Security", cfg.From); err != nil {
		return fmt.Errorf("email send: set from: %w", err)
	}
	if err := m.Bcc(recipients...); err != nil {
		return fmt.Errorf("email send: set bcc: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, textBody)
	m.AddAlternativeString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain))
		opts = append(opts, mail.WithUsername(cfg.Username))
		opts = append(opts, mail.WithPassword(cfg.Password))
	}
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("email send: create client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}
