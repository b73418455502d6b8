package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/wneessen/go-mail"
)

// SMTPProvider sends emails through an authenticated SMTP relay (Gmail by default).
type SMTPProvider struct {
	host     string
	port     int
	user     string
	pass     string
	fromName string
	attempts uint
	logger   *slog.Logger
}

// NewSMTPProvider creates a new SMTP email provider. Port 465 uses implicit TLS,
// every other port uses STARTTLS.
func NewSMTPProvider(host string, port int, user, pass, fromName string, attempts uint, logger *slog.Logger) *SMTPProvider {
	if attempts == 0 {
		attempts = 1
	}
	return &SMTPProvider{
		host:     host,
		port:     port,
		user:     user,
		pass:     pass,
		fromName: fromName,
		attempts: attempts,
		logger:   logger,
	}
}

// Send sends an email via SMTP.
func (p *SMTPProvider) Send(ctx context.Context, msg *Message) error {
	m, err := buildMsg(p.fromName, p.user, msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(p.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(p.user),
		mail.WithPassword(p.pass),
		mail.WithTimeout(30 * time.Second),
	}
	if p.port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	client, err := mail.NewClient(p.host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	return retry.Do(
		func() error {
			startTime := time.Now()
			err := client.DialAndSendWithContext(ctx, m)
			duration := time.Since(startTime)
			if err != nil {
				p.logger.Warn("SMTP send failed",
					"to", msg.To,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}

			p.logger.Info("SMTP send completed",
				"host", p.host,
				"to", msg.To,
				"duration_ms", duration.Milliseconds())
			return nil
		},
		retry.Attempts(msg.attempts(p.attempts)),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Info("Retrying SMTP send after error", "attempt", n, "error", err)
		}),
	)
}

// buildMsg converts a Message into a go-mail message. It is shared by the SMTP
// and Gmail providers so both produce identical MIME output.
func buildMsg(fromName, fromAddr string, msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if fromAddr != "" {
		if err := m.FromFormat(fromName, fromAddr); err != nil {
			return nil, fmt.Errorf("set from: %w", err)
		}
	}
	if err := m.To(sanitizeEmailHeader(msg.To)); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(sanitizeEmailHeader(msg.ReplyTo)); err != nil {
			return nil, fmt.Errorf("set reply-to: %w", err)
		}
	}
	m.Subject(sanitizeEmailHeader(msg.Subject))
	m.SetDate()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	for _, a := range msg.Attachments {
		var fileOpts []mail.FileOption
		if a.ContentType != "" {
			fileOpts = append(fileOpts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Data), fileOpts...); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return m, nil
}
