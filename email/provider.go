// Package email handles sending site emails via multiple providers.
package email

import (
	"context"
	"log/slog"
	"strings"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single outbound email.
type Message struct {
	To          string
	ReplyTo     string
	Subject     string
	HTML        string
	Attachments []Attachment

	// SingleAttempt disables provider retries. A failed send is reported once.
	SingleAttempt bool
}

func (m *Message) attempts(configured uint) uint {
	if m.SingleAttempt || configured == 0 {
		return 1
	}
	return configured
}

// Provider defines the interface for email sending implementations.
type Provider interface {
	// Send delivers msg. Implementations retry transient failures internally
	// unless msg.SingleAttempt is set.
	Send(ctx context.Context, msg *Message) error
}

// Sender sends site emails using a pluggable provider.
type Sender struct {
	provider     Provider
	logger       *slog.Logger
	baseURL      string // For links in emails
	contactInbox string // Receives contact form and job application mail
}

// New creates a new email sender with the given provider.
func New(provider Provider, logger *slog.Logger, baseURL, contactInbox string) *Sender {
	return &Sender{
		provider:     provider,
		logger:       logger,
		baseURL:      strings.TrimRight(baseURL, "/"),
		contactInbox: contactInbox,
	}
}

// Send sends a single HTML email exactly once. It is the primitive used by
// subscriber fan-out, where a failed send is counted rather than retried.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.Debug("Sending email", "to", to, "subject", subject)
	return s.provider.Send(ctx, &Message{To: to, Subject: subject, HTML: htmlBody, SingleAttempt: true})
}

// SendWelcome sends the newsletter welcome email to a new subscriber.
func (s *Sender) SendWelcome(ctx context.Context, to string) error {
	s.logger.Info("Sending welcome email", "to", to)
	return s.provider.Send(ctx, &Message{
		To:      to,
		Subject: "Welcome to the Digital Indian Newsletter!",
		HTML:    s.formatWelcomeBody(),
	})
}

// ContactForm is a message submitted through the public contact page.
type ContactForm struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// SendContact forwards a contact form submission to the contact inbox.
func (s *Sender) SendContact(ctx context.Context, form *ContactForm) error {
	s.logger.Info("Sending contact email", "from", form.Email, "subject", form.Subject)
	return s.provider.Send(ctx, &Message{
		To:      s.contactInbox,
		ReplyTo: form.Email,
		Subject: "New Contact Form Submission: " + form.Subject,
		HTML:    formatContactBody(form),
	})
}

// Application is a job application with an attached resume.
type Application struct {
	Name     string
	Email    string
	Message  string
	JobTitle string
	Resume   Attachment
}

// SendApplication forwards a job application, resume attached, to the contact inbox.
func (s *Sender) SendApplication(ctx context.Context, app *Application) error {
	s.logger.Info("Sending job application email",
		"from", app.Email,
		"job_title", app.JobTitle,
		"resume_bytes", len(app.Resume.Data))
	return s.provider.Send(ctx, &Message{
		To:          s.contactInbox,
		ReplyTo:     app.Email,
		Subject:     "New Job Application for " + app.JobTitle + " from " + app.Name,
		HTML:        formatApplicationBody(app),
		Attachments: []Attachment{app.Resume},
	})
}

// sanitizeEmailHeader removes newlines and control characters to prevent header injection.
func sanitizeEmailHeader(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return result.String()
}
