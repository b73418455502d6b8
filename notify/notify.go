// Package notify fans a newly published content item out to every newsletter subscriber.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"digitalindian/email"
	"digitalindian/metrics"
	"digitalindian/pkg/site"
)

// SubscriberStore lists subscriber addresses.
type SubscriberStore interface {
	ListEmails(ctx context.Context) ([]string, error)
}

// Mailer sends one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Result is the outcome of a fan-out run.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

// Config holds the preconditions for a run.
type Config struct {
	BaseURL         string // Public site URL used for deep links
	EmailConfigured bool   // Whether the mail credential pair is present
}

// Notifier runs notification fan-outs.
type Notifier struct {
	store   SubscriberStore
	mailer  Mailer
	logger  *slog.Logger
	baseURL string
	emailOK bool
}

// New creates a Notifier.
func New(store SubscriberStore, mailer Mailer, cfg Config, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:   store,
		mailer:  mailer,
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		emailOK: cfg.EmailConfigured,
	}
}

// DeepLink returns the public page for item.
func DeepLink(baseURL string, item site.ContentItem) string {
	baseURL = strings.TrimRight(baseURL, "/")
	switch item.Kind {
	case site.KindUpdate:
		return baseURL + "/blog"
	case site.KindJob:
		return baseURL + "/career"
	default:
		return baseURL + "/blog/" + item.ID
	}
}

// NotifySubscribers emails item to every subscriber, one at a time. Individual send
// failures are counted and do not stop the run. The subscriber list is read once
// at the start; nothing is recorded, so a second call emails everyone again.
func (n *Notifier) NotifySubscribers(ctx context.Context, item site.ContentItem) Result {
	kind := string(item.Kind)
	if !n.emailOK {
		n.logger.Error("Email credentials not configured; set EMAIL_USER and EMAIL_PASS", "item_id", item.ID)
		metrics.NotificationRuns.WithLabelValues(kind, "misconfigured").Inc()
		return Result{Message: "Email service is not configured on the server."}
	}
	if n.baseURL == "" {
		n.logger.Error("Base URL not configured; set BASE_URL", "item_id", item.ID)
		metrics.NotificationRuns.WithLabelValues(kind, "misconfigured").Inc()
		return Result{Message: "Site base URL is not configured on the server."}
	}

	emails, err := n.store.ListEmails(ctx)
	if err != nil {
		n.logger.Error("Failed to fetch subscribers", "item_id", item.ID, "error", err)
		metrics.NotificationRuns.WithLabelValues(kind, "store_error").Inc()
		return Result{Message: "Could not fetch subscribers."}
	}
	if len(emails) == 0 {
		n.logger.Info("No subscribers to notify", "kind", kind, "item_id", item.ID)
		metrics.NotificationRuns.WithLabelValues(kind, "no_subscribers").Inc()
		return Result{Success: true, Message: "No subscribers to notify."}
	}

	link := DeepLink(n.baseURL, item)
	subject := email.NewContentSubject(item)
	body := email.FormatNewContentBody(item, link)

	start := time.Now()
	n.logger.Info("Starting notification fan-out",
		"kind", kind,
		"item_id", item.ID,
		"title", item.Title,
		"subscribers", len(emails))

	var res Result
	for _, addr := range emails {
		if err := n.mailer.Send(ctx, addr, subject, body); err != nil {
			res.Failed++
			n.logger.Warn("Notification send failed", "to", addr, "item_id", item.ID, "error", err)
			metrics.NotificationEmails.WithLabelValues(kind, "failed").Inc()
			continue
		}
		res.Sent++
		metrics.NotificationEmails.WithLabelValues(kind, "sent").Inc()
	}

	res.Success = true
	res.Message = fmt.Sprintf("Notifications sent to %d subscribers.", res.Sent)
	if res.Failed > 0 {
		res.Message += fmt.Sprintf(" %d failed.", res.Failed)
	}

	n.logger.Info("Notification fan-out completed",
		"kind", kind,
		"item_id", item.ID,
		"sent", res.Sent,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds())
	metrics.NotificationRuns.WithLabelValues(kind, "completed").Inc()
	return res
}
