// Package chat answers messages from the site's chat widget.
//
// A message is routed through a fixed set of rules, first match wins: a date
// question is answered from the server clock, a known FAQ question gets its
// canned answer, and anything else is forwarded to a generative text backend.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Fixed replies shown to the user.
const (
	EmptyMessageReply = "I'm sorry, but I didn't receive a message. How can I help you?"
	TroubleReply      = "I'm having trouble generating a response right now."
	RephraseReply     = "I'm sorry, I couldn't process that. Could you please rephrase?"
)

const dateLayout = "Monday, January 2, 2006"

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Source records which rule produced a reply.
type Source string

const (
	SourceEmpty     Source = "empty"
	SourceDate      Source = "date"
	SourceFAQ       Source = "faq"
	SourceGenerated Source = "generated"
	SourceRephrase  Source = "rephrase" // Backend returned nothing
	SourceFallback  Source = "fallback" // Backend failed or is not configured
)

// Reply is the outcome of routing one message.
type Reply struct {
	Text   string
	Source Source
}

// Failed reports whether the reply is an apology standing in for a backend answer.
func (r Reply) Failed() bool {
	return r.Source == SourceFallback
}

var errEmptyCompletion = errors.New("empty completion")

// Responder routes chat messages. It holds no per-conversation state and is safe
// for concurrent use.
type Responder struct {
	generator  TextGenerator
	logger     *slog.Logger
	now        func() time.Time
	timeout    time.Duration
	attempts   uint
	retryDelay time.Duration
}

// Option configures a Responder.
type Option func(*Responder)

// WithClock overrides the time source used for date answers.
func WithClock(now func() time.Time) Option {
	return func(r *Responder) { r.now = now }
}

// WithTimeout bounds each call to the generative backend.
func WithTimeout(d time.Duration) Option {
	return func(r *Responder) { r.timeout = d }
}

// WithAttempts sets how many times a failing backend call is tried.
func WithAttempts(n uint) Option {
	return func(r *Responder) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithRetryDelay sets the initial delay between backend attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Responder) { r.retryDelay = d }
}

// NewResponder creates a Responder. generator may be nil when no backend is
// configured, in which case unmatched messages get the apology reply.
func NewResponder(generator TextGenerator, logger *slog.Logger, opts ...Option) *Responder {
	r := &Responder{
		generator:  generator,
		logger:     logger,
		now:        time.Now,
		timeout:    20 * time.Second,
		attempts:   2,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond returns the reply text for message. It never fails.
func (r *Responder) Respond(ctx context.Context, message string) string {
	return r.Answer(ctx, message).Text
}

// Answer routes message and reports which rule produced the reply.
func (r *Responder) Answer(ctx context.Context, message string) Reply {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return Reply{Text: EmptyMessageReply, Source: SourceEmpty}
	}

	if strings.Contains(normalized, "date") || strings.Contains(normalized, "today") {
		return Reply{
			Text:   fmt.Sprintf("Hello! Today is %s.", r.now().Format(dateLayout)),
			Source: SourceDate,
		}
	}

	if answer, ok := matchFAQ(normalized); ok {
		return Reply{Text: answer, Source: SourceFAQ}
	}

	return r.generate(ctx, strings.TrimSpace(message))
}

func (r *Responder) generate(ctx context.Context, message string) Reply {
	if r.generator == nil {
		r.logger.Error("Generative backend not configured; set GEMINI_API_KEY or OPENAI_API_KEY")
		return Reply{Text: TroubleReply, Source: SourceFallback}
	}

	prompt := Prompt(message)
	var text string
	var empty bool
	start := time.Now()
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			out, err := r.generator.Complete(callCtx, prompt)
			if err != nil {
				empty = false
				return err
			}
			if strings.TrimSpace(out) == "" {
				empty = true
				return retry.Unrecoverable(errEmptyCompletion)
			}
			text = out
			return nil
		},
		retry.Attempts(r.attempts),
		retry.Delay(r.retryDelay),
		retry.MaxDelay(5*time.Second),
		retry.MaxJitter(250*time.Millisecond),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("Retrying generative backend after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		if empty {
			r.logger.Warn("Generative backend returned an empty completion",
				"duration_ms", time.Since(start).Milliseconds())
			return Reply{Text: RephraseReply, Source: SourceRephrase}
		}
		r.logger.Error("Generative backend call failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return Reply{Text: TroubleReply, Source: SourceFallback}
	}

	r.logger.Debug("Generated chat reply",
		"duration_ms", time.Since(start).Milliseconds(),
		"reply_length", len(text))
	return Reply{Text: text, Source: SourceGenerated}
}

// Prompt wraps a user message in the assistant persona preamble.
func Prompt(message string) string {
	return "You are a friendly and helpful AI assistant for a company called 'Digital Indian'. " +
		"Your goal is to provide concise and professional responses. " +
		fmt.Sprintf("The user asked: %q. ", message) +
		"Based on the user's question, provide a relevant and helpful answer about the company or its services. " +
		"If the question is outside of your scope, politely say that you can only answer questions related to Digital Indian."
}
