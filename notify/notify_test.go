package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"digitalindian/pkg/site"
)

type fakeStore struct {
	emails []string
	err    error
	calls  int
}

func (f *fakeStore) ListEmails(context.Context) ([]string, error) {
	f.calls++
	return f.emails, f.err
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent   []sentMail
	failTo map[string]bool
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	if f.failTo[to] {
		return errors.New("relay rejected message")
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var rollout = site.ContentItem{Kind: site.KindPost, ID: "p-42", Title: "New 5G Rollout"}

func TestNotifySubscribersSendsToEach(t *testing.T) {
	store := &fakeStore{emails: []string{"a@x.com", "b@x.com"}}
	mailer := &fakeMailer{}
	n := New(store, mailer, Config{BaseURL: "https://example.com", EmailConfigured: true}, testLogger())

	got := n.NotifySubscribers(context.Background(), rollout)

	want := Result{Success: true, Message: "Notifications sent to 2 subscribers.", Sent: 2}
	if got != want {
		t.Errorf("NotifySubscribers() = %+v, want %+v", got, want)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d emails, want 2", len(mailer.sent))
	}
	for i, m := range mailer.sent {
		if m.to != store.emails[i] {
			t.Errorf("email %d to %q, want %q", i, m.to, store.emails[i])
		}
		if !strings.Contains(m.body, "https://example.com/blog/p-42") {
			t.Errorf("email %d missing deep link", i)
		}
		if !strings.Contains(m.body, "New 5G Rollout") {
			t.Errorf("email %d missing title", i)
		}
		if m.subject != "New Blog Post: New 5G Rollout" {
			t.Errorf("email %d subject = %q", i, m.subject)
		}
	}
}

func TestNotifySubscribersPartialFailure(t *testing.T) {
	tests := []struct {
		name     string
		emails   []string
		failTo   map[string]bool
		wantSent int
		wantFail int
		wantMsg  string
	}{
		{
			name:     "one of three fails",
			emails:   []string{"a@x.com", "b@x.com", "c@x.com"},
			failTo:   map[string]bool{"b@x.com": true},
			wantSent: 2,
			wantFail: 1,
			wantMsg:  "Notifications sent to 2 subscribers. 1 failed.",
		},
		{
			name:     "all fail",
			emails:   []string{"a@x.com", "b@x.com"},
			failTo:   map[string]bool{"a@x.com": true, "b@x.com": true},
			wantSent: 0,
			wantFail: 2,
			wantMsg:  "Notifications sent to 0 subscribers. 2 failed.",
		},
		{
			name:     "none fail",
			emails:   []string{"a@x.com"},
			wantSent: 1,
			wantMsg:  "Notifications sent to 1 subscribers.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{failTo: tt.failTo}
			n := New(&fakeStore{emails: tt.emails}, mailer, Config{BaseURL: "https://example.com", EmailConfigured: true}, testLogger())
			got := n.NotifySubscribers(context.Background(), rollout)
			if !got.Success {
				t.Error("Success = false, want true")
			}
			if got.Sent != tt.wantSent || got.Failed != tt.wantFail {
				t.Errorf("Sent/Failed = %d/%d, want %d/%d", got.Sent, got.Failed, tt.wantSent, tt.wantFail)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
			if len(mailer.sent) != len(tt.emails) {
				t.Errorf("send attempts = %d, want %d", len(mailer.sent), len(tt.emails))
			}
		})
	}
}

func TestNotifySubscribersNoSubscribers(t *testing.T) {
	mailer := &fakeMailer{}
	n := New(&fakeStore{}, mailer, Config{BaseURL: "https://example.com", EmailConfigured: true}, testLogger())
	got := n.NotifySubscribers(context.Background(), rollout)
	if !got.Success || got.Message != "No subscribers to notify." {
		t.Errorf("NotifySubscribers() = %+v", got)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("sent %d emails, want 0", len(mailer.sent))
	}
}

func TestNotifySubscribersPreconditions(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing credentials", Config{BaseURL: "https://example.com"}},
		{"missing base url", Config{EmailConfigured: true}},
		{"missing both", Config{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{emails: []string{"a@x.com"}}
			mailer := &fakeMailer{}
			got := New(store, mailer, tt.cfg, testLogger()).NotifySubscribers(context.Background(), rollout)
			if got.Success {
				t.Error("Success = true, want false")
			}
			if got.Message == "" {
				t.Error("Message is empty")
			}
			if store.calls != 0 {
				t.Errorf("store queried %d times, want 0", store.calls)
			}
			if len(mailer.sent) != 0 {
				t.Errorf("sent %d emails, want 0", len(mailer.sent))
			}
		})
	}
}

func TestNotifySubscribersStoreError(t *testing.T) {
	mailer := &fakeMailer{}
	store := &fakeStore{err: errors.New("connection reset")}
	got := New(store, mailer, Config{BaseURL: "https://example.com", EmailConfigured: true}, testLogger()).
		NotifySubscribers(context.Background(), rollout)
	if got.Success {
		t.Error("Success = true, want false")
	}
	if strings.Contains(got.Message, "connection reset") {
		t.Errorf("Message leaks internal error: %q", got.Message)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("sent %d emails, want 0", len(mailer.sent))
	}
}

func TestNotifySubscribersTwiceSendsTwice(t *testing.T) {
	store := &fakeStore{emails: []string{"a@x.com", "b@x.com", "c@x.com"}}
	mailer := &fakeMailer{}
	n := New(store, mailer, Config{BaseURL: "https://example.com", EmailConfigured: true}, testLogger())

	n.NotifySubscribers(context.Background(), rollout)
	n.NotifySubscribers(context.Background(), rollout)

	if len(mailer.sent) != 6 {
		t.Errorf("sent %d emails over two runs, want 6", len(mailer.sent))
	}
	if store.calls != 2 {
		t.Errorf("store queried %d times, want 2", store.calls)
	}
}

func TestDeepLink(t *testing.T) {
	tests := []struct {
		item site.ContentItem
		want string
	}{
		{site.ContentItem{Kind: site.KindPost, ID: "abc"}, "https://example.com/blog/abc"},
		{site.ContentItem{Kind: site.KindUpdate, ID: "u1"}, "https://example.com/blog"},
		{site.ContentItem{Kind: site.KindJob, ID: "j1"}, "https://example.com/career"},
	}
	for _, tt := range tests {
		t.Run(string(tt.item.Kind), func(t *testing.T) {
			if got := DeepLink("https://example.com/", tt.item); got != tt.want {
				t.Errorf("DeepLink() = %q, want %q", got, tt.want)
			}
		})
	}
}
