package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAIComplete(t *testing.T) {
	var gotAuth string
	var gotReq oaiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello there"},"finish_reason":"stop"}]}`)) //nolint:errcheck // test
	}))
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", APIBase: srv.URL + "/v1/", Logger: testLogger()})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	got, err := o.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Hello there" {
		t.Errorf("Complete() = %q", got)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" || len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "hi" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestOpenAIClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "sk-bad", APIBase: srv.URL, Logger: testLogger()})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	r := NewResponder(o, testLogger(), WithAttempts(3))
	if got := r.Answer(context.Background(), "tell me a story"); !got.Failed() {
		t.Errorf("Answer() = %+v, want fallback", got)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("backend called %d times, want 1", n)
	}
}

func TestGeminiComplete(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Namaste "},{"text":"from Gemini"}]}}]}`)) //nolint:errcheck // test
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), GeminiConfig{
		APIKey:     "gm-key",
		BaseURL:    srv.URL + "/",
		HTTPClient: srv.Client(),
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("NewGemini() error = %v", err)
	}
	got, err := g.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Namaste from Gemini" {
		t.Errorf("Complete() = %q", got)
	}
	if !strings.Contains(gotPath, "models/gemini-1.5-flash-latest:generateContent") {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "gm-key" {
		t.Errorf("api key header = %q", gotKey)
	}
}

func TestGeminiStatusRetries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"bad request not retried", http.StatusBadRequest, 1},
		{"forbidden not retried", http.StatusForbidden, 1},
		{"rate limited retried", http.StatusTooManyRequests, 2},
		{"server error retried", http.StatusInternalServerError, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"code":` + strconv.Itoa(tt.status) + `,"message":"nope","status":"FAILED"}}`)) //nolint:errcheck // test
			}))
			defer srv.Close()

			g, err := NewGemini(context.Background(), GeminiConfig{
				APIKey:     "gm-key",
				BaseURL:    srv.URL + "/",
				HTTPClient: srv.Client(),
				Logger:     testLogger(),
			})
			if err != nil {
				t.Fatalf("NewGemini() error = %v", err)
			}
			r := NewResponder(g, testLogger(), WithAttempts(2), WithRetryDelay(time.Millisecond))
			if got := r.Answer(context.Background(), "tell me a story"); !got.Failed() {
				t.Errorf("Answer() = %+v, want fallback", got)
			}
			if n := calls.Load(); n != tt.wantCalls {
				t.Errorf("backend called %d times, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), GeminiConfig{Logger: testLogger()}); err == nil {
		t.Error("NewGemini() error = nil, want error")
	}
}
