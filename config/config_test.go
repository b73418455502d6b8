package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "BASE_URL", "NEXT_PUBLIC_BASE_URL", "EMAIL_PROVIDER", "EMAIL_USER", "EMAIL_PASS",
		"EMAIL_FROM_NAME", "CONTACT_INBOX", "SMTP_HOST", "SMTP_PORT", "EMAIL_SEND_ATTEMPTS",
		"CHAT_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "OPENAI_API_KEY", "OPENAI_API_BASE",
		"OPENAI_MODEL", "CHAT_TIMEOUT", "CHAT_ATTEMPTS", "DATABASE_DRIVER", "DATABASE_URL",
		"STORAGE_BUCKET", "LOCAL_STORAGE", "PUBLIC_STORAGE_URL", "AUTH_JWT_SECRET", "ADMIN_EMAILS",
		"LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
server:
  port: "9000"
  base_url: "https://file.example.com/"
email:
  user: "file@example.com"
  pass: "file-pass"
chat:
  timeout: 5s
database:
  driver: postgres
  url: "postgres://localhost/site"
`
	if err := os.WriteFile(path, []byte(yamlData), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EMAIL_PASS", "env-pass")
	t.Setenv("CHAT_ATTEMPTS", "4")
	t.Setenv("ADMIN_EMAILS", "a@x.com, b@x.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "https://file.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.Server.BaseURL)
	}
	if cfg.Email.Pass != "env-pass" {
		t.Errorf("Email.Pass = %q, want env override", cfg.Email.Pass)
	}
	if cfg.Email.SMTPHost != "smtp.gmail.com" {
		t.Errorf("SMTPHost = %q, want default kept", cfg.Email.SMTPHost)
	}
	if cfg.Chat.Timeout != 5*time.Second {
		t.Errorf("Chat.Timeout = %v, want 5s", cfg.Chat.Timeout)
	}
	if cfg.Chat.Attempts != 4 {
		t.Errorf("Chat.Attempts = %d, want 4", cfg.Chat.Attempts)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if len(cfg.Auth.AdminEmails) != 2 || cfg.Auth.AdminEmails[1] != "b@x.com" {
		t.Errorf("AdminEmails = %v", cfg.Auth.AdminEmails)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEXT_PUBLIC_BASE_URL", "https://legacy.example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.BaseURL != "https://legacy.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.EmailConfigured() {
		t.Error("EmailConfigured() = true with no credentials")
	}
}

func TestApplyEnvOverridesInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad smtp port", key: "SMTP_PORT", val: "abc"},
		{name: "bad chat timeout", key: "CHAT_TIMEOUT", val: "soon"},
		{name: "bad send attempts", key: "EMAIL_SEND_ATTEMPTS", val: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if err := ApplyEnvOverrides(Default()); err == nil {
				t.Errorf("ApplyEnvOverrides() with %s=%q: expected error", tt.key, tt.val)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name   string
		admins []string
		email  string
		want   bool
	}{
		{name: "empty list admits all", admins: nil, email: "anyone@x.com", want: true},
		{name: "listed", admins: []string{"Boss@X.com"}, email: "boss@x.com", want: true},
		{name: "not listed", admins: []string{"boss@x.com"}, email: "intern@x.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &AuthConfig{AdminEmails: tt.admins}
			if got := a.IsAdmin(tt.email); got != tt.want {
				t.Errorf("IsAdmin(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}
