package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides reads configuration values from environment variables and
// overrides fields in the provided Config. Returns an error if parsing fails.
//
// Environment variables supported:
// - PORT, BASE_URL (NEXT_PUBLIC_BASE_URL accepted as a fallback)
// - EMAIL_PROVIDER, EMAIL_USER, EMAIL_PASS, EMAIL_FROM_NAME, CONTACT_INBOX
// - SMTP_HOST, SMTP_PORT (int), EMAIL_SEND_ATTEMPTS (int)
// - CHAT_PROVIDER, GEMINI_API_KEY, GEMINI_MODEL, OPENAI_API_KEY, OPENAI_API_BASE, OPENAI_MODEL
// - CHAT_TIMEOUT (duration, e.g. "20s"), CHAT_ATTEMPTS (int)
// - DATABASE_DRIVER, DATABASE_URL
// - STORAGE_BUCKET, LOCAL_STORAGE, PUBLIC_STORAGE_URL
// - AUTH_JWT_SECRET, ADMIN_EMAILS (comma separated)
// - LOG_LEVEL
func ApplyEnvOverrides(cfg *Config) error {
	applyServerEnv(cfg)

	if err := applyEmailEnv(cfg); err != nil {
		return err
	}
	if err := applyChatEnv(cfg); err != nil {
		return err
	}

	setString("DATABASE_DRIVER", &cfg.Database.Driver)
	setString("DATABASE_URL", &cfg.Database.URL)

	setString("STORAGE_BUCKET", &cfg.Storage.Bucket)
	setString("LOCAL_STORAGE", &cfg.Storage.LocalPath)
	setString("PUBLIC_STORAGE_URL", &cfg.Storage.PublicURL)

	setString("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		cfg.Auth.AdminEmails = splitList(v)
	}

	setString("LOG_LEVEL", &cfg.LogLevel)
	return nil
}

func applyServerEnv(cfg *Config) {
	setString("PORT", &cfg.Server.Port)
	setString("NEXT_PUBLIC_BASE_URL", &cfg.Server.BaseURL)
	setString("BASE_URL", &cfg.Server.BaseURL)
}

func applyEmailEnv(cfg *Config) error {
	setString("EMAIL_PROVIDER", &cfg.Email.Provider)
	setString("EMAIL_USER", &cfg.Email.User)
	setString("EMAIL_PASS", &cfg.Email.Pass)
	setString("EMAIL_FROM_NAME", &cfg.Email.FromName)
	setString("CONTACT_INBOX", &cfg.Email.ContactInbox)
	setString("SMTP_HOST", &cfg.Email.SMTPHost)
	if v := os.Getenv("SMTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		cfg.Email.SMTPPort = n
	}
	if v := os.Getenv("EMAIL_SEND_ATTEMPTS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid EMAIL_SEND_ATTEMPTS: %w", err)
		}
		cfg.Email.SendAttempts = uint(n)
	}
	return nil
}

func applyChatEnv(cfg *Config) error {
	setString("CHAT_PROVIDER", &cfg.Chat.Provider)
	setString("GEMINI_API_KEY", &cfg.Chat.GeminiAPIKey)
	setString("GEMINI_MODEL", &cfg.Chat.GeminiModel)
	setString("OPENAI_API_KEY", &cfg.Chat.OpenAIAPIKey)
	setString("OPENAI_API_BASE", &cfg.Chat.OpenAIAPIBase)
	setString("OPENAI_MODEL", &cfg.Chat.OpenAIModel)
	if v := os.Getenv("CHAT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CHAT_TIMEOUT: %w", err)
		}
		cfg.Chat.Timeout = d
	}
	if v := os.Getenv("CHAT_ATTEMPTS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid CHAT_ATTEMPTS: %w", err)
		}
		cfg.Chat.Attempts = uint(n)
	}
	return nil
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
