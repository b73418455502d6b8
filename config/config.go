// Package config builds the service configuration once at startup.
//
// Values come from an optional YAML file and are then overridden by environment
// variables. The resulting Config is passed explicitly to every component; nothing
// else in the service reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Email    EmailConfig    `yaml:"email"`
	Chat     ChatConfig     `yaml:"chat"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	LogLevel string         `yaml:"log_level"`
}

// ServerConfig controls the HTTP listener and link generation.
type ServerConfig struct {
	Port    string `yaml:"port"`
	BaseURL string `yaml:"base_url"` // Public site URL used in email deep links
}

// EmailConfig holds the outbound mail account.
type EmailConfig struct {
	Provider     string `yaml:"provider"` // smtp | brevo | gmail | mock
	User         string `yaml:"user"`     // Sending account address
	Pass         string `yaml:"pass"`     // Password, API key or credentials JSON depending on provider
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	FromName     string `yaml:"from_name"`
	ContactInbox string `yaml:"contact_inbox"` // Receives contact form and job application mail
	SendAttempts uint   `yaml:"send_attempts"` // Retries welcome, contact and application mail; fan-out sends go once
}

// ChatConfig selects and tunes the generative text backend.
type ChatConfig struct {
	Provider      string        `yaml:"provider"` // gemini | openai
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	GeminiModel   string        `yaml:"gemini_model"`
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	OpenAIAPIBase string        `yaml:"openai_api_base"`
	OpenAIModel   string        `yaml:"openai_model"`
	Timeout       time.Duration `yaml:"timeout"`
	Attempts      uint          `yaml:"attempts"`
}

// DatabaseConfig points at the relational backing store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite
	URL    string `yaml:"url"`
}

// StorageConfig points at the image object store.
type StorageConfig struct {
	Bucket    string `yaml:"bucket"`
	LocalPath string `yaml:"local_path"`
	PublicURL string `yaml:"public_url"` // Prefix for public object URLs
}

// AuthConfig verifies admin sessions issued by the hosted auth service.
type AuthConfig struct {
	JWTSecret   string   `yaml:"jwt_secret"`
	AdminEmails []string `yaml:"admin_emails"`
}

// Default returns a Config populated with defaults for every optional field.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Email: EmailConfig{
			Provider:     "smtp",
			SMTPHost:     "smtp.gmail.com",
			SMTPPort:     465,
			FromName:     "Digital Indian",
			SendAttempts: 3,
		},
		Chat: ChatConfig{
			Provider:    "gemini",
			GeminiModel: "gemini-1.5-flash-latest",
			OpenAIModel: "gpt-4o-mini",
			Timeout:     20 * time.Second,
			Attempts:    2,
		},
		Database: DatabaseConfig{Driver: "sqlite", URL: "data/digitalindian.db"},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path (if non-empty and present) and applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("unmarshal config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// Environment-only configuration.
		default:
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
	return cfg, nil
}

// EmailConfigured reports whether the mail credential pair is present.
func (c *Config) EmailConfigured() bool {
	return c.Email.User != "" && c.Email.Pass != ""
}

// IsAdmin reports whether email is on the admin allow-list. An empty list admits
// every authenticated user.
func (c *AuthConfig) IsAdmin(email string) bool {
	if len(c.AdminEmails) == 0 {
		return true
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.AdminEmails {
		if strings.ToLower(strings.TrimSpace(a)) == email {
			return true
		}
	}
	return false
}
