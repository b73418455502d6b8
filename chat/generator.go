package chat

import (
	"context"
	"fmt"
	"log/slog"

	"digitalindian/config"
)

// NewGenerator builds the generator selected by cfg. It returns nil without error
// when the selected backend has no API key, leaving the Responder to answer
// unmatched messages with an apology.
func NewGenerator(ctx context.Context, cfg config.ChatConfig, logger *slog.Logger) (TextGenerator, error) {
	switch cfg.Provider {
	case "", "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set; chat fallback disabled")
			return nil, nil
		}
		return NewGemini(ctx, GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Logger: logger,
		})
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set; chat fallback disabled")
			return nil, nil
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			APIBase: cfg.OpenAIAPIBase,
			Model:   cfg.OpenAIModel,
			Logger:  logger,
		})
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}
