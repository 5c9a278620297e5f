package app

import (
	"context"
	"fmt"

	"github.com/markdave123-py/Learnify/internal/config"
	"github.com/markdave123-py/Learnify/internal/core"
	"github.com/markdave123-py/Learnify/internal/core/generation_engine"
	"github.com/markdave123-py/Learnify/internal/core/llm"
	"github.com/markdave123-py/Learnify/internal/logger"
)

// NewLLM builds Groq as primary and Gemini as rate-limit fallback, using
// whichever keys are configured. The returned close func releases the Gemini client.
func NewLLM(ctx context.Context, cfg *config.Config) (core.LLMProvider, func() error, error) {
	var primary, secondary core.LLMProvider
	closeFn := func() error { return nil }

	if cfg.GroqAPIKey != "" {
		groq, err := llm.NewGroqLLM(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel, cfg.GroqRPM)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't initialize groq, %w", err)
		}
		primary = groq
		logger.Info("groq provider ready", "model", cfg.GroqModel, "rpm", cfg.GroqRPM)
	}

	if cfg.AIAPIKey != "" {
		gemini, err := llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't initialize gemini, %w", err)
		}
		secondary = gemini
		closeFn = gemini.Close
		logger.Info("gemini provider ready", "model", cfg.GenModel)
	}

	provider, err := llm.NewFallbackLLM(primary, secondary)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return provider, closeFn, nil
}

// NewGenerator builds the quiz and summary generator on top of provider.
func NewGenerator(cfg *config.Config, provider core.LLMProvider) *generation_engine.Generator {
	return generation_engine.NewGenerator(provider, cfg.MaxInputTokens)
}
