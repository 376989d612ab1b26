package perception

import (
	"context"
	"errors"
	"fmt"
	"time"

	"diagmend/internal/config"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderZAI    Provider = "zai"
	ProviderGemini Provider = "gemini"
)

// ErrNoProvider is returned when no provider is configured. The pipeline
// treats a nil client as "AI correction unavailable" and fails blocks that
// the pattern repairer could not fix.
var ErrNoProvider = errors.New("no LLM provider configured")

// zaiBaseURL is the Z.AI OpenAI-compatible endpoint.
const zaiBaseURL = "https://api.z.ai/api/paas/v4"

// NewClient builds an LLMClient from the resolved LLM config.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY, ZAI_API_KEY or GEMINI_API_KEY", ErrNoProvider)
	}

	switch Provider(cfg.Provider) {
	case ProviderOpenAI:
		oc := DefaultOpenAIConfig(cfg.APIKey)
		applyOverrides(&oc, cfg)
		return NewOpenAIClientWithConfig(oc), nil

	case ProviderZAI:
		oc := DefaultOpenAIConfig(cfg.APIKey)
		oc.BaseURL = zaiBaseURL
		oc.Model = "glm-4.5-air"
		applyOverrides(&oc, cfg)
		return NewOpenAIClientWithConfig(oc), nil

	case ProviderGemini:
		gc := DefaultGeminiConfig(cfg.APIKey)
		if cfg.Model != "" {
			gc.Model = cfg.Model
		}
		if cfg.MaxTokens > 0 {
			gc.MaxTokens = cfg.MaxTokens
		}
		if cfg.Temperature > 0 {
			gc.Temperature = cfg.Temperature
		}
		return NewGeminiClientWithConfig(ctx, gc)

	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProvider, cfg.Provider)
	}
}

func applyOverrides(oc *OpenAIConfig, cfg config.LLMConfig) {
	if cfg.Model != "" {
		oc.Model = cfg.Model
	}
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens > 0 {
		oc.MaxTokens = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		oc.Temperature = cfg.Temperature
	}
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil {
			oc.Timeout = d
		}
	}
}
