package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/AcceptableTrouble/button-buddy/config"
	"github.com/AcceptableTrouble/button-buddy/internal/ranker"
	gemini_provider "github.com/AcceptableTrouble/button-buddy/provider/gemini"
	openai_provider "github.com/AcceptableTrouble/button-buddy/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	None   Client = ""
	OpenAI Client = "openai"
	Gemini Client = "gemini"
)

// NewOracle creates the remote ranking model selected by cfg. It returns a nil
// oracle and no error when no provider or key is configured; the ranker then
// runs on local scores only.
func NewOracle(ctx context.Context, cfg config.LLMConfig) (ranker.Oracle, error) {
	client := Client(strings.ToLower(strings.TrimSpace(cfg.Provider)))
	if client == None {
		return nil, nil
	}
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, nil
		}
		return openai_provider.NewOpenAIClient(
			cfg.APIKey,
			cfg.Model,
			cfg.Temperature,
			cfg.MaxTokens,
			openai_provider.WithBaseURL(cfg.BaseURL),
			openai_provider.WithHTTPClient(&http.Client{}),
		), nil
	case Gemini:
		if cfg.APIKey == "" {
			return nil, nil
		}
		c, err := gemini_provider.NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
