package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderGroq      = "groq"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

const (
	groqBaseURL   = "https://api.groq.com/openai/v1/"
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// DefaultModels maps each provider to the model used when none is configured.
var DefaultModels = map[string]string{
	ProviderGroq:      "llama-3.1-8b-instant",
	ProviderGemini:    "gemini-1.5-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderOllama:    "llama3.1",
}

var displayNames = map[string]string{
	ProviderGroq:      "Groq",
	ProviderGemini:    "Gemini",
	ProviderOpenAI:    "OpenAI",
	ProviderAnthropic: "Anthropic",
	ProviderOllama:    "Ollama",
}

type ProviderConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // overrides the provider endpoint; required for ollama
	Temperature float64
	MaxTokens   int
}

// NewClient picks the backend once, at construction. A missing API key is
// not an error here: the returned client answers every call with setup
// instructions instead.
func NewClient(cfg ProviderConfig) (Client, error) {
	if _, ok := DefaultModels[cfg.Provider]; !ok {
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModels[cfg.Provider]
	}
	if cfg.Provider != ProviderOllama && cfg.APIKey == "" {
		return &missingKeyClient{provider: cfg.Provider}, nil
	}

	opts := OpenAIOptions{
		Name:        displayNames[cfg.Provider],
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Temperature, cfg.MaxTokens), nil
	case ProviderGroq:
		if opts.BaseURL == "" {
			opts.BaseURL = groqBaseURL
		}
	case ProviderGemini:
		if opts.BaseURL == "" {
			opts.BaseURL = geminiBaseURL
		}
	case ProviderOllama:
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("ollama provider requires a base URL")
		}
		opts.APIKey = "ollama"
	}
	return NewOpenAIClient(opts), nil
}

// APIKeyEnv is the environment variable expected to hold a provider's key.
func APIKeyEnv(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

type missingKeyClient struct {
	provider string
}

func (c *missingKeyClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	return &Response{
		Error: fmt.Sprintf("%s API key not configured.", strings.ToUpper(c.provider)),
		Text: fmt.Sprintf("Please add %s to your .env file.\n\nGet an API key at:\n"+
			"• Groq: https://console.groq.com/\n"+
			"• Gemini: https://aistudio.google.com/\n"+
			"• OpenAI: https://platform.openai.com/\n"+
			"• Anthropic: https://console.anthropic.com/", APIKeyEnv(c.provider)),
	}, nil
}
