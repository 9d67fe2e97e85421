package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/chris/todoagent/internal/llm"
	"github.com/chris/todoagent/internal/todo"
)

type Config struct {
	LLMProvider    string // groq, gemini, openai, anthropic, ollama
	GroqKey        string
	GeminiKey      string
	OpenAIKey      string
	AnthropicKey   string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	OllamaBaseURL  string

	DatabasePath string
	StorageKey   string

	FuzzyThreshold     float64
	SuggestMinScore    int
	SuggestPrefixBonus int

	DiscordToken   string
	DiscordWebhook string
	DigestCron     string

	LogLevel string

	// Warnings lists values that were ignored in favour of defaults. They
	// are reported once logging is set up.
	Warnings []string
}

// Load reads configuration from the environment, after merging in a .env
// file from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load() // ignore error if no .env

	match := todo.DefaultMatchConfig()
	cfg := &Config{
		LLMProvider:    strings.ToLower(envOr("LLM_PROVIDER", llm.ProviderGroq)),
		GroqKey:        os.Getenv("GROQ_API_KEY"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		OllamaBaseURL:  envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		DatabasePath:   envOr("DATABASE_PATH", "./todos.db"),
		StorageKey:     envOr("STORAGE_KEY", "todos"),
		DiscordToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordWebhook: os.Getenv("DISCORD_WEBHOOK_URL"),
		DigestCron:     envOr("DIGEST_CRON", "0 8 * * *"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
	}
	if v, ok := os.LookupEnv("DIGEST_CRON"); ok && strings.TrimSpace(v) == "" {
		cfg.DigestCron = "" // explicitly disabled
	}

	cfg.LLMTemperature = cfg.envFloat("LLM_TEMPERATURE", 0.7)
	cfg.LLMMaxTokens = cfg.envInt("LLM_MAX_TOKENS", 1000)
	cfg.FuzzyThreshold = cfg.envFloat("FUZZY_MATCH_THRESHOLD", match.Threshold)
	cfg.SuggestMinScore = cfg.envInt("SUGGEST_MIN_SCORE", match.MinSuggestScore)
	cfg.SuggestPrefixBonus = cfg.envInt("SUGGEST_PREFIX_BONUS", match.PrefixBonus)
	return cfg
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case llm.ProviderGroq:
		return c.GroqKey
	case llm.ProviderGemini:
		return c.GeminiKey
	case llm.ProviderOpenAI:
		return c.OpenAIKey
	case llm.ProviderAnthropic:
		return c.AnthropicKey
	}
	return ""
}

// Provider builds the completion backend settings.
func (c *Config) Provider() llm.ProviderConfig {
	pc := llm.ProviderConfig{
		Provider:    c.LLMProvider,
		APIKey:      c.APIKey(),
		Model:       c.LLMModel,
		Temperature: c.LLMTemperature,
		MaxTokens:   c.LLMMaxTokens,
	}
	if c.LLMProvider == llm.ProviderOllama {
		pc.BaseURL = c.OllamaBaseURL
	}
	return pc
}

// MatchConfig returns the title matching thresholds.
func (c *Config) MatchConfig() todo.MatchConfig {
	m := todo.DefaultMatchConfig()
	m.Threshold = c.FuzzyThreshold
	m.MinSuggestScore = c.SuggestMinScore
	m.PrefixBonus = c.SuggestPrefixBonus
	return m
}

func (c *Config) envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using %v", key, v, fallback))
		return fallback
	}
	return f
}

func (c *Config) envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using %d", key, v, fallback))
		return fallback
	}
	return n
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
