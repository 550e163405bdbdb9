// Package config provides configuration management for the campus assistant bot.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds the configuration for the bot
type Config struct {
	Provider        string // Completion provider: "anthropic" or "openai"
	AnthropicAPIKey string
	OpenAIAPIKey    string
	Model           string
	MaxOutputTokens int64

	BotName string // The assistant's display name, used by the activation gate
	BotTone string // Persona tone injected ahead of each free-form human turn

	KnowledgeDBPath string // SQLite database holding the courses and QA collections
	HistoryDBPath   string // SQLite database holding conversation transcripts
	BleveIndexPath  string // Optional bleve index directory; empty disables it

	MaxPromptTurns int // Conversation buffer window; 0 keeps every turn
	MaxUsers       int // Prompt store capacity; 0 keeps every user

	TelemetryEnabled bool
	OTLPEndpoint     string
}

// Load loads configuration from environment variables
func Load() Config {
	cfg := Config{
		Provider:        getEnvDefault("COMPLETION_PROVIDER", ProviderAnthropic),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		Model:           os.Getenv("COMPLETION_MODEL"),
		MaxOutputTokens: 1024,

		BotName: getEnvDefault("BOT_NAME", "通通夠"),
		BotTone: getEnvDefault("BOT_TONE", "活潑"),

		KnowledgeDBPath: getEnvDefault("KNOWLEDGE_DB_PATH", "campusbot.db"),
		HistoryDBPath:   getEnvDefault("HISTORY_DB_PATH", "campusbot.db"),
		BleveIndexPath:  os.Getenv("BLEVE_INDEX_PATH"),

		TelemetryEnabled: os.Getenv("TELEMETRY_ENABLED") == "true",
		OTLPEndpoint:     os.Getenv("OTLP_ENDPOINT"),
	}

	if v := os.Getenv("MAX_OUTPUT_TOKENS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxOutputTokens = n
		}
	}
	if v := os.Getenv("MAX_PROMPT_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPromptTurns = n
		}
	}
	if v := os.Getenv("MAX_USERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxUsers = n
		}
	}

	return cfg
}

// Validate checks if the required configuration is present
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("missing required environment variable: ANTHROPIC_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("missing required environment variable: OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown completion provider: %q", c.Provider)
	}
	if c.BotName == "" {
		return fmt.Errorf("bot name must not be empty")
	}
	return nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
