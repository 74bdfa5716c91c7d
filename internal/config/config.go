package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	ChatModel    string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	PineconeAPIKey string `envconfig:"PINECONE_API_KEY"`
	PineconeHost   string `envconfig:"PINECONE_HOST"`

	// Chat widget settings
	WidgetTitle      string `envconfig:"WIDGET_TITLE" default:"Knowledge Base Chat"`
	SystemPrompt     string `envconfig:"SYSTEM_PROMPT"`
	ChatAccess       string `envconfig:"CHAT_ACCESS" default:"public"`
	ChatRequiredRole string `envconfig:"CHAT_REQUIRED_ROLE" default:"member"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SIECHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// HasProviders reports whether all three values the chat pipeline needs are
// present. Missing any of them means /chat answers 503 without calling out.
func (c *Config) HasProviders() bool {
	return c.OpenAIAPIKey != "" && c.PineconeAPIKey != "" && c.PineconeHost != ""
}
