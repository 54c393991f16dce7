// Package config loads the chatbot configuration from defaults, a .env
// file, the environment and command-line overrides, in that order.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	BackendLangchain = "langchaingo"
	BackendGollm     = "gollm"
)

type Config struct {
	LLM     LLMConfig     `koanf:"llm"`
	Session SessionConfig `koanf:"session"`
	Log     LogConfig     `koanf:"log"`
	Debug   bool          `koanf:"debug"   env:"ONBOARDING_DEBUG"`
	Tracing bool          `koanf:"tracing" env:"LANGCHAIN_TRACING_V2"`
}

// LLMConfig selects and tunes the completion backend. An empty APIKey is
// allowed; the first model call fails instead.
type LLMConfig struct {
	Backend     string  `koanf:"backend"     env:"ONBOARDING_BACKEND"     validate:"oneof=langchaingo gollm"`
	Provider    string  `koanf:"provider"    env:"ONBOARDING_PROVIDER"    validate:"required"`
	Model       string  `koanf:"model"       env:"ONBOARDING_MODEL"` // empty picks the provider's catalog default
	APIKey      string  `koanf:"api_key"     env:"OPENAI_API_KEY"`
	BaseURL     string  `koanf:"base_url"    env:"OPENAI_BASE_URL"        validate:"omitempty,url"`
	Temperature float64 `koanf:"temperature" env:"ONBOARDING_TEMPERATURE" validate:"gte=0,lte=2"`
	MaxTokens   int     `koanf:"max_tokens"  env:"ONBOARDING_MAX_TOKENS"  validate:"gte=0"`
	MaxRetries  int     `koanf:"max_retries" env:"ONBOARDING_MAX_RETRIES" validate:"gte=0,lte=10"`
}

type SessionConfig struct {
	ExitSentinel  string `koanf:"exit_sentinel"   env:"ONBOARDING_EXIT_SENTINEL"   validate:"required"`
	MaxToolRounds int    `koanf:"max_tool_rounds" env:"ONBOARDING_MAX_TOOL_ROUNDS" validate:"min=1"`
	Prompt        string `koanf:"prompt"          env:"ONBOARDING_PROMPT"          validate:"required"`
}

type LogConfig struct {
	Level string `koanf:"level" env:"ONBOARDING_LOG_LEVEL" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"  env:"ONBOARDING_LOG_JSON"`
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Backend:     BackendLangchain,
			Provider:    "openai",
			Model:       "",
			Temperature: 0,
			MaxTokens:   1024,
			MaxRetries:  0,
		},
		Session: SessionConfig{
			ExitSentinel:  "exit",
			MaxToolRounds: 3,
			Prompt:        "You: ",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the struct rules.
func (c *Config) Validate(_ context.Context) error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LogLevel is the effective level: debug when Debug is set.
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Log.Level
}

// MaskedAPIKey returns the API key with all but its last four characters
// hidden.
func (c LLMConfig) MaskedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) <= 4 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
}
