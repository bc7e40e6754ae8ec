package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Provider defaults.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"

	DefaultStorageKey = "campus_chat_sessions"
	DefaultPort       = 18790
)

// DefaultInstructionPrefix is prepended to every user question.
const DefaultInstructionPrefix = "You are a friendly campus assistant for university students. " +
	"Answer questions about campus buildings, courses, events, clubs, careers and wellness services " +
	"briefly and accurately. If you do not know something, say so and suggest who on campus to ask.\n\n" +
	"Student question: "

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Generation: GenerationConfig{
			Provider:          ProviderGemini,
			Model:             DefaultGeminiModel,
			InstructionPrefix: DefaultInstructionPrefix,
		},
		Storage: StorageConfig{
			Store: "sqlite",
			Key:   DefaultStorageKey,
		},
		Speech: SpeechConfig{
			Input: SpeechInputConfig{
				RetryDelay:  time.Second,
				MaxAttempts: 3,
			},
		},
		Gateway: GatewayConfig{
			Port: DefaultPort,
			Mode: "local",
			Bind: "loopback",
			Auth: GatewayAuth{
				Mode: "token",
			},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
