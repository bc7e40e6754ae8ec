package config

import "time"

// Config is the root configuration for campusbot.
type Config struct {
	Generation GenerationConfig `yaml:"generation,omitempty"`
	Storage    StorageConfig    `yaml:"storage,omitempty"`
	Speech     SpeechConfig     `yaml:"speech,omitempty"`
	Gateway    GatewayConfig    `yaml:"gateway,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Hooks      HooksConfig      `yaml:"hooks,omitempty"`
}

// GenerationConfig selects and configures the generative-text endpoint.
type GenerationConfig struct {
	Provider          string        `yaml:"provider,omitempty"` // "gemini" | "openai"
	APIKey            string        `yaml:"apiKey,omitempty"`
	Model             string        `yaml:"model,omitempty"`
	Endpoint          string        `yaml:"endpoint,omitempty"` // base URL; empty uses the provider default
	InstructionPrefix string        `yaml:"instructionPrefix,omitempty"`
	MaxTokens         int           `yaml:"maxTokens,omitempty"`
	Temperature       *float64      `yaml:"temperature,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"` // 0 keeps the transport default
}

// StorageConfig controls where chat sessions are persisted.
type StorageConfig struct {
	Store string `yaml:"store,omitempty"` // "sqlite" | "memory"
	Path  string `yaml:"path,omitempty"`  // sqlite file; empty uses <data>/campusbot.db
	Key   string `yaml:"key,omitempty"`   // key holding the serialized session collection
}

// SpeechConfig controls voice input and output.
type SpeechConfig struct {
	Input  SpeechInputConfig  `yaml:"input,omitempty"`
	Output SpeechOutputConfig `yaml:"output,omitempty"`
}

// SpeechInputConfig tunes speech recognition.
type SpeechInputConfig struct {
	Disabled    bool          `yaml:"disabled,omitempty"`
	RetryDelay  time.Duration `yaml:"retryDelay,omitempty"`
	MaxAttempts int           `yaml:"maxAttempts,omitempty"` // recognition attempts per network failure run
}

// SpeechOutputConfig tunes speech synthesis.
type SpeechOutputConfig struct {
	Enabled bool     `yaml:"enabled,omitempty"` // voice output on at startup
	Command string   `yaml:"command,omitempty"` // local synthesizer binary; empty tries say, espeak, then spd-say
	Args    []string `yaml:"args,omitempty"`    // extra args placed before the utterance
}

// GatewayConfig controls the browser bridge HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int            `yaml:"port,omitempty"`
	Mode           string         `yaml:"mode,omitempty"` // "local" | "remote"
	Bind           string         `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string         `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth    `yaml:"auth,omitempty"`
	TLS            GatewayTLS     `yaml:"tls,omitempty"`
	Browser        GatewayBrowser `yaml:"browser,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// GatewayBrowser configures which pages may connect.
type GatewayBrowser struct {
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}

// HooksConfig maps widget lifecycle events to shell commands.
type HooksConfig struct {
	MessageAppended []HookEntry `yaml:"messageAppended,omitempty"`
	BeforeGenerate  []HookEntry `yaml:"beforeGenerate,omitempty"`
	AfterGenerate   []HookEntry `yaml:"afterGenerate,omitempty"`
	SessionCreated  []HookEntry `yaml:"sessionCreated,omitempty"`
	SessionDeleted  []HookEntry `yaml:"sessionDeleted,omitempty"`
	GatewayStart    []HookEntry `yaml:"gatewayStart,omitempty"`
	GatewayStop     []HookEntry `yaml:"gatewayStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}

// ByEvent returns the configured entries keyed by their YAML field name.
func (h HooksConfig) ByEvent() map[string][]HookEntry {
	return map[string][]HookEntry{
		"messageAppended": h.MessageAppended,
		"beforeGenerate":  h.BeforeGenerate,
		"afterGenerate":   h.AfterGenerate,
		"sessionCreated":  h.SessionCreated,
		"sessionDeleted":  h.SessionDeleted,
		"gatewayStart":    h.GatewayStart,
		"gatewayStop":     h.GatewayStop,
	}
}
