package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/logging"
)

// ProviderError is returned when a provider answers with a non-success status.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP-like status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Registry manages provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients:  make(map[string]Client),
		aliases:  make(map[string]string),
		log:      log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered generation provider")
}

// Alias maps a model name/alias to a provider.
// e.g., Alias("gemini-1.5-pro", "gemini") means that model resolves to the "gemini" provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Direct provider name match
	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	// Alias lookup
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	// Fallback
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no generation provider for model %q", model)
}

// List returns all registered provider names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds a Registry holding the configured provider
// as the fallback, with the configured model aliased to it.
func NewRegistryFromConfig(cfg config.GenerationConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	var client Client
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client = NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.Endpoint, cfg.Timeout)
	case config.ProviderGemini, "":
		client = NewGeminiClient(cfg.APIKey, cfg.Model, cfg.Endpoint, cfg.Timeout)
	default:
		reg.log.Warn().Str("provider", cfg.Provider).Msg("unknown generation provider")
		return reg
	}

	reg.Register(client.Name(), client)
	reg.SetFallback(client.Name())
	if cfg.Model != "" {
		reg.Alias(cfg.Model, client.Name())
	}
	return reg
}
