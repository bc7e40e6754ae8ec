package cli

import (
	"fmt"
	"io"

	"github.com/soyeahso/campusbot/internal/chat"
	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/hooks"
	"github.com/soyeahso/campusbot/internal/llm"
	"github.com/soyeahso/campusbot/internal/speech"
	"github.com/soyeahso/campusbot/internal/store"
)

// runtime holds the handles a front-end drives. Everything is built here
// and injected; nothing is process-global.
type runtime struct {
	cfg      config.Config
	registry *llm.Registry
	hooks    *hooks.Manager
	widget   *chat.Widget
	closer   io.Closer
}

// loadConfig reads and validates the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, errValidation(len(issues))
	}
	return cfg, nil
}

func errValidation(n int) error {
	return fmt.Errorf("config validation failed with %d issue(s)", n)
}

// newRuntime opens the session store and wires a widget over caps.
func newRuntime(cfg config.Config, caps speech.Capabilities) (*runtime, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	port, closer, err := store.OpenPort(cfg.Storage, paths.DatabasePath(cfg.Storage), log)
	if err != nil {
		return nil, fmt.Errorf("opening session storage: %w", err)
	}

	hookMgr := hooks.NewManager(log)
	if n := hookMgr.RegisterConfig(cfg.Hooks); n > 0 {
		log.Info().Int("hooks", n).Msg("command hooks registered")
	}

	registry := llm.NewRegistryFromConfig(cfg.Generation, log)
	if len(registry.List()) == 0 {
		log.Warn().Str("provider", cfg.Generation.Provider).Msg("no generation provider, every answer will be the apology")
	}

	w := chat.NewWidget(store.NewSessionStore(port, log), registry, caps, hookMgr, chat.Options{
		Generation: cfg.Generation,
		Speech:     cfg.Speech,
	}, log)

	return &runtime{
		cfg:      cfg,
		registry: registry,
		hooks:    hookMgr,
		widget:   w,
		closer:   closer,
	}, nil
}

// Close waits for running hooks and releases the store.
func (r *runtime) Close() error {
	r.hooks.Wait()
	return r.closer.Close()
}
