package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/llm"
	"github.com/soyeahso/campusbot/internal/speech"
	"github.com/soyeahso/campusbot/internal/store"
	"github.com/soyeahso/campusbot/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show campusbot status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("campusbot %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Println("Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}

			// Generation
			registry := llm.NewRegistryFromConfig(cfg.Generation, log)
			providers := registry.List()
			key := "missing"
			if cfg.Generation.APIKey != "" {
				key = "set"
			}
			if len(providers) > 0 {
				fmt.Printf("LLM:     provider=%s model=%s apiKey=%s\n", strings.Join(providers, ","), cfg.Generation.Model, key)
			} else {
				fmt.Printf("LLM:     (unknown provider %q)\n", cfg.Generation.Provider)
			}

			// Storage
			fmt.Printf("Storage: store=%s", cfg.Storage.Store)
			if cfg.Storage.Store != "memory" {
				fmt.Printf(" path=%s", paths.DatabasePath(cfg.Storage))
				if port, closer, err := store.OpenPort(cfg.Storage, paths.DatabasePath(cfg.Storage), log); err == nil {
					if sessions, err := port.LoadAll(); err == nil {
						fmt.Printf(" sessions=%d", sessions.Len())
					}
					closer.Close()
				}
			}
			fmt.Println()

			// Speech
			synth := "(none)"
			if path, ok := speech.LookupSynthesizer(cfg.Speech.Output.Command); ok {
				synth = path
			}
			fmt.Printf("Speech:  synthesizer=%s voice=%v input=%v retries=%d\n",
				synth, cfg.Speech.Output.Enabled, !cfg.Speech.Input.Disabled, cfg.Speech.Input.MaxAttempts-1)

			// Gateway
			fmt.Printf("Gateway: port=%d bind=%s auth=%s\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Auth.Mode)

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
