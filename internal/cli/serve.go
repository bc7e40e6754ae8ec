package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/gateway"
	"github.com/soyeahso/campusbot/internal/speech"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser bridge for the web widget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}
			if issues := config.Validate(&cfg); len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return errValidation(len(issues))
			}

			// Load raw config for RPC access
			raw, err := config.LoadRaw(paths.Config)
			if err != nil {
				raw = make(map[string]any)
			}

			// The connected page lends its recognizer and synthesizer.
			remote := gateway.NewRemoteSpeech(log)
			caps := speech.Detect(cfg.Speech, log).Merge(remote.Capabilities())

			rt, err := newRuntime(cfg, caps)
			if err != nil {
				return err
			}
			defer rt.Close()

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt.widget.Mount()

			srv := gateway.New(cfg, log,
				gateway.WithConfigRaw(raw),
				gateway.WithConfigPath(paths.Config),
				gateway.WithHooks(rt.hooks),
				gateway.WithWidget(rt.widget),
				gateway.WithRemoteSpeech(remote),
			)
			if token, ok := srv.GeneratedToken(); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "No gateway token configured; pages connect with %s for this run.\n", token)
			}
			err = srv.Start(ctx)
			srv.Wait()
			return err
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")

	return cmd
}
