package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soyeahso/campusbot/internal/chat"
	"github.com/soyeahso/campusbot/internal/domain"
	"github.com/soyeahso/campusbot/internal/speech"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		model string
		speak bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question in a new chat and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if model != "" {
				cfg.Generation.Model = model
			}
			cfg.Speech.Output.Enabled = speak

			rt, err := newRuntime(cfg, speech.Detect(cfg.Speech, log))
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var answer string
			unsubscribe := rt.widget.Subscribe(func(ev chat.Event) {
				if ev.Type == chat.EventMessage && ev.Message.Role == domain.RoleBot {
					answer = ev.Message.Text
				}
			})
			defer unsubscribe()

			rt.widget.Mount()
			rt.widget.Send(ctx, question)

			fmt.Fprintln(cmd.OutOrStdout(), answer)
			fmt.Fprintf(cmd.ErrOrStderr(), "\n[session=%s]\n", rt.widget.CurrentID())
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "generation model to use")
	cmd.Flags().BoolVar(&speak, "speak", false, "speak the answer with the local synthesizer")

	return cmd
}
