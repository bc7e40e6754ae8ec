package cli

import (
	"fmt"
	"time"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/domain"
	"github.com/soyeahso/campusbot/internal/history"
	"github.com/soyeahso/campusbot/internal/store"
	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List and delete saved chats",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	return cmd
}

func openSessions() (*store.SessionStore, func() error, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		cfg = config.Defaults()
	}
	port, closer, err := store.OpenPort(cfg.Storage, paths.DatabasePath(cfg.Storage), log)
	if err != nil {
		return nil, nil, err
	}
	st := store.NewSessionStore(port, log)
	st.LoadAll()
	return st, closer.Close, nil
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved chats, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := openSessions()
			if err != nil {
				return err
			}
			defer closeStore()

			sorted := st.Sessions().Sorted()
			if len(sorted) == 0 {
				fmt.Println("No saved chats.")
				return nil
			}

			now := time.Now()
			for _, s := range sorted {
				fmt.Printf("  %-14s %-24s %-10s %d messages\n",
					s.ID, history.Summary(s), history.DateLabel(s.Timestamp, now), len(s.Messages))
			}
			return nil
		},
	}
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the messages of a saved chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := openSessions()
			if err != nil {
				return err
			}
			defer closeStore()

			s, ok := st.Sessions().Get(args[0])
			if !ok {
				return fmt.Errorf("session not found: %s", args[0])
			}

			fmt.Printf("Session: %s (%s)\n", s.ID, history.Summary(s))
			fmt.Printf("  Updated: %s\n\n", s.Timestamp.Format(time.RFC1123))
			for _, m := range s.Messages {
				switch m.Role {
				case domain.RoleUser:
					fmt.Printf("you: %s\n", m.Text)
				case domain.RoleBot:
					fmt.Printf("bot: %s\n", m.Text)
				default:
					fmt.Printf("* %s\n", m.Text)
				}
			}
			return nil
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete saved chats",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := openSessions()
			if err != nil {
				return err
			}
			defer closeStore()

			for _, id := range args {
				if _, ok := st.Sessions().Get(id); !ok {
					return fmt.Errorf("session not found: %s", id)
				}
				if err := st.DeleteSession(id); err != nil {
					return err
				}
				fmt.Printf("Deleted %s\n", id)
			}
			return nil
		},
	}
}
