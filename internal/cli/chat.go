package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/soyeahso/campusbot/internal/chat"
	"github.com/soyeahso/campusbot/internal/domain"
	"github.com/soyeahso/campusbot/internal/history"
	"github.com/soyeahso/campusbot/internal/speech"
	"github.com/spf13/cobra"
)

const replHelp = `Commands:
  /new         start a new chat
  /history     list saved chats
  /open <n>    open chat n from the last /history listing
  /delete <n>  delete chat n from the last /history listing
  /voice       toggle spoken answers
  /mic         start voice input
  /quit        leave`

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the campus assistant in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rt, err := newRuntime(cfg, speech.Detect(cfg.Speech, log))
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := newREPL(rt.widget, cmd.OutOrStdout())
			unsubscribe := rt.widget.Subscribe(r.onEvent)
			defer unsubscribe()

			fmt.Fprintln(r.out, "Campus assistant. Ask a question, or /help for commands.")
			rt.widget.Mount()
			return r.Run(ctx, cmd.InOrStdin())
		},
	}
}

// repl renders a widget on a line-oriented terminal.
type repl struct {
	w   *chat.Widget
	now func() time.Time

	mu      sync.Mutex
	out     io.Writer
	loading bool
	listed  []history.Entry
}

func newREPL(w *chat.Widget, out io.Writer) *repl {
	return &repl{w: w, out: out, now: time.Now}
}

// Run reads lines from in until /quit, end of input or ctx is done.
func (r *repl) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		r.prompt()
		select {
		case <-ctx.Done():
			r.println("")
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if quit := r.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the loop should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		if line != "" {
			r.w.Send(ctx, line)
		}
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		r.println(replHelp)
	case "/new":
		r.w.Panel().New()
	case "/history":
		r.listHistory()
	case "/open":
		if e, ok := r.pick(fields); ok {
			r.w.Panel().Select(e.ID)
		}
	case "/delete":
		if e, ok := r.pick(fields); ok {
			if err := r.w.Panel().Delete(e.ID); err != nil {
				r.println("Deleted here, but the change could not be saved: " + err.Error())
			} else {
				r.println("Deleted \"" + e.Summary + "\".")
			}
			r.listed = nil
		}
	case "/voice":
		r.toggleVoice()
	case "/mic":
		if !r.w.Input().Available() {
			r.notice(speech.MsgUnavailable)
			break
		}
		if err := r.w.StartListening(ctx); err != nil {
			r.println("Voice input failed: " + err.Error())
		}
	default:
		r.println("Unknown command " + fields[0] + ". Type /help for commands.")
	}
	return false
}

func (r *repl) listHistory() {
	r.w.OpenHistory()
	defer r.w.CloseHistory()

	entries := r.w.Panel().Entries(r.now())
	r.listed = entries
	if len(entries) == 0 {
		r.println("No saved chats yet.")
		return
	}

	var b strings.Builder
	for i, e := range entries {
		marker := ""
		if e.Current {
			marker = "  (current)"
		}
		fmt.Fprintf(&b, "%3d. %-24s %s%s\n", i+1, e.Summary, e.DateLabel, marker)
	}
	r.print(b.String())
	r.w.Panel().Render()
}

// pick resolves the 1-based index argument against the last listing.
func (r *repl) pick(fields []string) (history.Entry, bool) {
	if len(fields) != 2 {
		r.println("Usage: " + fields[0] + " <n>")
		return history.Entry{}, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(r.listed) {
		r.println("No chat " + fields[1] + " in the last /history listing.")
		return history.Entry{}, false
	}
	return r.listed[n-1], true
}

func (r *repl) toggleVoice() {
	if !r.w.Output().Available() {
		r.println("No speech synthesizer found; answers stay on screen.")
		return
	}
	if r.w.ToggleVoice() {
		r.println("Voice output on.")
	} else {
		r.println("Voice output off.")
	}
}

// onEvent draws widget events. User messages are not echoed: the user
// just typed them.
func (r *repl) onEvent(ev chat.Event) {
	switch ev.Type {
	case chat.EventMessage:
		switch ev.Message.Role {
		case domain.RoleBot:
			r.println("bot: " + ev.Message.Text)
		case domain.RoleSystem:
			r.notice(ev.Message.Text)
		}
	case chat.EventState:
		r.mu.Lock()
		started := ev.State.Loading && !r.loading
		r.loading = ev.State.Loading
		r.mu.Unlock()
		if started {
			r.println("...")
		}
	case chat.EventSession:
		r.drawSession(r.w.Current())
	}
}

func (r *repl) drawSession(s domain.Session) {
	if len(s.Messages) == 0 {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s --\n", history.Summary(s))
	for _, m := range s.Messages {
		switch m.Role {
		case domain.RoleUser:
			fmt.Fprintf(&b, "you: %s\n", m.Text)
		case domain.RoleBot:
			fmt.Fprintf(&b, "bot: %s\n", m.Text)
		default:
			fmt.Fprintf(&b, "* %s\n", m.Text)
		}
	}
	r.print(b.String())
}

func (r *repl) notice(text string) { r.println("* " + text) }

func (r *repl) prompt() { r.print("> ") }

func (r *repl) println(s string) { r.print(s + "\n") }

func (r *repl) print(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.out, s)
}
