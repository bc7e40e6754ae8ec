package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/soyeahso/campusbot/internal/config"
)

// DefaultCommandTimeout bounds a hook command with no configured timeout.
const DefaultCommandTimeout = 5 * time.Second

// configEvents maps config keys to event names.
var configEvents = map[string]string{
	"messageAppended": EventMessageAppended,
	"beforeGenerate":  EventBeforeGenerate,
	"afterGenerate":   EventAfterGenerate,
	"sessionCreated":  EventSessionCreated,
	"sessionDeleted":  EventSessionDeleted,
	"gatewayStart":    EventGatewayStart,
	"gatewayStop":     EventGatewayStop,
}

// CommandHandler runs a shell command with the JSON payload on stdin.
func CommandHandler(command string, timeout time.Duration) Handler {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return func(ctx context.Context, p Payload) error {
		input, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = bytes.NewReader(input)
		cmd.Env = append(cmd.Environ(), "CAMPUSBOT_HOOK_EVENT="+p.Event)

		out, err := cmd.CombinedOutput()
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				return fmt.Errorf("hook %q exited %d: %s", command, exitErr.ExitCode(), strings.TrimSpace(string(out)))
			}
			return fmt.Errorf("hook %q: %w", command, err)
		}
		return nil
	}
}

// RegisterConfig installs a command handler for every configured hook entry
// and returns how many were registered.
func (m *Manager) RegisterConfig(cfg config.HooksConfig) int {
	n := 0
	for key, entries := range cfg.ByEvent() {
		event, ok := configEvents[key]
		if !ok {
			continue
		}
		for i, entry := range entries {
			if entry.Command == "" {
				continue
			}
			timeout := time.Duration(entry.Timeout) * time.Millisecond
			m.On(event, fmt.Sprintf("config:%s[%d]", key, i), CommandHandler(entry.Command, timeout))
			n++
		}
	}
	return n
}
