package speech

import (
	"context"
	"os/exec"
	"sync"

	"github.com/soyeahso/campusbot/internal/logging"
)

// knownSynthesizers are tried in order when no command is configured.
var knownSynthesizers = []string{"say", "espeak-ng", "espeak", "spd-say"}

// CommandSynthesizer speaks through a local text-to-speech program, one
// process per utterance. Utterances play in order.
type CommandSynthesizer struct {
	command string
	args    []string
	log     *logging.Logger

	mu      sync.Mutex
	queue   []string
	running bool
	stopCur context.CancelFunc
}

// NewCommandSynthesizer creates a synthesizer invoking command with args
// followed by the utterance.
func NewCommandSynthesizer(command string, args []string, log *logging.Logger) *CommandSynthesizer {
	return &CommandSynthesizer{
		command: command,
		args:    args,
		log:     log.Sub("speech.synth"),
	}
}

// Command returns the program used for speech.
func (s *CommandSynthesizer) Command() string { return s.command }

// Speak queues text for playback.
func (s *CommandSynthesizer) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, text)
	if !s.running {
		s.running = true
		go s.drain()
	}
	return nil
}

// Cancel drops queued utterances and kills the one playing.
func (s *CommandSynthesizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	if s.stopCur != nil {
		s.stopCur()
		s.stopCur = nil
	}
}

// Busy reports whether anything is queued or playing.
func (s *CommandSynthesizer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *CommandSynthesizer) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		text := s.queue[0]
		s.queue = s.queue[1:]
		ctx, cancel := context.WithCancel(context.Background())
		s.stopCur = cancel
		s.mu.Unlock()

		args := append(append([]string{}, s.args...), text)
		err := exec.CommandContext(ctx, s.command, args...).Run()
		if err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Str("command", s.command).Msg("utterance failed")
		}
		cancel()

		s.mu.Lock()
		s.stopCur = nil
		s.mu.Unlock()
	}
}

// LookupSynthesizer resolves command on PATH, or the first known
// synthesizer when command is empty.
func LookupSynthesizer(command string) (string, bool) {
	candidates := knownSynthesizers
	if command != "" {
		candidates = []string{command}
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, true
		}
	}
	return "", false
}
