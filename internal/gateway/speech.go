package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soyeahso/campusbot/internal/logging"
	"github.com/soyeahso/campusbot/internal/speech"
)

// microphoneRequestTimeout bounds how long a permission prompt may stay open.
const microphoneRequestTimeout = 60 * time.Second

// ErrMicrophoneRefused is returned when the page reports a refused prompt.
var ErrMicrophoneRefused = errors.New("microphone access refused")

// PageSpeech is what a page reports it can do through speech.capabilities.
type PageSpeech struct {
	Recognition bool   `json:"recognition"`
	Synthesis   bool   `json:"synthesis"`
	Microphone  string `json:"microphone,omitempty"` // granted | denied | prompt
}

// commandSink delivers a speech command to one connection.
type commandSink func(connID string, cmd SpeechCommand) error

// RemoteSpeech lends the speech engine of one connected page to the
// widget. Commands go out as speech.command events; results, errors and
// permission answers come back as speech.* requests. The most recent page
// to report capabilities owns the engine until it disconnects.
type RemoteSpeech struct {
	log *logging.Logger

	mu      sync.Mutex
	sink    commandSink
	owner   string
	caps    PageSpeech
	handler speech.RecognitionHandler
	waiter  chan bool
}

// NewRemoteSpeech creates an unattached remote speech engine.
func NewRemoteSpeech(log *logging.Logger) *RemoteSpeech {
	return &RemoteSpeech{log: log.Sub("speech.remote")}
}

// Capabilities returns handles the widget's speech adapters can hold for
// the lifetime of the process. Each reports itself unavailable while no
// capable page is attached.
func (r *RemoteSpeech) Capabilities() speech.Capabilities {
	return speech.Capabilities{
		Recognizer:  remoteRecognizer{r},
		Permissions: remotePermissions{r},
		Synthesizer: remoteSynthesizer{r},
	}
}

// Attach makes connID the page that owns the speech engine.
func (r *RemoteSpeech) Attach(connID string, caps PageSpeech) {
	r.mu.Lock()
	r.owner = connID
	r.caps = caps
	r.mu.Unlock()
	r.log.Info().
		Str("connId", connID).
		Bool("recognition", caps.Recognition).
		Bool("synthesis", caps.Synthesis).
		Str("microphone", caps.Microphone).
		Msg("page speech attached")
}

// Detach releases the engine if connID owns it. A pending recognition
// is ended and a pending permission request is refused.
func (r *RemoteSpeech) Detach(connID string) {
	r.mu.Lock()
	if r.owner != connID {
		r.mu.Unlock()
		return
	}
	h := r.handler
	r.owner = ""
	r.caps = PageSpeech{}
	r.handler = nil
	r.resolveLocked(false)
	r.mu.Unlock()

	r.log.Info().Str("connId", connID).Msg("page speech detached")
	if h != nil {
		h.OnEnd()
	}
}

// Owner returns the connection id lending its engine, or "".
func (r *RemoteSpeech) Owner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

// IsOwner reports whether connID lends the engine.
func (r *RemoteSpeech) IsOwner(connID string) bool {
	return connID != "" && r.Owner() == connID
}

// Result forwards a recognized transcript.
func (r *RemoteSpeech) Result(transcript string) {
	if h := r.currentHandler(); h != nil {
		h.OnResult(transcript)
	}
}

// Error forwards a recognition error.
func (r *RemoteSpeech) Error(kind speech.ErrorKind) {
	if h := r.currentHandler(); h != nil {
		h.OnError(kind)
	}
}

// End forwards the end of a recognition run.
func (r *RemoteSpeech) End() {
	if h := r.currentHandler(); h != nil {
		h.OnEnd()
	}
}

// Permission answers a pending microphone request.
func (r *RemoteSpeech) Permission(granted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if granted {
		r.caps.Microphone = string(speech.PermissionGranted)
	} else {
		r.caps.Microphone = string(speech.PermissionDenied)
	}
	r.resolveLocked(granted)
}

func (r *RemoteSpeech) bind(sink commandSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

func (r *RemoteSpeech) currentHandler() speech.RecognitionHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

func (r *RemoteSpeech) resolveLocked(granted bool) {
	if r.waiter != nil {
		r.waiter <- granted
		r.waiter = nil
	}
}

func (r *RemoteSpeech) send(cmd SpeechCommand) error {
	r.mu.Lock()
	sink, owner := r.sink, r.owner
	r.mu.Unlock()

	if sink == nil || owner == "" {
		return speech.ErrUnavailable
	}
	if err := sink(owner, cmd); err != nil {
		r.log.Warn().Err(err).Str("action", cmd.Action).Msg("speech command not delivered")
		return err
	}
	return nil
}

type remoteRecognizer struct{ r *RemoteSpeech }

func (h remoteRecognizer) Available() bool {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return h.r.owner != "" && h.r.caps.Recognition
}

func (h remoteRecognizer) Start(handler speech.RecognitionHandler) error {
	h.r.mu.Lock()
	h.r.handler = handler
	h.r.mu.Unlock()
	return h.r.send(SpeechCommand{Action: SpeechStart})
}

func (h remoteRecognizer) Stop() {
	h.r.send(SpeechCommand{Action: SpeechStop})
}

type remotePermissions struct{ r *RemoteSpeech }

func (h remotePermissions) Microphone(ctx context.Context) (speech.PermissionState, error) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	switch st := speech.PermissionState(h.r.caps.Microphone); st {
	case speech.PermissionGranted, speech.PermissionDenied, speech.PermissionPrompt:
		return st, nil
	default:
		return speech.PermissionUnknown, nil
	}
}

func (h remotePermissions) RequestMicrophone(ctx context.Context) error {
	ch := make(chan bool, 1)
	h.r.mu.Lock()
	h.r.resolveLocked(false)
	h.r.waiter = ch
	h.r.mu.Unlock()

	if err := h.r.send(SpeechCommand{Action: SpeechRequestMicrophone}); err != nil {
		h.r.mu.Lock()
		if h.r.waiter == ch {
			h.r.waiter = nil
		}
		h.r.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, microphoneRequestTimeout)
	defer cancel()

	select {
	case granted := <-ch:
		if !granted {
			return ErrMicrophoneRefused
		}
		return nil
	case <-ctx.Done():
		h.r.mu.Lock()
		if h.r.waiter == ch {
			h.r.waiter = nil
		}
		h.r.mu.Unlock()
		return ctx.Err()
	}
}

type remoteSynthesizer struct{ r *RemoteSpeech }

func (h remoteSynthesizer) Available() bool {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return h.r.owner != "" && h.r.caps.Synthesis
}

func (h remoteSynthesizer) Speak(text string) error {
	return h.r.send(SpeechCommand{Action: SpeechSpeak, Text: text})
}

func (h remoteSynthesizer) Cancel() {
	h.r.send(SpeechCommand{Action: SpeechCancel})
}
