package speech

import (
	"context"
	"sync"
	"time"

	"github.com/soyeahso/campusbot/internal/logging"
	"github.com/soyeahso/campusbot/internal/metrics"
)

// InputHost is the widget side of speech input: where notices, the
// listening flag and recognized transcripts go.
type InputHost interface {
	SystemMessage(text string)
	SetListening(on bool)
	Submit(text string)
}

// InputOptions tunes the network retry policy.
type InputOptions struct {
	RetryDelay  time.Duration
	MaxAttempts int // recognition attempts per run of network failures
	Scheduler   Scheduler
}

// InputAdapter drives a Recognizer through permission checks, listening
// and bounded retries on network failures.
type InputAdapter struct {
	rec   Recognizer
	perms Permissions
	host  InputHost
	opts  InputOptions
	log   *logging.Logger

	machine *Machine

	mu        sync.Mutex
	attempts  int
	pending   Timer
	gen       uint64
	announced bool
}

// NewInputAdapter creates an adapter over the recognizer and permission
// handles in caps. Either may be nil.
func NewInputAdapter(caps Capabilities, host InputHost, opts InputOptions, log *logging.Logger) *InputAdapter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler{}
	}
	return &InputAdapter{
		rec:     caps.Recognizer,
		perms:   caps.Permissions,
		host:    host,
		opts:    opts,
		log:     log.Sub("speech.input"),
		machine: NewMachine(),
	}
}

// Available reports whether a recognizer is present and currently usable.
func (a *InputAdapter) Available() bool {
	return present(a.rec)
}

// State returns the recognition state.
func (a *InputAdapter) State() State {
	return a.machine.State()
}

// AnnounceIfUnavailable posts the text-only notice the first time it is
// called without a recognizer. It reports whether the notice was posted.
func (a *InputAdapter) AnnounceIfUnavailable() bool {
	if a.Available() {
		return false
	}
	a.mu.Lock()
	if a.announced {
		a.mu.Unlock()
		return false
	}
	a.announced = true
	a.mu.Unlock()

	a.host.SystemMessage(MsgUnavailable)
	return true
}

// Start checks microphone permission and begins recognition. It is a
// no-op when no recognizer is present or recognition is already active.
func (a *InputAdapter) Start(ctx context.Context) error {
	if !a.Available() {
		a.log.Debug().Msg("start ignored, no recognizer")
		return nil
	}
	if !a.machine.Can(TriggerStart) {
		return nil
	}

	if a.perms != nil {
		state, err := a.perms.Microphone(ctx)
		if err != nil {
			a.log.Debug().Err(err).Msg("permission query failed, starting anyway")
			state = PermissionUnknown
		}
		switch state {
		case PermissionDenied:
			a.host.SystemMessage(MsgPermissionDenied)
			return nil
		case PermissionPrompt:
			a.host.SystemMessage(MsgRequesting)
			if err := a.perms.RequestMicrophone(ctx); err != nil {
				a.log.Info().Err(err).Msg("microphone request refused")
				a.host.SystemMessage(MsgNotAllowed)
				return nil
			}
		}
	}

	a.mu.Lock()
	a.attempts = 0
	a.cancelRetryLocked()
	a.mu.Unlock()

	if _, err := a.machine.Fire(TriggerStart); err != nil {
		return nil
	}
	if !a.begin() {
		return nil
	}
	a.host.SystemMessage(MsgListening)
	return nil
}

// begin starts the recognizer after the machine entered Listening.
func (a *InputAdapter) begin() bool {
	a.host.SetListening(true)
	if err := a.rec.Start(a); err != nil {
		a.log.Warn().Err(err).Msg("recognizer failed to start")
		a.machine.Fire(TriggerFatalError)
		a.host.SetListening(false)
		a.host.SystemMessage(failedMessage("start"))
		return false
	}
	return true
}

// Stop halts recognition, clears the listening flag and drops any
// scheduled retry.
func (a *InputAdapter) Stop() {
	a.mu.Lock()
	a.cancelRetryLocked()
	a.attempts = 0
	a.mu.Unlock()

	a.machine.Fire(TriggerStop)
	if present(a.rec) {
		a.rec.Stop()
	}
	a.host.SetListening(false)
}

// OnResult submits a recognized transcript and resets the retry count.
func (a *InputAdapter) OnResult(transcript string) {
	if _, err := a.machine.Fire(TriggerResult); err != nil {
		a.log.Debug().Err(err).Msg("result dropped")
		return
	}
	a.mu.Lock()
	a.attempts = 0
	a.mu.Unlock()

	a.host.Submit(transcript)
}

// OnError applies the failure policy for kind.
func (a *InputAdapter) OnError(kind ErrorKind) {
	if st := a.machine.State(); st == StateIdle || st == StateFailed {
		a.log.Debug().Str("kind", string(kind)).Str("state", string(st)).Msg("error ignored")
		return
	}
	metrics.RecordRecognitionError(string(kind))

	switch kind {
	case ErrorNotAllowed, ErrorServiceNotAllowed:
		a.fail(MsgNotAllowed)

	case ErrorNetwork:
		a.mu.Lock()
		a.attempts++
		attempts := a.attempts
		if attempts >= a.opts.MaxAttempts {
			a.attempts = 0
			a.mu.Unlock()
			a.log.Warn().Int("attempts", attempts).Msg("giving up after network errors")
			a.fail(MsgNetworkGaveUp)
			return
		}
		if _, err := a.machine.Fire(TriggerNetworkError); err != nil {
			a.mu.Unlock()
			return
		}
		a.gen++
		gen := a.gen
		a.pending = a.opts.Scheduler.AfterFunc(a.opts.RetryDelay, func() { a.retry(gen) })
		a.mu.Unlock()

		a.log.Info().Int("attempt", attempts).Dur("delay", a.opts.RetryDelay).Msg("network error, retry scheduled")
		a.host.SystemMessage(retryingMessage(attempts, a.opts.MaxAttempts-1))

	default:
		a.fail(failedMessage(kind))
	}
}

// OnEnd clears the listening flag. A scheduled retry stays scheduled.
func (a *InputAdapter) OnEnd() {
	a.machine.Fire(TriggerEnd)
	a.host.SetListening(false)
}

func (a *InputAdapter) fail(notice string) {
	a.mu.Lock()
	a.cancelRetryLocked()
	a.mu.Unlock()

	a.machine.Fire(TriggerFatalError)
	a.host.SetListening(false)
	a.host.SystemMessage(notice)
}

func (a *InputAdapter) retry(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.pending = nil
	a.mu.Unlock()

	if _, err := a.machine.Fire(TriggerRetry); err != nil {
		return
	}
	metrics.RecognitionRetriesTotal.Inc()
	a.begin()
}

func (a *InputAdapter) cancelRetryLocked() {
	a.gen++
	if a.pending != nil {
		a.pending.Stop()
		a.pending = nil
	}
}
