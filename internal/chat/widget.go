package chat

import (
	"context"
	"sync"
	"time"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/domain"
	"github.com/soyeahso/campusbot/internal/history"
	"github.com/soyeahso/campusbot/internal/hooks"
	"github.com/soyeahso/campusbot/internal/llm"
	"github.com/soyeahso/campusbot/internal/logging"
	"github.com/soyeahso/campusbot/internal/metrics"
	"github.com/soyeahso/campusbot/internal/speech"
	"github.com/soyeahso/campusbot/internal/store"
)

// Options configures a Widget.
type Options struct {
	Generation config.GenerationConfig
	Speech     config.SpeechConfig
	Scheduler  speech.Scheduler // nil uses time.AfterFunc
	Now        func() time.Time // nil uses time.Now
}

// Widget owns the current session and everything a front-end renders:
// messages, the draft, the loading and listening flags, voice output and
// the history panel. Front-ends subscribe to its events and call its
// methods; they never touch the session store directly.
type Widget struct {
	store      *store.SessionStore
	hooks      *hooks.Manager
	log        *logging.Logger
	now        func() time.Time
	ids        domain.IDSource
	controller *Controller
	input      *speech.InputAdapter
	output     *speech.OutputAdapter
	panel      *history.Panel
	localRec   bool

	mu        sync.Mutex
	current   domain.Session
	draft     string
	loading   bool
	listening bool

	subMu   sync.RWMutex
	subs    map[int]Subscriber
	nextSub int
}

// NewWidget wires a widget over its collaborators. hk may be nil.
func NewWidget(
	st *store.SessionStore,
	registry *llm.Registry,
	caps speech.Capabilities,
	hk *hooks.Manager,
	opts Options,
	log *logging.Logger,
) *Widget {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Speech.Input.Disabled {
		caps.Recognizer = nil
		caps.Permissions = nil
	}

	w := &Widget{
		store:    st,
		hooks:    hk,
		log:      log.Sub("widget"),
		now:      opts.Now,
		localRec: caps.Recognizer != nil,
		subs:     make(map[int]Subscriber),
	}

	inputOpts := speech.InputOptionsFromConfig(opts.Speech.Input)
	inputOpts.Scheduler = opts.Scheduler
	w.input = speech.NewInputAdapter(caps, w, inputOpts, log)
	w.output = speech.NewOutputAdapter(caps.Synthesizer, opts.Speech.Output.Enabled, log)
	w.controller = NewController(ControllerConfig{
		Model:             opts.Generation.Model,
		InstructionPrefix: opts.Generation.InstructionPrefix,
		MaxTokens:         opts.Generation.MaxTokens,
		Temperature:       opts.Generation.Temperature,
	}, registry, w, w.output, hk, log)
	w.panel = history.NewPanel(w)

	now := w.now()
	w.current = domain.NewSession(w.ids.Next(now), now)
	return w
}

// Mount loads stored sessions, starts a fresh current session and, when
// no recognizer was supplied, tells the user that input is text only.
func (w *Widget) Mount() {
	sessions := w.store.LoadAll()
	for _, s := range sessions.Sorted() {
		w.ids.Observe(s.ID)
	}
	w.log.Info().Int("sessions", sessions.Len()).Msg("widget mounted")

	w.NewSession()
	if !w.localRec {
		w.input.AnnounceIfUnavailable()
	}
}

// Subscribe registers fn for widget events and returns a function that
// removes it.
func (w *Widget) Subscribe(fn Subscriber) (unsubscribe func()) {
	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.subMu.Unlock()

	return func() {
		w.subMu.Lock()
		delete(w.subs, id)
		w.subMu.Unlock()
	}
}

// Send forwards text to the conversation controller and blocks until the
// answer has been appended.
func (w *Widget) Send(ctx context.Context, text string) {
	w.controller.Send(ctx, text)
}

// Sending reports whether an answer is pending.
func (w *Widget) Sending() bool {
	return w.controller.Sending()
}

// Current returns the current session.
func (w *Widget) Current() domain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// CurrentID returns the id of the current session.
func (w *Widget) CurrentID() string {
	return w.Current().ID
}

// Collection returns the stored sessions.
func (w *Widget) Collection() domain.Collection {
	return w.store.Sessions()
}

// Panel returns the history panel model.
func (w *Widget) Panel() *history.Panel { return w.panel }

// Input returns the speech input adapter.
func (w *Widget) Input() *speech.InputAdapter { return w.input }

// Output returns the speech output adapter.
func (w *Widget) Output() *speech.OutputAdapter { return w.output }

// State returns a snapshot of the transient flags.
func (w *Widget) State() State {
	w.mu.Lock()
	st := State{
		SessionID:       w.current.ID,
		Draft:           w.draft,
		Loading:         w.loading,
		Listening:       w.listening,
		SessionMessages: len(w.current.Messages),
	}
	w.mu.Unlock()

	st.Recognition = string(w.input.State())
	st.VoiceOutput = w.output.Enabled()
	st.SpeechInput = w.input.Available()
	st.SpeechOutput = w.output.Available()
	st.HistoryOpen = w.panel.IsOpen()
	return st
}

// Append adds msg to the current session and persists it. A new session
// reaches the store with its first user message; notices posted before
// that stay in memory until then.
func (w *Widget) Append(msg domain.Message) {
	w.mu.Lock()
	w.current = w.current.WithMessage(msg, w.now())
	s := w.current
	var err error
	_, stored := s.FirstUserMessage()
	if stored {
		// Saving under the lock keeps the store's copy in append order.
		err = w.store.SaveSession(s)
	}
	w.mu.Unlock()

	metrics.RecordMessage(string(msg.Role))
	if err != nil {
		w.log.Warn().Err(err).Str("sessionId", s.ID).Msg("message kept in memory only")
	}

	w.publish(Event{Type: EventMessage, SessionID: s.ID, Message: &msg})
	if stored {
		w.panel.Capture()
		w.publish(Event{Type: EventSessions, SessionID: s.ID})
	}
	w.emit(hooks.EventMessageAppended, map[string]any{
		"sessionId": s.ID,
		"role":      string(msg.Role),
		"text":      msg.Text,
	})
}

// SystemMessage appends a system notice.
func (w *Widget) SystemMessage(text string) {
	w.Append(domain.SystemMessage(text))
}

// Submit sends a recognized transcript as if it had been typed.
func (w *Widget) Submit(text string) {
	w.Send(context.Background(), text)
}

// SetDraft records the unsent input text.
func (w *Widget) SetDraft(text string) {
	w.setState(func() { w.draft = text })
}

// ClearDraft empties the unsent input text.
func (w *Widget) ClearDraft() {
	w.SetDraft("")
}

// SetLoading sets the loading flag.
func (w *Widget) SetLoading(on bool) {
	w.setState(func() { w.loading = on })
}

// SetListening sets the listening flag.
func (w *Widget) SetListening(on bool) {
	w.setState(func() { w.listening = on })
}

// StartListening begins speech input.
func (w *Widget) StartListening(ctx context.Context) error {
	return w.input.Start(ctx)
}

// StopListening ends speech input.
func (w *Widget) StopListening() {
	w.input.Stop()
}

// ToggleVoice flips voice output and returns the new setting.
func (w *Widget) ToggleVoice() bool {
	on := w.output.Toggle()
	w.publishState()
	return on
}

// OpenHistory shows the history overlay.
func (w *Widget) OpenHistory() {
	w.panel.Open()
	w.publishState()
}

// CloseHistory hides the history overlay.
func (w *Widget) CloseHistory() {
	w.panel.Close()
	w.publishState()
}

// NewSession makes a fresh empty session current. It is stored once it
// receives a user message.
func (w *Widget) NewSession() {
	now := w.now()
	s := domain.NewSession(w.ids.Next(now), now)

	w.mu.Lock()
	w.current = s
	w.draft = ""
	w.mu.Unlock()

	metrics.RecordSession("created")
	w.log.Debug().Str("sessionId", s.ID).Msg("session started")
	w.publish(Event{Type: EventSession, SessionID: s.ID})
	w.publishState()
	w.emit(hooks.EventSessionCreated, map[string]any{"sessionId": s.ID})
}

// SelectSession makes the stored session id current. It reports false
// when no such session exists.
func (w *Widget) SelectSession(id string) bool {
	s, ok := w.store.Sessions().Get(id)
	if !ok {
		return false
	}

	w.mu.Lock()
	w.current = s
	w.draft = ""
	w.mu.Unlock()

	metrics.RecordSession("selected")
	w.publish(Event{Type: EventSession, SessionID: s.ID})
	w.publishState()
	return true
}

// DeleteSession removes a stored session. Deleting the current session
// starts a new empty one. The session is gone from memory even when
// persisting the deletion fails.
func (w *Widget) DeleteSession(id string) error {
	err := w.store.DeleteSession(id)

	metrics.RecordSession("deleted")
	w.publish(Event{Type: EventSessions, SessionID: id})
	w.emit(hooks.EventSessionDeleted, map[string]any{"sessionId": id})

	if id == w.CurrentID() {
		w.NewSession()
	}
	return err
}

func (w *Widget) setState(mutate func()) {
	w.mu.Lock()
	mutate()
	w.mu.Unlock()
	w.publishState()
}

func (w *Widget) publishState() {
	st := w.State()
	w.publish(Event{Type: EventState, SessionID: st.SessionID, State: &st})
}

func (w *Widget) publish(ev Event) {
	w.subMu.RLock()
	subs := make([]Subscriber, 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.subMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (w *Widget) emit(event string, data map[string]any) {
	if w.hooks == nil {
		return
	}
	w.hooks.EmitAsync(context.Background(), event, data)
}
