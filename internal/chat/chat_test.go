package chat

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/domain"
	"github.com/soyeahso/campusbot/internal/history"
	"github.com/soyeahso/campusbot/internal/hooks"
	"github.com/soyeahso/campusbot/internal/llm"
	"github.com/soyeahso/campusbot/internal/logging"
	"github.com/soyeahso/campusbot/internal/speech"
	"github.com/soyeahso/campusbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Conversation     = (*Widget)(nil)
	_ speech.InputHost = (*Widget)(nil)
	_ history.Sessions = (*Widget)(nil)
	_ Speaker          = (*speech.OutputAdapter)(nil)
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func testRegistry(mock llm.Client) *llm.Registry {
	reg := llm.NewRegistry(silentLog())
	reg.Register("mock", mock)
	reg.SetFallback("mock")
	return reg
}

func answering(content string) *llm.MockClient {
	return &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: content, Model: "mock-1"}, nil
		},
	}
}

type recordingSynth struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
}

func (s *recordingSynth) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *recordingSynth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

type stubRecognizer struct {
	handler speech.RecognitionHandler
	starts  int
	stops   int
}

func (r *stubRecognizer) Start(h speech.RecognitionHandler) error {
	r.starts++
	r.handler = h
	return nil
}

func (r *stubRecognizer) Stop() { r.stops++ }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type rig struct {
	sessions *store.SessionStore
	widget   *Widget
}

func newRig(t *testing.T, client llm.Client, caps speech.Capabilities, opts Options) *rig {
	t.Helper()
	st := store.NewSessionStore(store.NewKVPort(store.NewMemoryKV(), config.DefaultStorageKey), silentLog())
	if opts.Generation.InstructionPrefix == "" {
		opts.Generation.InstructionPrefix = "PREFIX: "
	}
	if opts.Now == nil {
		c := &clock{t: time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)}
		opts.Now = c.Now
	}
	w := NewWidget(st, testRegistry(client), caps, nil, opts, silentLog())
	return &rig{sessions: st, widget: w}
}

func roles(msgs []domain.Message) []domain.Role {
	out := make([]domain.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

// --- Controller tests ---

func TestSend_AppendsUserThenBot(t *testing.T) {
	var prompts []string
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			prompts = append(prompts, req.Prompt)
			return &llm.CompletionResponse{Content: "The library is in Building C."}, nil
		},
	}
	r := newRig(t, mock, speech.Capabilities{}, Options{})
	w := r.widget

	w.SetDraft("Where is the library located")
	w.Send(context.Background(), "  Where is the library located  ")

	cur := w.Current()
	require.Len(t, cur.Messages, 2)
	assert.Equal(t, domain.UserMessage("Where is the library located"), cur.Messages[0])
	assert.Equal(t, domain.BotMessage("The library is in Building C."), cur.Messages[1])
	assert.Equal(t, []string{"PREFIX: Where is the library located"}, prompts)

	st := w.State()
	assert.False(t, st.Loading)
	assert.False(t, st.Listening)
	assert.Empty(t, st.Draft)
}

func TestSend_SingleTurnPrompt(t *testing.T) {
	var last string
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			last = req.Prompt
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}
	r := newRig(t, mock, speech.Capabilities{}, Options{})

	r.widget.Send(context.Background(), "first question")
	r.widget.Send(context.Background(), "second question")

	assert.Equal(t, "PREFIX: second question", last)
	assert.Len(t, r.widget.Current().Messages, 4)
}

func TestSend_BlankInput(t *testing.T) {
	called := false
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			called = true
			return &llm.CompletionResponse{Content: "x"}, nil
		},
	}
	r := newRig(t, mock, speech.Capabilities{}, Options{})

	for _, in := range []string{"", "   ", "\n\t"} {
		r.widget.SetListening(true)
		r.widget.Send(context.Background(), in)
		assert.False(t, r.widget.State().Listening, "input %q", in)
	}
	assert.Empty(t, r.widget.Current().Messages)
	assert.False(t, called)
	assert.Equal(t, 0, r.sessions.Sessions().Len())
}

func TestSend_FailuresBecomeApology(t *testing.T) {
	tests := []struct {
		name     string
		complete func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	}{
		{"transport error", func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("dial tcp: connection refused")
		}},
		{"provider status", func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "mock", Code: 503, Message: "unavailable"}
		}},
		{"no candidates", func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, llm.ErrNoCandidates
		}},
		{"blank content", func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "  "}, nil
		}},
		{"panic", func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			panic("boom")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &llm.MockClient{ProviderName: "mock", CompleteFunc: tt.complete}
			r := newRig(t, mock, speech.Capabilities{}, Options{})
			r.widget.SetListening(true)

			r.widget.Send(context.Background(), "When is the career fair?")

			msgs := r.widget.Current().Messages
			require.Len(t, msgs, 2)
			assert.Equal(t, domain.RoleUser, msgs[0].Role)
			assert.Equal(t, domain.BotMessage(ApologyText), msgs[1])
			assert.False(t, r.widget.State().Loading)
			assert.False(t, r.widget.State().Listening)
		})
	}
}

func TestSend_NoProvider(t *testing.T) {
	st := store.NewSessionStore(store.NewKVPort(store.NewMemoryKV(), "k"), silentLog())
	w := NewWidget(st, llm.NewRegistry(silentLog()), speech.Capabilities{}, nil, Options{}, silentLog())

	w.Send(context.Background(), "hello there")

	msgs := w.Current().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, ApologyText, msgs[1].Text)
}

func TestSend_LoadingWhileWaiting(t *testing.T) {
	var r *rig
	var sawLoading, sawSending bool
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			sawLoading = r.widget.State().Loading
			sawSending = r.widget.Sending()
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}
	r = newRig(t, mock, speech.Capabilities{}, Options{})

	r.widget.Send(context.Background(), "hi there")
	assert.True(t, sawLoading)
	assert.True(t, sawSending)
	assert.False(t, r.widget.Sending())
}

func TestSend_SpeaksWhenVoiceEnabled(t *testing.T) {
	synth := &recordingSynth{}
	opts := Options{Speech: config.SpeechConfig{Output: config.SpeechOutputConfig{Enabled: true}}}
	r := newRig(t, answering("Clubs meet on Fridays."), speech.Capabilities{Synthesizer: synth}, opts)

	r.widget.Send(context.Background(), "When do clubs meet?")
	assert.Equal(t, []string{"Clubs meet on Fridays."}, synth.spoken)

	assert.False(t, r.widget.ToggleVoice())
	assert.Equal(t, 1, synth.cancels)

	r.widget.Send(context.Background(), "And on weekends?")
	assert.Len(t, synth.spoken, 1)
}

func TestSend_SpeaksApology(t *testing.T) {
	synth := &recordingSynth{}
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("offline")
		},
	}
	opts := Options{Speech: config.SpeechConfig{Output: config.SpeechOutputConfig{Enabled: true}}}
	r := newRig(t, mock, speech.Capabilities{Synthesizer: synth}, opts)

	r.widget.Send(context.Background(), "anyone there?")
	assert.Equal(t, []string{ApologyText}, synth.spoken)
}

func TestSend_HooksAroundGeneration(t *testing.T) {
	hk := hooks.NewManager(silentLog())
	var mu sync.Mutex
	var events []string
	for _, ev := range []string{hooks.EventBeforeGenerate, hooks.EventAfterGenerate, hooks.EventMessageAppended} {
		hk.On(ev, "test", func(ctx context.Context, p hooks.Payload) error {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, p.Event)
			return nil
		})
	}

	st := store.NewSessionStore(store.NewKVPort(store.NewMemoryKV(), "k"), silentLog())
	w := NewWidget(st, testRegistry(answering("ok")), speech.Capabilities{}, hk, Options{}, silentLog())
	w.Send(context.Background(), "hello there")
	hk.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{
		hooks.EventMessageAppended,
		hooks.EventBeforeGenerate,
		hooks.EventAfterGenerate,
		hooks.EventMessageAppended,
	}, events)
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "Answer briefly. Where is Hall B?", BuildPrompt("Answer briefly. ", "Where is Hall B?"))
	assert.Equal(t, "Where is Hall B?", BuildPrompt("", "Where is Hall B?"))
}

// --- Widget session tests ---

func TestLazyPersistence(t *testing.T) {
	r := newRig(t, answering("ok"), speech.Capabilities{}, Options{})
	w := r.widget

	w.NewSession()
	assert.Equal(t, 0, r.sessions.Sessions().Len())

	w.SystemMessage("Listening...")
	assert.Equal(t, 0, r.sessions.Sessions().Len(), "notices alone are not stored")

	w.Send(context.Background(), "Where is the gym?")
	stored, ok := r.sessions.Sessions().Get(w.CurrentID())
	require.True(t, ok)
	assert.Equal(t, []domain.Role{domain.RoleSystem, domain.RoleUser, domain.RoleBot}, roles(stored.Messages))
}

func TestMount(t *testing.T) {
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := domain.NewSession("1893456000000", future).
		WithMessage(domain.UserMessage("old question"), future)
	port := store.NewKVPort(store.NewMemoryKV(), "k")
	require.NoError(t, port.SaveAll(domain.NewCollection(existing)))

	st := store.NewSessionStore(port, silentLog())
	w := NewWidget(st, testRegistry(answering("ok")), speech.Capabilities{}, nil, Options{
		Now: func() time.Time { return time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC) },
	}, silentLog())
	w.Mount()

	assert.Equal(t, 1, st.Sessions().Len())
	cur := w.Current()
	assert.Equal(t, "1893456000001", cur.ID)
	require.Len(t, cur.Messages, 1)
	assert.Equal(t, domain.SystemMessage(speech.MsgUnavailable), cur.Messages[0])

	// Only one notice per mount.
	w.Input().AnnounceIfUnavailable()
	assert.Len(t, w.Current().Messages, 1)
}

func TestMount_WithRecognizerIsQuiet(t *testing.T) {
	r := newRig(t, answering("ok"), speech.Capabilities{Recognizer: &stubRecognizer{}}, Options{})
	r.widget.Mount()
	assert.Empty(t, r.widget.Current().Messages)
	assert.True(t, r.widget.State().SpeechInput)
}

func TestSpeechInputDisabled(t *testing.T) {
	opts := Options{Speech: config.SpeechConfig{Input: config.SpeechInputConfig{Disabled: true}}}
	r := newRig(t, answering("ok"), speech.Capabilities{Recognizer: &stubRecognizer{}}, opts)
	assert.False(t, r.widget.Input().Available())
}

func TestDeleteCurrentSession(t *testing.T) {
	r := newRig(t, answering("ok"), speech.Capabilities{}, Options{})
	w := r.widget

	w.Send(context.Background(), "first session question")
	first := w.CurrentID()

	require.NoError(t, w.DeleteSession(first))
	assert.NotEqual(t, first, w.CurrentID())
	assert.Empty(t, w.Current().Messages)
	_, ok := r.sessions.Sessions().Get(first)
	assert.False(t, ok)
}

func TestDeleteUnsavedCurrentSession(t *testing.T) {
	r := newRig(t, answering("ok"), speech.Capabilities{}, Options{})
	w := r.widget
	w.SystemMessage("notice")
	id := w.CurrentID()

	require.NoError(t, w.DeleteSession(id))
	assert.NotEqual(t, id, w.CurrentID())
	assert.Empty(t, w.Current().Messages)
}

func TestDeleteOtherSession(t *testing.T) {
	r := newRig(t, answering("ok"), speech.Capabilities{}, Options{})
	w := r.widget

	w.Send(context.Background(), "old one")
	old := w.CurrentID()
	w.NewSession()
	w.Send(context.Background(), "new one")
	cur := w.CurrentID()

	require.NoError(t, w.DeleteSession(old))
	assert.Equal(t, cur, w.CurrentID())
	assert.Len(t, w.Current().Messages, 2)
	assert.Equal(t, 1, r.sessions.Sessions().Len())
}

func TestSelectSession(t *testing.T) {
	r := newRig(t, answering("ok"), speech.Capabilities{}, Options{})
	w := r.widget

	w.Send(context.Background(), "first question")
	first := w.CurrentID()
	w.NewSession()
	assert.NotEqual(t, first, w.CurrentID())

	assert.True(t, w.SelectSession(first))
	assert.Equal(t, first, w.CurrentID())
	assert.Len(t, w.Current().Messages, 2)

	assert.False(t, w.SelectSession("404"))
	assert.Equal(t, first, w.CurrentID())
}

func TestSessionIDsIncrease(t *testing.T) {
	fixed := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	r := newRig(t, answering("ok"), speech.Capabilities{}, Options{Now: func() time.Time { return fixed }})

	var prev int64
	for i := 0; i < 5; i++ {
		r.widget.NewSession()
		id, err := strconv.ParseInt(r.widget.CurrentID(), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestPanelThroughWidget(t *testing.T) {
	r := newRig(t, answering("ok"), speech.Capabilities{}, Options{})
	w := r.widget

	w.Send(context.Background(), "Where is the library located")
	first := w.CurrentID()
	w.NewSession()
	w.Send(context.Background(), "Career fair dates")

	w.OpenHistory()
	assert.True(t, w.State().HistoryOpen)

	entries := w.Panel().Entries(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC))
	require.Len(t, entries, 2)
	assert.Equal(t, "Career fair", entries[0].Summary)
	assert.True(t, entries[0].Current)
	assert.Equal(t, "Where is", entries[1].Summary)

	assert.True(t, w.Panel().Select(first))
	assert.Equal(t, first, w.CurrentID())
	assert.False(t, w.State().HistoryOpen)
}

type listViewport struct {
	offset   int
	restored []int
}

func (v *listViewport) ScrollOffset() int { return v.offset }
func (v *listViewport) SetScrollOffset(o int) {
	v.offset = o
	v.restored = append(v.restored, o)
}

func TestStoredMessageKeepsHistoryScroll(t *testing.T) {
	r := newRig(t, answering("ok"), speech.Capabilities{}, Options{})
	w := r.widget
	vp := &listViewport{offset: 180}
	w.Panel().Attach(vp)

	w.SystemMessage("Welcome")
	w.Panel().Render()
	assert.Empty(t, vp.restored, "unsaved sessions leave the list alone")

	w.Send(context.Background(), "Where is the library located")
	vp.offset = 0
	w.Panel().Render()
	assert.Equal(t, []int{180}, vp.restored)
}

// --- Events ---

func TestSubscribe(t *testing.T) {
	r := newRig(t, answering("Hi!"), speech.Capabilities{}, Options{})
	w := r.widget

	var mu sync.Mutex
	var msgs []domain.Message
	var types []EventType
	unsubscribe := w.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, ev.Type)
		if ev.Type == EventMessage {
			msgs = append(msgs, *ev.Message)
		}
	})

	w.Send(context.Background(), "hello there")
	assert.Equal(t, []domain.Message{domain.UserMessage("hello there"), domain.BotMessage("Hi!")}, msgs)
	assert.Contains(t, types, EventState)
	assert.Contains(t, types, EventSessions)

	unsubscribe()
	w.NewSession()
	assert.NotContains(t, types, EventSession)
}

// --- Speech through the widget ---

func TestVoiceInputAutoSubmits(t *testing.T) {
	rec := &stubRecognizer{}
	r := newRig(t, answering("Room 204."), speech.Capabilities{Recognizer: rec}, Options{})
	w := r.widget

	require.NoError(t, w.StartListening(context.Background()))
	assert.True(t, w.State().Listening)
	require.NotNil(t, rec.handler)

	rec.handler.OnResult("where is my class")

	msgs := w.Current().Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.SystemMessage(speech.MsgListening), msgs[0])
	assert.Equal(t, domain.UserMessage("where is my class"), msgs[1])
	assert.Equal(t, domain.BotMessage("Room 204."), msgs[2])
	assert.False(t, w.State().Listening)

	w.StopListening()
	assert.Equal(t, 1, rec.stops)
	assert.Equal(t, string(speech.StateIdle), w.State().Recognition)
}

func TestVoiceInputBlankTranscript(t *testing.T) {
	rec := &stubRecognizer{}
	r := newRig(t, answering("x"), speech.Capabilities{Recognizer: rec}, Options{})
	w := r.widget

	require.NoError(t, w.StartListening(context.Background()))
	rec.handler.OnResult("   ")
	assert.False(t, w.State().Listening)
	assert.Len(t, w.Current().Messages, 1)
}
