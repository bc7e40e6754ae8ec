package speech

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeHost struct {
	mu        sync.Mutex
	notices   []string
	listening bool
	submitted []string
}

func (h *fakeHost) SystemMessage(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, text)
}

func (h *fakeHost) SetListening(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listening = on
}

func (h *fakeHost) Submit(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.submitted = append(h.submitted, text)
}

func (h *fakeHost) Listening() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listening
}

func (h *fakeHost) Notices() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.notices...)
}

type fakeRecognizer struct {
	starts   int
	stops    int
	startErr error
	handler  RecognitionHandler
}

func (r *fakeRecognizer) Start(h RecognitionHandler) error {
	r.starts++
	r.handler = h
	return r.startErr
}

func (r *fakeRecognizer) Stop() { r.stops++ }

type fakePermissions struct {
	state      PermissionState
	queryErr   error
	requestErr error
	requests   int
}

func (p *fakePermissions) Microphone(context.Context) (PermissionState, error) {
	return p.state, p.queryErr
}

func (p *fakePermissions) RequestMicrophone(context.Context) error {
	p.requests++
	return p.requestErr
}

type fakeSynth struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
	err     error
}

func (s *fakeSynth) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *fakeSynth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

// manualScheduler records scheduled calls and runs them on demand.
type manualScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	queue  []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{f: f}
	s.delays = append(s.delays, d)
	s.queue = append(s.queue, t)
	return t
}

// Pending counts scheduled calls that were neither run nor stopped.
func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.queue {
		if !t.stopped {
			n++
		}
	}
	return n
}

// RunNext fires the oldest live timer.
func (s *manualScheduler) RunNext() error {
	s.mu.Lock()
	for i, t := range s.queue {
		if !t.stopped {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			s.mu.Unlock()
			t.stopped = true
			t.f()
			return nil
		}
	}
	s.mu.Unlock()
	return errors.New("nothing scheduled")
}
