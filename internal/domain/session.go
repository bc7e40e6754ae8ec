package domain

import (
	"strconv"
	"sync"
	"time"
)

// Session is one chat conversation. Sessions are values: mutating methods
// return a new Session and leave the receiver untouched.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSession returns an empty session created at now.
func NewSession(id string, now time.Time) Session {
	return Session{ID: id, Messages: []Message{}, Timestamp: now}
}

// WithMessage returns a copy of s with msg appended and the timestamp moved to now.
func (s Session) WithMessage(msg Message, now time.Time) Session {
	msgs := make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(msgs, s.Messages)
	return Session{
		ID:        s.ID,
		Messages:  append(msgs, msg),
		Timestamp: now,
	}
}

// Empty reports whether the session has no messages.
func (s Session) Empty() bool { return len(s.Messages) == 0 }

// FirstUserMessage returns the earliest message typed by the user.
func (s Session) FirstUserMessage() (Message, bool) {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return m, true
		}
	}
	return Message{}, false
}

// IDSource hands out session ids derived from the creation time in Unix
// milliseconds. Ids strictly increase even when two sessions are created
// within the same millisecond.
type IDSource struct {
	mu   sync.Mutex
	last int64
}

// Next returns a fresh id for a session created at now.
func (g *IDSource) Next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// Observe records an existing id so later ids sort after it.
func (g *IDSource) Observe(id string) {
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	if ms > g.last {
		g.last = ms
	}
	g.mu.Unlock()
}
