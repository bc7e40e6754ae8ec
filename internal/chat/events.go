package chat

import "github.com/soyeahso/campusbot/internal/domain"

// EventType names a widget change.
type EventType string

const (
	EventMessage  EventType = "message"  // a message was appended to the current session
	EventState    EventType = "state"    // draft, loading, listening or voice changed
	EventSessions EventType = "sessions" // the stored collection changed
	EventSession  EventType = "session"  // a different session became current
)

// Event is delivered to subscribers after the widget changed.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"sessionId"`
	Message   *domain.Message `json:"message,omitempty"`
	State     *State          `json:"state,omitempty"`
}

// State is a snapshot of the widget's transient flags.
type State struct {
	SessionID       string `json:"sessionId"`
	Draft           string `json:"draft"`
	Loading         bool   `json:"loading"`
	Listening       bool   `json:"listening"`
	Recognition     string `json:"recognition"`
	VoiceOutput     bool   `json:"voiceOutput"`
	SpeechInput     bool   `json:"speechInput"`
	SpeechOutput    bool   `json:"speechOutput"`
	HistoryOpen     bool   `json:"historyOpen"`
	SessionMessages int    `json:"sessionMessages"`
}

// Subscriber is called synchronously for every event.
type Subscriber func(Event)
